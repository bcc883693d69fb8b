package ports

import "github.com/aretw0/seltree/pkg/tree"

// TemplateSource resolves compiled templates by name.
// It is implemented by the registry and consumed by adapters that create
// agents on demand (HTTP, session manager).
type TemplateSource interface {
	// Template returns the named template or domain.ErrTemplateNotFound.
	Template(name string) (*tree.Template, error)

	// Names returns every template name, sorted.
	Names() []string

	// LookupByTypeTag returns the sorted names of templates with the given type.
	LookupByTypeTag(tag string) []string
}
