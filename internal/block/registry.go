// Package block implements named, scoped definition fragments and the lazy
// iterator that inlines references to them while a definition is loaded.
package block

import (
	"fmt"
	"sort"

	"github.com/aretw0/seltree/internal/document"
	"github.com/aretw0/seltree/pkg/domain"
)

// Element tags understood by the block layer.
const (
	TagBlocks = "Blocks"
	TagBlock  = "Block"
	TagRef    = "Ref"
)

// GlobalScope is the implicit scope searched after the local one.
const GlobalScope = ""

// Block is a reusable fragment. Iterating a block yields the children of its element.
type Block struct {
	Scope   string
	Name    string
	File    string
	Element *document.Element
}

// Registry maps scope → name → Block. It is filled once at load time and
// read-only afterwards.
type Registry struct {
	scopes map[string]map[string]*Block
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scopes: make(map[string]map[string]*Block)}
}

// Add registers a block. Registering the same scope/name twice fails.
func (r *Registry) Add(b *Block) error {
	names, ok := r.scopes[b.Scope]
	if !ok {
		names = make(map[string]*Block)
		r.scopes[b.Scope] = names
	}
	if prev, exists := names[b.Name]; exists {
		return &domain.LoadError{
			Err:    domain.ErrDuplicateBlock,
			File:   b.File,
			Scope:  b.Scope,
			Name:   b.Name,
			Detail: fmt.Sprintf("already declared in %s", prev.File),
		}
	}
	names[b.Name] = b
	return nil
}

// Register adds every <Block> child of a <Blocks> section. A block's scope is
// its "scope" attribute when present, defaultScope otherwise. All failures
// are returned so the caller can report them together.
func (r *Registry) Register(file string, section *document.Element, defaultScope string) []error {
	var errs []error
	for _, el := range section.Children {
		if el.Tag != TagBlock {
			errs = append(errs, &domain.LoadError{
				Err:    domain.ErrMalformedDocument,
				File:   file,
				Name:   el.Tag,
				Detail: fmt.Sprintf("line %d: only <%s> elements are allowed in <%s>", el.Line, TagBlock, TagBlocks),
			})
			continue
		}
		name, _ := el.Attr("name")
		if name == "" {
			errs = append(errs, &domain.LoadError{
				Err:    domain.ErrMalformedDocument,
				File:   file,
				Detail: fmt.Sprintf("line %d: block without a name", el.Line),
			})
			continue
		}
		scope, ok := el.Attr("scope")
		if !ok {
			scope = defaultScope
		}
		if err := r.Add(&Block{Scope: scope, Name: name, File: file, Element: el}); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Lookup resolves name in scope first, then in the global scope.
func (r *Registry) Lookup(scope, name string) (*Block, bool) {
	if b, ok := r.scopes[scope][name]; ok {
		return b, true
	}
	b, ok := r.scopes[GlobalScope][name]
	return b, ok
}

// Len returns the number of registered blocks across all scopes.
func (r *Registry) Len() int {
	n := 0
	for _, names := range r.scopes {
		n += len(names)
	}
	return n
}

// Scopes returns the registered scope names, sorted. The global scope is "".
func (r *Registry) Scopes() []string {
	out := make([]string, 0, len(r.scopes))
	for s := range r.scopes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
