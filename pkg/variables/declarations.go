// Package variables holds the boolean facts a selection tree reads: the
// per-template declarations and the per-agent store.
package variables

import (
	"fmt"

	"github.com/aretw0/seltree/internal/block"
	"github.com/aretw0/seltree/internal/dto"
	"github.com/aretw0/seltree/pkg/domain"
)

// Element tags of a variable section.
const (
	TagVariables = "Variables"
	TagVariable  = "Variable"
)

// Declarations maps variable names to dense ids in declaration order, and
// records each variable's default. Read-only once loading is done.
type Declarations struct {
	names    []string
	defaults []bool
	ids      map[string]domain.VariableID
}

// NewDeclarations returns an empty set of declarations.
func NewDeclarations() *Declarations {
	return &Declarations{ids: make(map[string]domain.VariableID)}
}

// Declare adds a variable and returns its id.
func (d *Declarations) Declare(name string, def bool) (domain.VariableID, error) {
	if _, ok := d.ids[name]; ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrDuplicateVariable, name)
	}
	id := domain.VariableID(len(d.names))
	d.names = append(d.names, name)
	d.defaults = append(d.defaults, def)
	d.ids[name] = id
	return id, nil
}

// Lookup resolves a name to its id.
func (d *Declarations) Lookup(name string) (domain.VariableID, bool) {
	id, ok := d.ids[name]
	return id, ok
}

// Name returns the declared name of id, or "" when id is out of range.
func (d *Declarations) Name(id domain.VariableID) string {
	if int(id) >= len(d.names) {
		return ""
	}
	return d.names[id]
}

// Default returns the default value of id.
func (d *Declarations) Default(id domain.VariableID) bool {
	if int(id) >= len(d.defaults) {
		return false
	}
	return d.defaults[id]
}

// Len returns the number of declared variables.
func (d *Declarations) Len() int { return len(d.names) }

// Names returns the variable names in id order.
func (d *Declarations) Names() []string { return append([]string(nil), d.names...) }

// LoadDeclarations reads <Variable name="..." default="..."/> elements from
// it, expanding block references. Every problem found is returned; the
// declarations hold whatever was valid.
func LoadDeclarations(it *block.Iterator) (*Declarations, []error) {
	decls := NewDeclarations()
	var errs []error

	for it.Next() {
		el := it.Element()
		if el.Tag != TagVariable {
			errs = append(errs, &domain.LoadError{
				Err:    domain.ErrMalformedDocument,
				File:   it.File(),
				Detail: fmt.Sprintf("unexpected <%s> in <%s>", el.Tag, TagVariables),
			})
			continue
		}

		var attrs dto.VariableAttrs
		if err := dto.Decode(el, &attrs); err != nil {
			errs = append(errs, &domain.LoadError{Err: domain.ErrMalformedDocument, File: it.File(), Detail: err.Error()})
			continue
		}
		if attrs.Name == "" {
			errs = append(errs, &domain.LoadError{
				Err:    domain.ErrMalformedDocument,
				File:   it.File(),
				Detail: fmt.Sprintf("<%s> without name", TagVariable),
			})
			continue
		}
		if _, err := decls.Declare(attrs.Name, attrs.Default); err != nil {
			errs = append(errs, &domain.LoadError{Err: domain.ErrDuplicateVariable, File: it.File(), Name: attrs.Name})
		}
	}
	if err := it.Err(); err != nil {
		errs = append(errs, err)
	}
	return decls, errs
}
