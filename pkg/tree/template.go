package tree

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/variables"
)

// Definition is the raw material of a Template.
type Definition struct {
	Name string
	// Type is the category tag used by the registry's secondary index.
	Type string
	// File is the definition file the template was compiled from.
	File string

	Nodes        []Node
	Declarations *variables.Declarations
	Signals      *SignalTable
	Translations []Translation
}

// Template is the immutable, shared form of a selection tree. It is safe for
// concurrent use; per-agent state lives in Tree.
type Template struct {
	name       string
	typeTag    string
	file       string
	nodes      []Node
	decls      *variables.Declarations
	signals    *SignalTable
	translator *NameTranslator
}

// NewTemplate validates def and builds a template from it. Every structural
// problem found is reported; multiple problems come back as a
// *domain.AggregateError.
func NewTemplate(def Definition) (*Template, error) {
	errs := validate(def)

	// Translation needs well-formed parent chains, so it only runs on a valid
	// node array.
	var translator *NameTranslator
	if len(errs) == 0 {
		var terrs []error
		translator, terrs = NewNameTranslator(def.Nodes, def.Translations)
		for _, err := range terrs {
			if le, ok := err.(*domain.LoadError); ok && le.File == "" {
				le.File = def.File
			}
			errs = append(errs, err)
		}
	}

	switch len(errs) {
	case 0:
	case 1:
		return nil, errs[0]
	default:
		return nil, &domain.AggregateError{Errors: errs}
	}

	decls := def.Declarations
	if decls == nil {
		decls = variables.NewDeclarations()
	}
	signals := def.Signals
	if signals == nil {
		signals = NewSignalTable()
	}

	return &Template{
		name:       def.Name,
		typeTag:    def.Type,
		file:       def.File,
		nodes:      append([]Node(nil), def.Nodes...),
		decls:      decls,
		signals:    signals,
		translator: translator,
	}, nil
}

func validate(def Definition) []error {
	var errs []error
	fail := func(name, format string, args ...any) {
		errs = append(errs, &domain.LoadError{
			Err:    domain.ErrMalformedNode,
			File:   def.File,
			Name:   name,
			Detail: fmt.Sprintf(format, args...),
		})
	}

	if len(def.Nodes) == 0 {
		fail(def.Name, "tree has no root node")
		return errs
	}
	if def.Nodes[0].Parent.Valid() {
		fail(def.Nodes[0].Name, "root node has a parent")
	}

	inRange := func(id domain.NodeID) bool { return id.Valid() && id.Index() < len(def.Nodes) }
	claimed := make([]int, len(def.Nodes))
	claim := func(parent, child domain.NodeID, name string) {
		if !inRange(child) {
			fail(name, "child id %d out of range", child)
			return
		}
		claimed[child.Index()]++
		if got := def.Nodes[child.Index()].Parent; got != parent {
			fail(def.Nodes[child.Index()].Name, "parent is %d, expected %d", got, parent)
		}
	}

	for i := range def.Nodes {
		n := &def.Nodes[i]
		id := domain.NodeIDFromIndex(i)
		if n.Name == "" {
			fail("", "node %d has no name", id)
		}
		if n.width() > MaxChildren {
			fail(n.Name, "%d entries exceed the limit of %d", n.width(), MaxChildren)
		}

		switch n.Kind {
		case domain.KindLeaf:
			if len(n.Children) > 0 || len(n.States) > 0 {
				fail(n.Name, "leaf has children")
			}
		case domain.KindPriority, domain.KindSequence:
			if len(n.States) > 0 {
				fail(n.Name, "%s has states", n.Kind)
			}
			if len(n.Children) == 0 {
				fail(n.Name, "%s has no children", n.Kind)
			}
			for _, c := range n.Children {
				claim(id, c.ID, n.Name)
			}
		case domain.KindStateMachine:
			if len(n.Children) > 0 {
				fail(n.Name, "state machine has direct children")
			}
			if len(n.States) == 0 {
				fail(n.Name, "state machine has no states")
			}
			for _, s := range n.States {
				claim(id, s.Child, n.Name)
				for _, tr := range s.Transitions {
					if tr.Target < 0 || tr.Target >= len(n.States) {
						fail(n.Name, "state %q has a transition to unknown state %d", s.Name, tr.Target)
					}
				}
			}
		default:
			fail(n.Name, "unknown node kind %d", n.Kind)
		}
	}

	// Parents precede their children, so parent chains always end at the root.
	for i := 1; i < len(def.Nodes); i++ {
		n := &def.Nodes[i]
		if !n.Parent.Valid() || n.Parent.Index() >= i {
			fail(n.Name, "parent %d does not precede node %d", n.Parent, domain.NodeIDFromIndex(i))
		}
		if claimed[i] != 1 {
			fail(n.Name, "node is referenced by %d parents", claimed[i])
		}
	}
	return errs
}

// Name returns the template name.
func (t *Template) Name() string { return t.name }

// Type returns the template's category tag.
func (t *Template) Type() string { return t.typeTag }

// File returns the definition file the template came from.
func (t *Template) File() string { return t.file }

// Len returns the number of nodes.
func (t *Template) Len() int { return len(t.nodes) }

// Node returns the node with the given id.
func (t *Template) Node(id domain.NodeID) (Node, bool) {
	if !t.valid(id) {
		return Node{}, false
	}
	return t.nodes[id.Index()], true
}

// Nodes returns a copy of the node array.
func (t *Template) Nodes() []Node { return append([]Node(nil), t.nodes...) }

// Declarations returns the shared variable declarations.
func (t *Template) Declarations() *variables.Declarations { return t.decls }

// Signals returns the shared signal table.
func (t *Template) Signals() *SignalTable { return t.signals }

// Translator returns the shared leaf name translator.
func (t *Template) Translator() *NameTranslator { return t.translator }

// NewStore creates a variable store seeded with the template's defaults.
func (t *Template) NewStore(opts ...variables.StoreOption) *variables.Store {
	return variables.NewStore(t.decls, opts...)
}

// Path returns the colon-separated names from the root down to id.
func (t *Template) Path(id domain.NodeID) string {
	var names []string
	for cur := id; t.valid(cur); cur = t.nodes[cur.Index()].Parent {
		names = append(names, t.nodes[cur.Index()].Name)
	}
	slices.Reverse(names)
	return strings.Join(names, ":")
}

// IsDescendant reports whether id lies strictly below ancestor.
func (t *Template) IsDescendant(id, ancestor domain.NodeID) bool {
	if !t.valid(id) || !t.valid(ancestor) {
		return false
	}
	for cur := t.nodes[id.Index()].Parent; t.valid(cur); cur = t.nodes[cur.Index()].Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// IsAncestor reports whether id lies strictly above descendant.
func (t *Template) IsAncestor(id, descendant domain.NodeID) bool {
	return t.IsDescendant(descendant, id)
}

// branchOf returns the direct child of ancestor on the path to id, or 0 when
// id is not below ancestor.
func (t *Template) branchOf(ancestor, id domain.NodeID) domain.NodeID {
	for cur := id; t.valid(cur); {
		parent := t.nodes[cur.Index()].Parent
		if parent == ancestor {
			return cur
		}
		cur = parent
	}
	return domain.InvalidNodeID
}

func (t *Template) valid(id domain.NodeID) bool {
	return id.Valid() && id.Index() < len(t.nodes)
}
