package dsl

import (
	"github.com/aretw0/seltree/internal/block"
	"github.com/aretw0/seltree/internal/compiler"
	"github.com/aretw0/seltree/internal/document"
	"github.com/aretw0/seltree/pkg/domain"
)

// NodeBuilder configures one tree node.
type NodeBuilder struct {
	el *document.Element
}

func newNode(kind, name string, children ...*NodeBuilder) *NodeBuilder {
	el := &document.Element{Tag: kind, Attrs: []document.Attr{{Name: "name", Value: name}}}
	for _, c := range children {
		el.Children = append(el.Children, c.el)
	}
	return &NodeBuilder{el: el}
}

// Leaf creates a terminal behavior node.
func Leaf(name string) *NodeBuilder {
	return newNode(domain.TagLeaf, name)
}

// Priority creates a node selecting its first eligible child.
func Priority(name string, children ...*NodeBuilder) *NodeBuilder {
	return newNode(domain.TagPriority, name, children...)
}

// Sequence creates a node rotating through its children.
func Sequence(name string, children ...*NodeBuilder) *NodeBuilder {
	return newNode(domain.TagSequence, name, children...)
}

// StateMachine creates a node driven by guarded state transitions. The first
// state is the initial one.
func StateMachine(name string, states ...*StateBuilder) *NodeBuilder {
	n := newNode(domain.TagStateMachine, name)
	for _, s := range states {
		n.el.Children = append(n.el.Children, s.element())
	}
	return n
}

// Ref inlines a named block.
func Ref(name string) *NodeBuilder {
	return &NodeBuilder{el: &document.Element{Tag: block.TagRef, Attrs: []document.Attr{{Name: "name", Value: name}}}}
}

// When guards the node with a condition expression.
func (n *NodeBuilder) When(expr string) *NodeBuilder {
	setAttr(n.el, "condition", expr)
	return n
}

// Element returns the underlying definition element.
func (n *NodeBuilder) Element() *document.Element { return n.el }

// StateBuilder configures one state of a StateMachine.
type StateBuilder struct {
	name        string
	node        *NodeBuilder
	transitions []*document.Element
}

// State creates a state evaluating node while active.
func State(name string, node *NodeBuilder) *StateBuilder {
	return &StateBuilder{name: name, node: node}
}

// To adds a transition to the named state, taken when expr holds.
func (s *StateBuilder) To(target, expr string) *StateBuilder {
	s.transitions = append(s.transitions, &document.Element{
		Tag: compiler.TagTransition,
		Attrs: []document.Attr{
			{Name: "to", Value: target},
			{Name: "condition", Value: expr},
		},
	})
	return s
}

func (s *StateBuilder) element() *document.Element {
	el := &document.Element{Tag: compiler.TagState, Attrs: []document.Attr{{Name: "name", Value: s.name}}}
	if len(s.transitions) > 0 {
		el.Children = append(el.Children, &document.Element{Tag: compiler.TagTransitions, Children: s.transitions})
	}
	if s.node != nil {
		el.Children = append(el.Children, s.node.el)
	}
	return el
}

func setAttr(el *document.Element, name, value string) {
	for i := range el.Attrs {
		if el.Attrs[i].Name == name {
			el.Attrs[i].Value = value
			return
		}
	}
	el.Attrs = append(el.Attrs, document.Attr{Name: name, Value: value})
}
