// Package tree implements selection trees: the immutable Template compiled
// from definition data and the per-agent Tree that evaluates it once per tick.
//
// Nodes live in a flat array addressed by domain.NodeID (1-based, 0 means no
// selection). A Template owns the canonical array; every Tree shares it and
// keeps only its own cursors and current selection.
package tree

import (
	"github.com/aretw0/seltree/pkg/condition"
	"github.com/aretw0/seltree/pkg/domain"
)

// MaxChildren is the largest number of children or states a composite node
// may hold; cursors are stored in a byte.
const MaxChildren = 255

// Child is a guarded edge from a Priority or Sequence node.
type Child struct {
	ID        domain.NodeID
	Condition condition.Program
}

// Transition moves a StateMachine to the state at index Target.
type Transition struct {
	Condition condition.Program
	Target    int
}

// State is one state of a StateMachine node.
type State struct {
	Name        string
	Child       domain.NodeID
	Transitions []Transition
}

// Node is the structural definition of a tree node.
type Node struct {
	Name   string
	Parent domain.NodeID
	Kind   domain.NodeKind
	// Condition guards the node where its parent checks it. It is kept for
	// inspection; evaluation reads the copy stored on the parent's Child.
	Condition condition.Program
	Children  []Child
	States    []State
}

// IsLeaf reports whether the node is terminal.
func (n *Node) IsLeaf() bool { return n.Kind == domain.KindLeaf }

// StateIndex returns the index of the named state, or -1.
func (n *Node) StateIndex(name string) int {
	for i, s := range n.States {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// ChildIndex returns the position of id among the node's children, or -1.
// For state machines the position of the state whose child is id is returned.
func (n *Node) ChildIndex(id domain.NodeID) int {
	for i, c := range n.Children {
		if c.ID == id {
			return i
		}
	}
	for i, s := range n.States {
		if s.Child == id {
			return i
		}
	}
	return -1
}

// width is the number of positions a cursor can take.
func (n *Node) width() int {
	if n.Kind == domain.KindStateMachine {
		return len(n.States)
	}
	return len(n.Children)
}
