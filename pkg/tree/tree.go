package tree

import (
	"fmt"
	"time"

	"github.com/aretw0/seltree/pkg/condition"
	"github.com/aretw0/seltree/pkg/domain"
)

// Tree is one agent's instance of a Template. It owns the evaluation cursors
// and the current selection; the node structure is shared with the template.
// A Tree is not safe for concurrent use.
type Tree struct {
	tmpl    *Template
	cursors []uint8
	current domain.NodeID
	hooks   domain.LifecycleHooks
	now     func() time.Time
}

// Option configures a Tree.
type Option func(*Tree)

// WithHooks registers lifecycle hooks fired by Evaluate and Signal.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(t *Tree) {
		t.hooks = t.hooks.Merge(h)
	}
}

// Instantiate creates a fresh tree: every cursor at 0 and nothing selected.
func (t *Template) Instantiate(opts ...Option) *Tree {
	tr := &Tree{
		tmpl:    t,
		cursors: make([]uint8, len(t.nodes)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

// Template returns the shared template.
func (t *Tree) Template() *Template { return t.tmpl }

// Current returns the leaf selected by the last evaluation, or 0.
func (t *Tree) Current() domain.NodeID { return t.current }

// Behavior returns the external name of the current leaf: its translation
// when one exists, its node name otherwise, and "" when nothing is selected.
func (t *Tree) Behavior() string {
	return t.behavior(t.current)
}

func (t *Tree) behavior(id domain.NodeID) string {
	if !t.tmpl.valid(id) {
		return ""
	}
	if name, ok := t.tmpl.translator.Translate(id); ok {
		return name
	}
	return t.tmpl.nodes[id.Index()].Name
}

// Cursor returns the cursor of a Sequence or StateMachine node.
func (t *Tree) Cursor(id domain.NodeID) int {
	if !t.tmpl.valid(id) {
		return 0
	}
	return int(t.cursors[id.Index()])
}

// ActiveState returns the name of a StateMachine's active state.
func (t *Tree) ActiveState(id domain.NodeID) string {
	n, ok := t.tmpl.Node(id)
	if !ok || n.Kind != domain.KindStateMachine {
		return ""
	}
	return n.States[t.cursors[id.Index()]].Name
}

// Reset clears every cursor and the current selection.
func (t *Tree) Reset() {
	clear(t.cursors)
	t.current = domain.InvalidNodeID
}

// Evaluate selects a leaf for this tick. The previous selection is used for
// Priority continuity. It returns the selected leaf, or 0 when no leaf could
// be selected; either way the result becomes the current selection.
func (t *Tree) Evaluate(vars condition.Reader) domain.NodeID {
	prev := t.current
	selected := domain.InvalidNodeID
	if len(t.tmpl.nodes) > 0 {
		if id, ok := t.evaluate(domain.RootNodeID, prev, vars); ok {
			selected = id
		}
	}
	t.current = selected

	if t.hooks.OnEvaluate != nil {
		t.hooks.OnEvaluate(&domain.EvaluateEvent{
			EventBase: domain.EventBase{Timestamp: t.now(), Type: domain.EventEvaluate, Template: t.tmpl.name},
			Previous:  prev,
			Selected:  selected,
			Behavior:  t.behavior(selected),
		})
	}
	return selected
}

func (t *Tree) evaluate(id, prev domain.NodeID, vars condition.Reader) (domain.NodeID, bool) {
	n := &t.tmpl.nodes[id.Index()]
	switch n.Kind {
	case domain.KindLeaf:
		return id, true
	case domain.KindPriority:
		return t.priority(id, n, prev, vars)
	case domain.KindSequence:
		return t.sequence(id, n, prev, vars)
	case domain.KindStateMachine:
		return t.stateMachine(id, n, prev, vars)
	}
	return domain.InvalidNodeID, false
}

func (t *Tree) try(c Child, prev domain.NodeID, vars condition.Reader) (domain.NodeID, bool) {
	if !c.Condition.Evaluate(vars) {
		return domain.InvalidNodeID, false
	}
	return t.evaluate(c.ID, prev, vars)
}

// priority re-checks the branch that held the previous selection before
// scanning the children in order.
func (t *Tree) priority(id domain.NodeID, n *Node, prev domain.NodeID, vars condition.Reader) (domain.NodeID, bool) {
	skip := -1
	if branch := t.tmpl.branchOf(id, prev); branch.Valid() {
		if skip = n.ChildIndex(branch); skip >= 0 {
			if sel, ok := t.try(n.Children[skip], prev, vars); ok {
				return sel, true
			}
		}
	}
	for i, c := range n.Children {
		if i == skip {
			continue
		}
		if sel, ok := t.try(c, prev, vars); ok {
			return sel, true
		}
	}
	return domain.InvalidNodeID, false
}

// sequence tries children from the cursor onward, wrapping around, and moves
// the cursor past the child that succeeded.
func (t *Tree) sequence(id domain.NodeID, n *Node, prev domain.NodeID, vars condition.Reader) (domain.NodeID, bool) {
	count := len(n.Children)
	start := int(t.cursors[id.Index()])
	for k := 0; k < count; k++ {
		i := (start + k) % count
		if sel, ok := t.try(n.Children[i], prev, vars); ok {
			t.cursors[id.Index()] = uint8((i + 1) % count)
			return sel, true
		}
	}
	return domain.InvalidNodeID, false
}

// stateMachine takes at most one transition, then evaluates the active
// state's child. A failing child leaves the new state active.
func (t *Tree) stateMachine(id domain.NodeID, n *Node, prev domain.NodeID, vars condition.Reader) (domain.NodeID, bool) {
	active := int(t.cursors[id.Index()])
	for _, tr := range n.States[active].Transitions {
		if tr.Condition.Evaluate(vars) {
			active = tr.Target
			t.cursors[id.Index()] = uint8(active)
			break
		}
	}
	return t.evaluate(n.States[active].Child, prev, vars)
}

// Signal delivers a named signal, writing the mapped variables into vars.
// It reports whether the template knows the signal.
func (t *Tree) Signal(signal string, vars VariableWriter) bool {
	matched := t.tmpl.signals.Process(signal, vars)
	if t.hooks.OnSignal != nil {
		t.hooks.OnSignal(&domain.SignalEvent{
			EventBase: domain.EventBase{Timestamp: t.now(), Type: domain.EventSignal, Template: t.tmpl.name},
			Signal:    signal,
			Matched:   matched,
		})
	}
	return matched
}

// Cursors returns the cursors indexed like the node array.
func (t *Tree) Cursors() []int {
	out := make([]int, len(t.cursors))
	for i, c := range t.cursors {
		out[i] = int(c)
	}
	return out
}

// Restore sets the current selection and, when cursors is non-nil, every
// cursor. It rejects values that do not fit the template.
func (t *Tree) Restore(current domain.NodeID, cursors []int) error {
	if current.Valid() && !t.tmpl.valid(current) {
		return fmt.Errorf("%w: node %d out of range for %q", domain.ErrSnapshotMismatch, current, t.tmpl.name)
	}
	if cursors != nil {
		if len(cursors) != len(t.cursors) {
			return fmt.Errorf("%w: %d cursors for %d nodes", domain.ErrSnapshotMismatch, len(cursors), len(t.cursors))
		}
		for i, c := range cursors {
			width := t.tmpl.nodes[i].width()
			if c < 0 || (c > 0 && c >= width) {
				return fmt.Errorf("%w: cursor %d out of range for node %q", domain.ErrSnapshotMismatch, c, t.tmpl.nodes[i].Name)
			}
		}
		for i, c := range cursors {
			t.cursors[i] = uint8(c)
		}
	}
	t.current = current
	return nil
}
