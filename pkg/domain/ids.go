package domain

import "fmt"

// NodeID identifies a node inside a tree. IDs are 1-based indices into the
// flat node array; InvalidNodeID (0) means "no selection".
type NodeID uint32

// InvalidNodeID is never a valid array index.
const InvalidNodeID NodeID = 0

// RootNodeID is the id of the root of every non-empty tree.
const RootNodeID NodeID = 1

// Valid reports whether id can address a node.
func (id NodeID) Valid() bool { return id != InvalidNodeID }

// Index converts the id into a zero-based slice index. Only call on valid ids.
func (id NodeID) Index() int { return int(id) - 1 }

// NodeIDFromIndex converts a zero-based slice index into a NodeID.
func NodeIDFromIndex(i int) NodeID { return NodeID(i + 1) }

// VariableID identifies a declared boolean fact. IDs are dense per template,
// assigned in declaration order starting at 0.
type VariableID uint32

// NodeKind defines the selection behavior of a node.
type NodeKind uint8

const (
	// KindLeaf is a terminal behavior; evaluating it always selects it.
	KindLeaf NodeKind = iota
	// KindPriority selects the first child whose condition holds, preferring the
	// branch that was active on the previous tick.
	KindPriority
	// KindStateMachine evaluates the child of its active state, moving between
	// states through guarded transitions.
	KindStateMachine
	// KindSequence rotates through its children across successive evaluations.
	KindSequence
)

// Element tags used in definition documents for each kind.
const (
	TagLeaf         = "Leaf"
	TagPriority     = "Priority"
	TagStateMachine = "StateMachine"
	TagSequence     = "Sequence"
)

func (k NodeKind) String() string {
	switch k {
	case KindLeaf:
		return TagLeaf
	case KindPriority:
		return TagPriority
	case KindStateMachine:
		return TagStateMachine
	case KindSequence:
		return TagSequence
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// ParseNodeKind maps an element tag onto a NodeKind.
func ParseNodeKind(tag string) (NodeKind, bool) {
	switch tag {
	case TagLeaf:
		return KindLeaf, true
	case TagPriority:
		return KindPriority, true
	case TagStateMachine:
		return KindStateMachine, true
	case TagSequence:
		return KindSequence, true
	}
	return 0, false
}
