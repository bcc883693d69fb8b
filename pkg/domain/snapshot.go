package domain

import "maps"

// Snapshot is the persisted state of one agent. Everything else about the
// agent is reconstructible from the shared, immutable template.
type Snapshot struct {
	// AgentID identifies the owner of the snapshot.
	AgentID string `json:"agent_id"`

	// Template names the tree template the agent was instantiated from.
	Template string `json:"template"`

	// CurrentNodeID is the leaf selected by the most recent evaluation (0 if none).
	CurrentNodeID NodeID `json:"current_node_id"`

	// Variables holds the full contents of the agent's variable store.
	Variables map[VariableID]bool `json:"variables"`

	// Cursors holds the per-node evaluation cursor, indexed like the node array.
	// Optional: snapshots without cursors restore with every cursor at 0.
	Cursors []int `json:"cursors,omitempty"`
}

// NewSnapshot creates an empty snapshot for an agent.
func NewSnapshot(agentID, template string) *Snapshot {
	return &Snapshot{
		AgentID:   agentID,
		Template:  template,
		Variables: make(map[VariableID]bool),
	}
}

// Clone returns a deep copy safe for independent mutation.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	next := *s
	next.Variables = maps.Clone(s.Variables)
	if next.Variables == nil {
		next.Variables = make(map[VariableID]bool)
	}
	if s.Cursors != nil {
		next.Cursors = append([]int(nil), s.Cursors...)
	}
	return &next
}
