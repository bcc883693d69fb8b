package domain

import "slices"

// SnapshotDiff represents the changes between two snapshots of the same agent.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// AgentID is always present to identify the target.
	AgentID string `json:"agent_id"`

	// CurrentNodeID is set when the selection changed.
	CurrentNodeID *NodeID `json:"current_node_id,omitempty"`

	// Variables contains only variables whose value changed or appeared.
	Variables map[VariableID]bool `json:"variables,omitempty"`

	// Removed lists variables present in the old snapshot but not the new one.
	Removed []VariableID `json:"removed,omitempty"`
}

// Empty reports whether the diff carries no change.
func (d *SnapshotDiff) Empty() bool {
	return d.CurrentNodeID == nil && len(d.Variables) == 0 && len(d.Removed) == 0
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}

	diff := &SnapshotDiff{AgentID: newSnap.AgentID}

	if oldSnap == nil || oldSnap.CurrentNodeID != newSnap.CurrentNodeID {
		current := newSnap.CurrentNodeID
		diff.CurrentNodeID = &current
	}

	for id, v := range newSnap.Variables {
		if oldSnap != nil {
			if prev, ok := oldSnap.Variables[id]; ok && prev == v {
				continue
			}
		}
		if diff.Variables == nil {
			diff.Variables = make(map[VariableID]bool)
		}
		diff.Variables[id] = v
	}

	if oldSnap != nil {
		for id := range oldSnap.Variables {
			if _, ok := newSnap.Variables[id]; !ok {
				diff.Removed = append(diff.Removed, id)
			}
		}
		slices.Sort(diff.Removed)
	}

	return diff
}
