package ports

import (
	"context"

	"github.com/aretw0/seltree/pkg/domain"
)

// SnapshotStore defines the interface for persisting agent snapshots.
// This lets an agent stop and resume with identical subsequent selections.
type SnapshotStore interface {
	// Save persists the snapshot for a given agent ID.
	Save(ctx context.Context, agentID string, snapshot *domain.Snapshot) error

	// Load retrieves the snapshot for a given agent ID.
	// Returns domain.ErrSnapshotNotFound if the agent does not exist.
	Load(ctx context.Context, agentID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given agent ID.
	Delete(ctx context.Context, agentID string) error

	// List returns the IDs of every stored agent.
	List(ctx context.Context) ([]string, error)
}
