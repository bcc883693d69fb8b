package middleware

import (
	"context"
	"fmt"

	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/ports"
)

type validationMiddleware struct {
	next ports.SnapshotStore
	src  ports.TemplateSource
}

// NewValidationMiddleware checks snapshots against the templates of src on
// both Save and Load. A snapshot must belong to the agent it is stored under,
// name a loaded template and fit that template's variables and nodes. This
// catches snapshots left stale by a definition reload.
func NewValidationMiddleware(src ports.TemplateSource) Middleware {
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &validationMiddleware{next: next, src: src}
	}
}

func (m *validationMiddleware) check(agentID string, snap *domain.Snapshot) error {
	if snap.AgentID != agentID {
		return fmt.Errorf("%w: snapshot of %q stored as %q", domain.ErrSnapshotMismatch, snap.AgentID, agentID)
	}
	tmpl, err := m.src.Template(snap.Template)
	if err != nil {
		return err
	}
	vars := tmpl.Declarations().Len()
	for id := range snap.Variables {
		if int(id) >= vars {
			return fmt.Errorf("%w: variable %d out of range for %q", domain.ErrSnapshotMismatch, id, snap.Template)
		}
	}
	if len(snap.Cursors) > tmpl.Len() {
		return fmt.Errorf("%w: %d cursors for %d nodes of %q", domain.ErrSnapshotMismatch, len(snap.Cursors), tmpl.Len(), snap.Template)
	}
	if snap.CurrentNodeID.Valid() {
		n, ok := tmpl.Node(snap.CurrentNodeID)
		if !ok || !n.IsLeaf() {
			return fmt.Errorf("%w: node %d of %q is not a leaf", domain.ErrSnapshotMismatch, snap.CurrentNodeID, snap.Template)
		}
	}
	return nil
}

func (m *validationMiddleware) Save(ctx context.Context, agentID string, snap *domain.Snapshot) error {
	if err := m.check(agentID, snap); err != nil {
		return err
	}
	return m.next.Save(ctx, agentID, snap)
}

func (m *validationMiddleware) Load(ctx context.Context, agentID string) (*domain.Snapshot, error) {
	snap, err := m.next.Load(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if err := m.check(agentID, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (m *validationMiddleware) Delete(ctx context.Context, agentID string) error {
	return m.next.Delete(ctx, agentID)
}

func (m *validationMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
