package ports_test

import (
	"context"
	"maps"
	"testing"

	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/ports"
)

// MockStore is a minimal SnapshotStore used to exercise the contract suite itself.
type MockStore struct {
	data map[string]*domain.Snapshot
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]*domain.Snapshot)}
}

func (m *MockStore) Save(_ context.Context, agentID string, snap *domain.Snapshot) error {
	m.data[agentID] = snap.Clone()
	return nil
}

func (m *MockStore) Load(_ context.Context, agentID string) (*domain.Snapshot, error) {
	snap, ok := m.data[agentID]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

func (m *MockStore) Delete(_ context.Context, agentID string) error {
	delete(m.data, agentID)
	return nil
}

func (m *MockStore) List(_ context.Context) ([]string, error) {
	var ids []string
	for id := range maps.Keys(m.data) {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestSnapshotStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, NewMockStore())
}
