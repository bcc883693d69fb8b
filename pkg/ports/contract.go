package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/seltree/pkg/domain"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	agentID := "contract-test-agent-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := domain.NewSnapshot(agentID, "Soldier")
		snap.CurrentNodeID = 4
		snap.Variables[0] = true
		snap.Variables[3] = false
		snap.Cursors = []int{0, 2, 0, 1}

		require.NoError(t, store.Save(ctx, agentID, snap), "Save should not return error")

		loaded, err := store.Load(ctx, agentID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap, loaded)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		snap := domain.NewSnapshot(agentID, "Soldier")
		snap.CurrentNodeID = 2
		require.NoError(t, store.Save(ctx, agentID, snap))

		loaded, err := store.Load(ctx, agentID)
		require.NoError(t, err)
		assert.Equal(t, domain.NodeID(2), loaded.CurrentNodeID)
		assert.Empty(t, loaded.Variables)
		assert.Nil(t, loaded.Cursors)
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, agentID)
		require.NoError(t, err)
		loaded.Variables[9] = true

		again, err := store.Load(ctx, agentID)
		require.NoError(t, err)
		assert.NotContains(t, again.Variables, domain.VariableID(9))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+agentID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, agentID, domain.NewSnapshot(agentID, "Soldier")))

		require.NoError(t, store.Delete(ctx, agentID), "Delete should not return error")

		_, err := store.Load(ctx, agentID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")

		assert.NoError(t, store.Delete(ctx, agentID), "Delete of a missing agent is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := agentID + "-1"
		id2 := agentID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSnapshot(id1, "Soldier")))
		require.NoError(t, store.Save(ctx, id2, domain.NewSnapshot(id2, "Sniper")))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		agents, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, agents, id1)
		assert.Contains(t, agents, id2)
	})
}
