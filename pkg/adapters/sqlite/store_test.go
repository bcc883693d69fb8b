package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/seltree/pkg/adapters/sqlite"
	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/ports"
)

func open(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	store := open(t, filepath.Join(t.TempDir(), "agents.db"))
	ports.RunSnapshotStoreContract(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "agents.db")
	ctx := context.Background()

	first, err := sqlite.NewStore(path)
	require.NoError(t, err)
	snap := domain.NewSnapshot("a1", "Soldier")
	snap.CurrentNodeID = 3
	snap.Variables[1] = true
	require.NoError(t, first.Save(ctx, "a1", snap))
	require.NoError(t, first.Close())

	second := open(t, path)
	loaded, err := second.Load(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)
}

func TestSQLiteStore_ListByTemplate(t *testing.T) {
	store := open(t, filepath.Join(t.TempDir(), "agents.db"))
	ctx := context.Background()

	for id, tmpl := range map[string]string{"s2": "Soldier", "d1": "Dog", "s1": "Soldier"} {
		require.NoError(t, store.Save(ctx, id, domain.NewSnapshot(id, tmpl)))
	}

	ids, err := store.ListByTemplate(ctx, "Soldier")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "s1", "s2"}, all)

	require.NoError(t, store.Delete(ctx, "s1"))
	require.NoError(t, store.Delete(ctx, "missing"))
	ids, err = store.ListByTemplate(ctx, "Soldier")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, ids)
}
