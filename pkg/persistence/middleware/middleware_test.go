package middleware_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/seltree/pkg/adapters/memory"
	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/dsl"
	"github.com/aretw0/seltree/pkg/persistence/middleware"
	"github.com/aretw0/seltree/pkg/ports"
	"github.com/aretw0/seltree/pkg/tree"
)

type source map[string]*tree.Template

func (s source) Template(name string) (*tree.Template, error) {
	t, ok := s[name]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	return t, nil
}
func (s source) Names() []string                 { return nil }
func (s source) LookupByTypeTag(string) []string { return nil }

func walker() source {
	return source{"Walker": dsl.New("Walker").
		Variable("Tired", false).
		Root(dsl.Priority("Root", dsl.Leaf("Rest").When("Tired"), dsl.Leaf("Walk"))).
		MustBuild()}
}

func TestValidationMiddleware(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()
	store := middleware.Chain(inner, middleware.NewValidationMiddleware(walker()))

	ok := domain.NewSnapshot("w1", "Walker")
	ok.CurrentNodeID = 3
	ok.Variables[0] = true
	require.NoError(t, store.Save(ctx, "w1", ok))

	tests := []struct {
		name   string
		key    string
		mutate func(*domain.Snapshot)
		want   error
	}{
		{"wrong owner", "w2", func(*domain.Snapshot) {}, domain.ErrSnapshotMismatch},
		{"unknown template", "w1", func(s *domain.Snapshot) { s.Template = "Ghost" }, domain.ErrTemplateNotFound},
		{"variable out of range", "w1", func(s *domain.Snapshot) { s.Variables[5] = true }, domain.ErrSnapshotMismatch},
		{"too many cursors", "w1", func(s *domain.Snapshot) { s.Cursors = make([]int, 4) }, domain.ErrSnapshotMismatch},
		{"current is not a leaf", "w1", func(s *domain.Snapshot) { s.CurrentNodeID = 1 }, domain.ErrSnapshotMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := ok.Clone()
			tt.mutate(snap)
			assert.ErrorIs(t, store.Save(ctx, tt.key, snap), tt.want)
		})
	}

	// Stale snapshots written behind the middleware's back are rejected on load.
	stale := ok.Clone()
	stale.Template = "Ghost"
	require.NoError(t, inner.Save(ctx, "w1", stale))
	_, err := store.Load(ctx, "w1")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestMetricsMiddleware(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	mw, err := middleware.NewMetricsMiddleware(reg)
	require.NoError(t, err)
	store := middleware.Chain(memory.NewStore(), mw)

	require.NoError(t, store.Save(ctx, "a", domain.NewSnapshot("a", "Walker")))
	_, err = store.Load(ctx, "a")
	require.NoError(t, err)
	_, err = store.Load(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	assert.Equal(t, 3, testutil.CollectAndCount(reg, "seltree_store_operation_seconds"))

	_, err = middleware.NewMetricsMiddleware(reg)
	assert.Error(t, err, "collectors register once per registry")
}

func TestChain_KeepsStoreContract(t *testing.T) {
	mw, err := middleware.NewMetricsMiddleware(nil)
	require.NoError(t, err)
	ports.RunSnapshotStoreContract(t, middleware.Chain(memory.NewStore(), mw))
}
