package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/seltree/internal/config"
)

func write(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := write(t, t.TempDir(), `
max_depth: 8
history_capacity: 0
store:
  backend: redis
  ttl: 1h
  lock_ttl: 5s
  redis:
    addr: localhost:6379
    db: 2
    prefix: "game:"
http:
  addr: ":9090"
`)
	cfg, err := config.Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Dir)
	assert.Equal(t, 8, cfg.MaxDepth)
	require.NotNil(t, cfg.HistoryCapacity)
	assert.Equal(t, 0, *cfg.HistoryCapacity)
	assert.Equal(t, config.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, time.Hour, cfg.Store.TTL)
	assert.Equal(t, 5*time.Second, cfg.Store.LockTTL)
	assert.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, "game:", cfg.Store.Redis.Prefix)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown backend", "store: {backend: mongo}", "unknown store backend"},
		{"redis without addr", "store: {backend: redis}", "store.redis.addr"},
		{"negative depth", "max_depth: -1", "max_depth"},
		{"negative history", "history_capacity: -3", "history_capacity"},
		{"malformed", "store: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := write(t, t.TempDir(), tt.content)
			_, err := config.Load(path, false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("missing project file yields defaults", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := config.Resolve("", dir)
		require.NoError(t, err)
		assert.Equal(t, dir, cfg.Dir)
		assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
		assert.Equal(t, config.DefaultAddr, cfg.HTTP.Addr)
		assert.Nil(t, cfg.HistoryCapacity)
	})

	t.Run("project file in dir", func(t *testing.T) {
		dir := t.TempDir()
		write(t, dir, "store: {backend: sqlite, path: agents.db}")
		cfg, err := config.Resolve("", dir)
		require.NoError(t, err)
		assert.Equal(t, config.BackendSQLite, cfg.Store.Backend)
		assert.Equal(t, "agents.db", cfg.Store.Path)
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		_, err := config.Resolve(filepath.Join(t.TempDir(), "nope.yaml"), ".")
		assert.Error(t, err)
	})
}
