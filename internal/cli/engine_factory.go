package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/seltree"
	"github.com/aretw0/seltree/internal/config"
	"github.com/aretw0/seltree/pkg/adapters/file"
	"github.com/aretw0/seltree/pkg/adapters/memory"
	"github.com/aretw0/seltree/pkg/adapters/redis"
	"github.com/aretw0/seltree/pkg/adapters/sqlite"
	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/observability"
	"github.com/aretw0/seltree/pkg/ports"
)

// createEngine loads the configured definitions folder.
func createEngine(opts Options, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*seltree.Engine, error) {
	cfg := opts.Config
	engineOpts := []seltree.Option{
		seltree.WithLogger(logger),
		seltree.WithMaxDepth(cfg.MaxDepth),
	}
	if cfg.HistoryCapacity != nil {
		engineOpts = append(engineOpts, seltree.WithHistoryCapacity(*cfg.HistoryCapacity))
	}
	if opts.Debug {
		engineOpts = append(engineOpts, seltree.WithLifecycleHooks(observability.LogHooks(logger)))
	}
	for _, h := range hooks {
		engineOpts = append(engineOpts, seltree.WithLifecycleHooks(h))
	}

	engine, err := seltree.New(cfg.Dir, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// storeHandle is an opened snapshot store and what comes with it.
type storeHandle struct {
	Store  ports.SnapshotStore
	Locker ports.DistributedLocker
	Close  func() error
}

// openStore builds the snapshot store selected by cfg.
func openStore(cfg config.StoreConfig) (*storeHandle, error) {
	nop := func() error { return nil }
	switch cfg.Backend {
	case "", config.BackendMemory:
		return &storeHandle{Store: memory.NewStore(), Close: nop}, nil

	case config.BackendFile:
		return &storeHandle{Store: file.NewStore(cfg.Path), Close: nop}, nil

	case config.BackendSQLite:
		s, err := sqlite.NewStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &storeHandle{Store: s, Close: s.Close}, nil

	case config.BackendRedis:
		var ropts []redis.Option
		prefix := redis.DefaultPrefix
		if cfg.Redis.Prefix != "" {
			prefix = cfg.Redis.Prefix
			ropts = append(ropts, redis.WithPrefix(prefix))
		}
		if cfg.TTL > 0 {
			ropts = append(ropts, redis.WithTTL(cfg.TTL))
		}
		s := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, ropts...)
		return &storeHandle{
			Store:  s,
			Locker: redis.NewLocker(s.Client(), prefix),
			Close:  s.Client().Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
