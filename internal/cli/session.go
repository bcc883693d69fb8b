package cli

import (
	"log/slog"
	"slices"

	"github.com/aretw0/seltree"
	"github.com/aretw0/seltree/internal/config"
	"github.com/aretw0/seltree/pkg/persistence/middleware"
	"github.com/aretw0/seltree/pkg/session"
)

// setupSessions wires a session manager over the configured store. Stored
// snapshots are always validated against the engine's templates; mws wrap
// the store outside that check.
func setupSessions(eng *seltree.Engine, cfg config.StoreConfig, logger *slog.Logger, mws ...middleware.Middleware) (*session.Manager, func() error, error) {
	h, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	chain := append(slices.Clone(mws), middleware.NewValidationMiddleware(eng))
	store := middleware.Chain(h.Store, chain...)

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithAgentOptions(eng.AgentOptions()...),
	}
	if h.Locker != nil {
		opts = append(opts, session.WithLocker(h.Locker))
	}
	if cfg.LockTTL > 0 {
		opts = append(opts, session.WithLockTTL(cfg.LockTTL))
	}
	return session.NewManager(store, eng, opts...), h.Close, nil
}
