package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/seltree/internal/logging"
	"github.com/aretw0/seltree/pkg/agent"
	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates agent access, serialising every read-modify-write of
// one agent's snapshot. Unused per-agent locks are dropped by reference count.
type Manager struct {
	store  ports.SnapshotStore
	source ports.TemplateSource

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker    ports.DistributedLocker
	lockTTL   time.Duration
	agentOpts []agent.Option
	logger    *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithAgentOptions forwards options to every agent the manager rebuilds.
func WithAgentOptions(opts ...agent.Option) Option {
	return func(m *Manager) {
		m.agentOpts = append(m.agentOpts, opts...)
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager that persists into store and resolves
// templates through source.
func NewManager(store ports.SnapshotStore, source ports.TemplateSource, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		source:  source,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release after unlocking it.
func (m *Manager) acquire(agentID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[agentID]
	if !exists {
		entry = &lockEntry{}
		m.locks[agentID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[agentID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, agentID)
	}
}

// Create instantiates a new agent of the named template and persists it.
// If the agent already exists its stored snapshot is returned unchanged.
func (m *Manager) Create(ctx context.Context, agentID, template string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, agentID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, agentID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			return fmt.Errorf("failed to check agent existence: %w", err)
		}

		tmpl, err := m.source.Template(template)
		if err != nil {
			return err
		}
		snap = agent.New(agentID, tmpl, m.agentOpts...).Snapshot()
		if err := m.store.Save(ctx, agentID, snap); err != nil {
			return fmt.Errorf("failed to initialize agent: %w", err)
		}
		m.logger.Debug("agent created", "agent_id", agentID, "template", template)
		return nil
	})
	return snap, err
}

// Load retrieves an agent's snapshot.
func (m *Manager) Load(ctx context.Context, agentID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, agentID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, agentID)
		return err
	})
	return snap, err
}

// Agent rebuilds a read-only view of snap with the manager's agent options.
// Changes to the returned agent are not persisted; use Update for that.
func (m *Manager) Agent(snap *domain.Snapshot) (*agent.Agent, error) {
	return agent.FromSnapshot(m.source, snap, m.agentOpts...)
}

// Update rebuilds the agent from its snapshot, applies fn and persists the
// result. Nothing is saved when fn fails.
func (m *Manager) Update(ctx context.Context, agentID string, fn func(*agent.Agent) error) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, agentID, func(ctx context.Context) error {
		prev, err := m.store.Load(ctx, agentID)
		if err != nil {
			return err
		}
		a, err := agent.FromSnapshot(m.source, prev, m.agentOpts...)
		if err != nil {
			return fmt.Errorf("failed to restore agent %s: %w", agentID, err)
		}
		if err := fn(a); err != nil {
			return err
		}
		snap = a.Snapshot()
		return m.store.Save(ctx, agentID, snap)
	})
	return snap, err
}

// Save persists a snapshot.
func (m *Manager) Save(ctx context.Context, agentID string, snap *domain.Snapshot) error {
	return m.WithLock(ctx, agentID, func(ctx context.Context) error {
		return m.store.Save(ctx, agentID, snap)
	})
}

// Delete removes the agent from the store.
func (m *Manager) Delete(ctx context.Context, agentID string) error {
	return m.WithLock(ctx, agentID, func(ctx context.Context) error {
		return m.store.Delete(ctx, agentID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// WithLock executes fn while holding the agent's lock.
func (m *Manager) WithLock(ctx context.Context, agentID string, fn func(context.Context) error) error {
	entry := m.acquire(agentID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(agentID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, agentID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"agent_id", agentID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
