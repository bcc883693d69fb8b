package seltree

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/seltree/internal/logging"
	"github.com/aretw0/seltree/pkg/adapters/file"
	"github.com/aretw0/seltree/pkg/agent"
	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/ports"
	"github.com/aretw0/seltree/pkg/registry"
	"github.com/aretw0/seltree/pkg/tree"
	"github.com/aretw0/seltree/pkg/variables"
)

// Version is the release of the library and CLI.
const Version = "0.1.0"

// Engine is the high-level entry point for the library. It owns a template
// registry loaded from one definition source and creates agents from it.
type Engine struct {
	registry  *registry.Registry
	loader    ports.DefinitionLoader
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	maxDepth  int
	storeOpts []variables.StoreOption
	Name      string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks, merged with any
// registered before.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLoader injects a custom DefinitionLoader, bypassing the folder loader.
func WithLoader(l ports.DefinitionLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxDepth bounds block reference nesting.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		e.maxDepth = n
	}
}

// WithHistoryCapacity sets the variable history capacity of new agents.
func WithHistoryCapacity(n int) Option {
	return func(e *Engine) {
		e.storeOpts = append(e.storeOpts, variables.WithHistoryCapacity(n))
	}
}

// New creates an engine and loads every definition under path.
// If WithLoader is given, path only names the engine and may be empty.
func New(path string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if path == "" {
			return nil, fmt.Errorf("path is required when no custom loader is provided")
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)
		eng.loader = file.NewLoader(absPath, file.WithLogger(eng.logger))
	} else if path != "" {
		eng.Name = filepath.Base(path)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("definitions", eng.Name)
	}

	eng.registry = registry.New(
		registry.WithLogger(eng.logger),
		registry.WithHooks(eng.hooks),
		registry.WithMaxDepth(eng.maxDepth),
	)
	if err := eng.registry.Load(eng.loader); err != nil {
		return nil, err
	}
	return eng, nil
}

// Registry returns the template registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Loader returns the definition loader.
func (e *Engine) Loader() ports.DefinitionLoader { return e.loader }

// Reload reloads every definition. On failure the previous templates stay
// active and the error lists every problem found.
func (e *Engine) Reload() error {
	return e.registry.Load(e.loader)
}

// Template returns the named template.
func (e *Engine) Template(name string) (*tree.Template, error) {
	return e.registry.Template(name)
}

// Names returns every template name, sorted.
func (e *Engine) Names() []string { return e.registry.Names() }

// LookupByTypeTag returns the sorted names of templates tagged with tag.
func (e *Engine) LookupByTypeTag(tag string) []string {
	return e.registry.LookupByTypeTag(tag)
}

// AgentOptions returns the options the engine applies to every agent, for
// callers that rebuild agents themselves (the session manager).
func (e *Engine) AgentOptions() []agent.Option {
	return []agent.Option{
		agent.WithTreeOptions(tree.WithHooks(e.hooks)),
		agent.WithStoreOptions(e.storeOpts...),
	}
}

// NewAgent instantiates the named template for a new agent.
func (e *Engine) NewAgent(id, template string) (*agent.Agent, error) {
	tmpl, err := e.registry.Template(template)
	if err != nil {
		return nil, err
	}
	return agent.New(id, tmpl, e.AgentOptions()...), nil
}

// Restore rebuilds an agent from a snapshot.
func (e *Engine) Restore(snap *domain.Snapshot) (*agent.Agent, error) {
	return agent.FromSnapshot(e.registry, snap, e.AgentOptions()...)
}

// Watch returns a channel that emits the id of every changed definition.
// Returns an error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// WatchAndReload reloads the registry whenever a definition changes, until
// ctx ends. onReload, when non-nil, is told about every attempt.
func (e *Engine) WatchAndReload(ctx context.Context, onReload func(changed string, err error)) error {
	events, err := e.Watch(ctx)
	if err != nil {
		return err
	}
	for changed := range events {
		err := e.Reload()
		if err != nil {
			e.logger.Warn("reload failed, keeping previous templates", "changed", changed, "errors", len(domain.LoadErrors(err)))
		} else {
			e.logger.Info("definitions reloaded", "changed", changed, "templates", len(e.registry.Names()))
		}
		if onReload != nil {
			onReload(changed, err)
		}
	}
	return ctx.Err()
}
