// Package agent pairs a tree instance with the variable store it reads, which
// is the unit hosts tick, signal, persist and restore.
package agent

import (
	"fmt"

	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/ports"
	"github.com/aretw0/seltree/pkg/tree"
	"github.com/aretw0/seltree/pkg/variables"
)

// Agent is one decision-making entity. It is not safe for concurrent use;
// the session manager serialises access when agents are shared.
type Agent struct {
	id    string
	tree  *tree.Tree
	vars  *variables.Store
	ticks uint64
}

// Option configures an Agent.
type Option func(*config)

type config struct {
	treeOpts  []tree.Option
	storeOpts []variables.StoreOption
}

// WithTreeOptions forwards options to the tree instance.
func WithTreeOptions(opts ...tree.Option) Option {
	return func(c *config) {
		c.treeOpts = append(c.treeOpts, opts...)
	}
}

// WithStoreOptions forwards options to the variable store.
func WithStoreOptions(opts ...variables.StoreOption) Option {
	return func(c *config) {
		c.storeOpts = append(c.storeOpts, opts...)
	}
}

// New instantiates tmpl for the agent with the given id.
func New(id string, tmpl *tree.Template, opts ...Option) *Agent {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Agent{
		id:   id,
		tree: tmpl.Instantiate(cfg.treeOpts...),
		vars: tmpl.NewStore(cfg.storeOpts...),
	}
}

// FromSnapshot rebuilds an agent from a persisted snapshot, resolving its
// template through src.
func FromSnapshot(src ports.TemplateSource, snap *domain.Snapshot, opts ...Option) (*Agent, error) {
	tmpl, err := src.Template(snap.Template)
	if err != nil {
		return nil, err
	}
	a := New(snap.AgentID, tmpl, opts...)
	if err := a.Restore(snap); err != nil {
		return nil, err
	}
	return a, nil
}

// ID returns the agent id.
func (a *Agent) ID() string { return a.id }

// Template returns the shared template.
func (a *Agent) Template() *tree.Template { return a.tree.Template() }

// Tree returns the agent's tree instance.
func (a *Agent) Tree() *tree.Tree { return a.tree }

// Variables returns the agent's variable store.
func (a *Agent) Variables() *variables.Store { return a.vars }

// Ticks returns how many times the agent has been ticked since creation or restore.
func (a *Agent) Ticks() uint64 { return a.ticks }

// Tick evaluates the tree against the current variables and clears the
// store's change flag.
func (a *Agent) Tick() domain.NodeID {
	id := a.tree.Evaluate(a.vars)
	a.vars.ResetChanged()
	a.ticks++
	return id
}

// Current returns the leaf selected by the last tick.
func (a *Agent) Current() domain.NodeID { return a.tree.Current() }

// Behavior returns the external name of the current selection.
func (a *Agent) Behavior() string { return a.tree.Behavior() }

// Signal delivers a named signal and reports whether the template knows it.
func (a *Agent) Signal(name string) bool {
	return a.tree.Signal(name, a.vars)
}

// Set writes a variable by name and reports whether its value flipped.
func (a *Agent) Set(name string, v bool) (bool, error) {
	return a.vars.SetByName(name, v)
}

// Get reads a variable by name.
func (a *Agent) Get(name string) (bool, bool) {
	return a.vars.GetByName(name)
}

// NamedVariables returns every variable keyed by its declared name.
func (a *Agent) NamedVariables() map[string]bool {
	decls := a.vars.Declarations()
	out := make(map[string]bool, decls.Len())
	for id, v := range a.vars.Values() {
		out[decls.Name(id)] = v
	}
	return out
}

// Reset returns the tree and the store to their initial state.
func (a *Agent) Reset() {
	a.tree.Reset()
	a.vars.Reset()
	a.ticks = 0
}

// Snapshot captures everything needed to resume the agent.
func (a *Agent) Snapshot() *domain.Snapshot {
	snap := domain.NewSnapshot(a.id, a.Template().Name())
	snap.CurrentNodeID = a.tree.Current()
	snap.Variables = a.vars.Values()
	snap.Cursors = a.tree.Cursors()
	return snap
}

// Restore resumes the agent from snap. Variables absent from the snapshot
// take their defaults.
func (a *Agent) Restore(snap *domain.Snapshot) error {
	if snap.Template != a.Template().Name() {
		return fmt.Errorf("%w: snapshot of %q restored into %q", domain.ErrSnapshotMismatch, snap.Template, a.Template().Name())
	}
	if err := a.tree.Restore(snap.CurrentNodeID, snap.Cursors); err != nil {
		return err
	}
	a.vars.Reset()
	a.vars.Restore(snap.Variables)
	a.id = snap.AgentID
	a.ticks = 0
	return nil
}
