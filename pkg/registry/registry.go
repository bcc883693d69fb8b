// Package registry loads definition folders into shared tree templates and
// hands out per-agent tree instances.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/seltree/internal/block"
	"github.com/aretw0/seltree/internal/compiler"
	"github.com/aretw0/seltree/internal/document"
	"github.com/aretw0/seltree/internal/logging"
	"github.com/aretw0/seltree/pkg/adapters/file"
	"github.com/aretw0/seltree/pkg/domain"
	"github.com/aretw0/seltree/pkg/ports"
	"github.com/aretw0/seltree/pkg/tree"
)

// Registry manages the loaded templates.
// A load builds into fresh maps and swaps them in at once, so readers never
// observe a half-loaded data set.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*tree.Template
	byType    map[string][]string
	blocks    *block.Registry
	files     []string

	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	maxDepth int
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for load reports.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHooks sets the lifecycle hooks. Evaluation and signal hooks are passed
// on to every instantiated tree.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(r *Registry) {
		r.hooks = h
	}
}

// WithMaxDepth bounds block reference nesting during compilation.
func WithMaxDepth(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		templates: make(map[string]*tree.Template),
		byType:    make(map[string][]string),
		blocks:    block.NewRegistry(),
		logger:    logging.NewNop(),
		maxDepth:  block.DefaultMaxDepth,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadFolder loads every definition file under path, recursively.
func (r *Registry) LoadFolder(path string) error {
	return r.Load(file.NewLoader(path))
}

// Load parses every definition the loader lists, registers all blocks, then
// compiles every tree. The registry is only replaced when no error occurred
// anywhere; otherwise an *domain.AggregateError holding every failure is
// returned and the previous contents stay in place.
func (r *Registry) Load(loader ports.DefinitionLoader) error {
	ids, err := loader.ListDefinitions()
	if err != nil {
		return r.fail(0, []error{fmt.Errorf("failed to list definitions: %w", err)})
	}

	var errs []error
	docs := make([]*document.Document, 0, len(ids))
	for _, id := range ids {
		data, err := loader.GetDefinition(id)
		if err != nil {
			errs = append(errs, &domain.LoadError{Err: domain.ErrMalformedDocument, File: id, Detail: err.Error()})
			continue
		}
		doc, err := document.Parse(id, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}

	c := compiler.New(block.NewRegistry(), compiler.WithMaxDepth(r.maxDepth))
	for _, doc := range docs {
		errs = append(errs, c.RegisterBlocks(doc)...)
	}

	templates := make(map[string]*tree.Template)
	byType := make(map[string][]string)
	for _, doc := range docs {
		tmpls, cerrs := c.Compile(doc)
		errs = append(errs, cerrs...)
		for _, tmpl := range tmpls {
			if prev, ok := templates[tmpl.Name()]; ok {
				errs = append(errs, &domain.LoadError{
					Err:    domain.ErrDuplicateTemplate,
					File:   tmpl.File(),
					Name:   tmpl.Name(),
					Detail: fmt.Sprintf("already defined in %s", prev.File()),
				})
				continue
			}
			templates[tmpl.Name()] = tmpl
			byType[tmpl.Type()] = append(byType[tmpl.Type()], tmpl.Name())
		}
	}

	if len(errs) > 0 {
		return r.fail(len(ids), errs)
	}

	for _, names := range byType {
		sort.Strings(names)
	}

	r.mu.Lock()
	r.templates = templates
	r.byType = byType
	r.blocks = c.Blocks()
	r.files = ids
	r.mu.Unlock()

	r.logger.Info("definitions loaded", "templates", len(templates), "files", len(ids))
	r.emit(len(templates), len(ids), nil)
	return nil
}

func (r *Registry) fail(files int, errs []error) error {
	for _, err := range errs {
		r.logger.Debug("load error", "error", err)
	}
	aggr := &domain.AggregateError{Errors: errs}
	r.emit(0, files, aggr)
	return aggr
}

func (r *Registry) emit(templates, files int, err *domain.AggregateError) {
	if r.hooks.OnLoad == nil {
		return
	}
	ev := &domain.LoadEvent{
		EventBase: domain.EventBase{Timestamp: r.now(), Type: domain.EventLoad},
		Templates: templates,
		Files:     files,
	}
	if err != nil {
		ev.Errors = len(err.Errors)
		ev.Err = err
	}
	r.hooks.OnLoad(ev)
}

// Template returns the named template.
func (r *Registry) Template(name string) (*tree.Template, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrTemplateNotFound, name)
	}
	return tmpl, nil
}

// Instantiate creates a fresh tree of the named template. The registry's
// hooks are applied before opts.
func (r *Registry) Instantiate(name string, opts ...tree.Option) (*tree.Tree, error) {
	tmpl, err := r.Template(name)
	if err != nil {
		return nil, err
	}
	all := append([]tree.Option{tree.WithHooks(r.hooks)}, opts...)
	return tmpl.Instantiate(all...), nil
}

// Has reports whether a template with the given name is loaded.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[name]
	return ok
}

// Names returns every template name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupByTypeTag returns the names of templates tagged with tag, sorted.
func (r *Registry) LookupByTypeTag(tag string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.byType[tag])
}

// Types returns every type tag in use, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.byType))
	for tag := range r.byType {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Files returns the definition ids of the last successful load.
func (r *Registry) Files() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.files)
}

// Blocks returns the number of blocks registered by the last successful load.
func (r *Registry) Blocks() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.blocks.Len()
}

// IsLoadError reports whether err carries at least one load-time failure.
func IsLoadError(err error) bool {
	var le *domain.LoadError
	return errors.As(err, &le)
}
