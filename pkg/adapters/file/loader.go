// Package file provides file system adapters: a definition loader over a
// folder (with change notification) and a JSON snapshot store.
package file

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/seltree/internal/document"
	"github.com/aretw0/seltree/internal/logging"
)

// DefaultDebounce coalesces bursts of writes to one definition.
const DefaultDebounce = 200 * time.Millisecond

// ConfigFileName is the project config file, never read as a definition.
const ConfigFileName = "seltree.yaml"

// Loader implements ports.DefinitionLoader and ports.Watchable over a folder.
// Definition IDs are slash-separated paths relative to the folder. Hidden
// files and directories are skipped, as are files matching an ignore pattern.
type Loader struct {
	root     string
	debounce time.Duration
	ignore   []string
	logger   *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.debounce = d
		}
	}
}

// WithIgnore adds filepath.Match patterns for file base names to skip.
// ConfigFileName is always skipped.
func WithIgnore(patterns ...string) LoaderOption {
	return func(l *Loader) {
		l.ignore = append(l.ignore, patterns...)
	}
}

// WithLogger sets the logger used for watch diagnostics.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	l := &Loader{root: dir, debounce: DefaultDebounce, ignore: []string{ConfigFileName}, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Root returns the folder the loader reads from.
func (l *Loader) Root() string { return l.root }

func hidden(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".")
}

// skip reports whether a file is not a definition.
func (l *Loader) skip(name string) bool {
	if hidden(name) || !document.Supported(name) {
		return true
	}
	for _, p := range l.ignore {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// ListDefinitions walks the folder recursively and returns the sorted IDs of
// every supported definition file.
func (l *Loader) ListDefinitions() ([]string, error) {
	var ids []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != l.root && hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || l.skip(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		ids = append(ids, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions in %s: %w", l.root, err)
	}
	slices.Sort(ids)
	return ids, nil
}

// GetDefinition reads the definition with the given ID.
func (l *Loader) GetDefinition(id string) ([]byte, error) {
	rel := filepath.FromSlash(id)
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("definition id %q escapes %s", id, l.root)
	}
	data, err := os.ReadFile(filepath.Join(l.root, rel))
	if err != nil {
		return nil, fmt.Errorf("failed to read definition %s: %w", id, err)
	}
	return data, nil
}

// Watch implements ports.Watchable. Every directory below the root is
// watched; directories created later are added as they appear.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := l.addTree(w, l.root); err != nil {
		_ = w.Close()
		return nil, err
	}

	out := make(chan string, 1)
	go l.run(ctx, w, out)
	return out, nil
}

func (l *Loader) addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != l.root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (l *Loader) run(ctx context.Context, w *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer w.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(l.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if id, ok := l.handle(w, ev); ok {
				pending[id] = struct{}{}
				timer.Reset(l.debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.logger.Warn("definition watcher error", "error", err)

		case <-timer.C:
			ids := make([]string, 0, len(pending))
			for id := range pending {
				ids = append(ids, id)
			}
			slices.Sort(ids)
			clear(pending)
			for _, id := range ids {
				select {
				case out <- id:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handle maps an event onto the ID of the definition it touched.
func (l *Loader) handle(w *fsnotify.Watcher, ev fsnotify.Event) (string, bool) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return "", false
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := l.addTree(w, ev.Name); err != nil {
				l.logger.Warn("failed to watch new directory", "dir", ev.Name, "error", err)
			}
			return "", false
		}
	}
	if l.skip(filepath.Base(ev.Name)) {
		return "", false
	}
	rel, err := filepath.Rel(l.root, ev.Name)
	if err != nil {
		return "", false
	}
	l.logger.Debug("definition changed", "id", filepath.ToSlash(rel), "op", ev.Op.String())
	return filepath.ToSlash(rel), true
}
