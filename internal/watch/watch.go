// Package watch runs watch bindings: it observes the directories under each
// binding's patterns with fsnotify and fires the binding, debounced, when a
// matching file changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/fsutil"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// FireFunc is called once per burst of changes with the changed paths.
type FireFunc func(ctx context.Context, changed []string)

// Binding ties a set of glob patterns to a callback.
type Binding struct {
	Name     string
	Patterns []string
	Delay    time.Duration
	Fire     FireFunc
}

// Watcher runs a fixed set of bindings.
type Watcher struct {
	bindings  []*binding
	ready     chan struct{}
	readyOnce sync.Once
}

type binding struct {
	Binding
	patterns []string // slash-separated, cleaned

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
}

// New validates bindings and returns a watcher ready to Run.
func New(bindings ...Binding) (*Watcher, error) {
	w := &Watcher{ready: make(chan struct{})}
	for _, b := range bindings {
		if b.Fire == nil {
			return nil, fmt.Errorf("watch %q has no callback", b.Name)
		}
		if len(b.Patterns) == 0 {
			return nil, fmt.Errorf("watch %q has no patterns", b.Name)
		}
		nb := &binding{Binding: b, pending: make(map[string]struct{})}
		for _, p := range b.Patterns {
			clean := filepath.ToSlash(filepath.Clean(p))
			if !doublestar.ValidatePattern(clean) {
				return nil, fmt.Errorf("watch %q: invalid pattern %q", b.Name, p)
			}
			nb.patterns = append(nb.patterns, clean)
		}
		w.bindings = append(w.bindings, nb)
	}
	return w, nil
}

// Run watches until ctx is done. Each burst fires in its own goroutine and
// callbacks still running when Run returns see ctx cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fsw.Close()

	for _, root := range w.roots() {
		if err := addRecursive(fsw, root); err != nil {
			logger.Warn("Cannot watch directory", "dir", root, "error", err)
			continue
		}
		logger.Debug("Watching directory tree.", "dir", root)
	}
	logger.Info("👀 Watching for changes", "bindings", len(w.bindings))
	w.readyOnce.Do(func() { close(w.ready) })

	defer func() {
		for _, b := range w.bindings {
			b.stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Watcher stopping.")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// Files may land in a new directory before it is watched.
					if err := addRecursive(fsw, event.Name); err != nil {
						logger.Warn("Cannot watch new directory", "dir", event.Name, "error", err)
					}
					w.dispatchTree(ctx, event.Name)
					continue
				}
			}
			w.dispatch(ctx, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error", "error", err)
		}
	}
}

// Ready is closed once the initial directories are being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// roots returns the static base directories of every pattern, minus those
// nested in another root.
func (w *Watcher) roots() []string {
	var bases []string
	for _, b := range w.bindings {
		for _, p := range b.patterns {
			bases = append(bases, nearestDir(fsutil.StaticBase(p)))
		}
	}
	sort.Strings(bases)
	var out []string
	for _, base := range bases {
		nested := false
		for _, r := range out {
			if rel, err := filepath.Rel(r, base); err == nil && (rel == "." || !isParentRel(rel)) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, base)
		}
	}
	return out
}

func isParentRel(rel string) bool {
	return rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)
}

// nearestDir walks up from dir until it finds an existing directory.
func nearestDir(dir string) string {
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(path)
	})
}

func (w *Watcher) dispatchTree(ctx context.Context, dir string) {
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			w.dispatch(ctx, path)
		}
		return nil
	})
}

func (w *Watcher) dispatch(ctx context.Context, path string) {
	name := filepath.ToSlash(filepath.Clean(path))
	for _, b := range w.bindings {
		if b.matches(name) {
			b.schedule(ctx, path)
		}
	}
}

func (b *binding) matches(name string) bool {
	for _, p := range b.patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// schedule records path and (re)arms the binding's debounce timer.
func (b *binding) schedule(ctx context.Context, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[path] = struct{}{}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.Delay, func() {
		changed := b.drain()
		if len(changed) == 0 || ctx.Err() != nil {
			return
		}
		ctxlog.FromContext(ctx).Info("🔔 Change detected", "watch", b.Name, "files", len(changed))
		b.Fire(ctx, changed)
	})
}

func (b *binding) drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	changed := make([]string, 0, len(b.pending))
	for p := range b.pending {
		changed = append(changed, p)
	}
	clear(b.pending)
	sort.Strings(changed)
	return changed
}

func (b *binding) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
}
