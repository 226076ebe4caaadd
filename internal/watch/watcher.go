// Package watch provides the concrete transport behind spec §1's "the
// filesystem watcher process... an external collaborator": a Watcher
// wrapping fsnotify for raw change events, and a DirtyController
// implementing spec §4.7's reindex-set computation on top of it.
// Grounded on the pack's internal/indexing/watcher.go (recursive
// directory watch, glob filtering, debounce-by-timer), adapted to
// doublestar glob matching and to feed a Scheduler rather than the
// pack's own FileProcessor pipeline.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/indexcore/engine/internal/idxlog"
	"github.com/indexcore/engine/internal/lciconfig"
)

// Watcher recursively watches cfg.Project.Root, filters raw fsnotify
// events through the configured include/exclude globs, and coalesces
// bursts of changes into a single onDirty callback per the
// dirtyCoalesceWindow (spec §4.7 step 4, §6).
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	include  []string
	exclude  []string
	debounce time.Duration

	onDirty func(paths []string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Watcher; onDirty is invoked once per coalesced burst
// with the distinct set of changed paths that passed the filter.
func New(cfg *lciconfig.Config, onDirty func(paths []string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		fsw:      fsw,
		root:     cfg.Project.Root,
		include:  cfg.Index.Include,
		exclude:  cfg.Index.Exclude,
		debounce: cfg.Index.DirtyCoalesceWindow,
		onDirty:  onDirty,
		pending:  make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start adds recursive watches under the root and begins processing
// fsnotify events. Directories matching an exclude glob are skipped
// entirely, mirroring filepath.SkipDir semantics.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop cancels event processing, closes the underlying fsnotify
// watcher, and waits for the processing goroutine to exit. Events
// still inside the debounce window are dropped at shutdown — the
// project is being unloaded anyway (spec §5's "all queued jobs are
// cancelled" applies one layer up, at the Scheduler).
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()
	return err
}

func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}

		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if w.shouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			idxlog.Warnf("watch: add watch for %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) shouldIgnoreDir(path string) bool {
	rel := w.relSlash(path)
	for _, pattern := range w.exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, rel+"/"); matched {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldProcessPath(path string) bool {
	rel := w.relSlash(path)
	for _, pattern := range w.exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return false
		}
	}
	if len(w.include) == 0 {
		return true
	}
	for _, pattern := range w.include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func (w *Watcher) relSlash(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			idxlog.Warnf("watch: fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !w.shouldIgnoreDir(path) {
			if err := w.fsw.Add(path); err != nil {
				idxlog.Warnf("watch: add watch for new directory %s: %v", path, err)
			}
		}
		return
	}

	if !w.shouldProcessPath(path) {
		return
	}
	w.addPending(path)
}

func (w *Watcher) addPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if w.onDirty != nil {
		w.onDirty(paths)
	}
}
