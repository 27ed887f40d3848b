// Package watch re-validates Markdown files as they change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ppiankov/docgate/internal/worker"
)

// Handler is called with the path of a changed Markdown file
type Handler func(ctx context.Context, path string)

// skipDirs are never watched
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"target":       true,
}

// Watcher debounces file events per path and hands settled paths to a handler
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	limiter  *worker.Limiter
	handler  Handler

	mu      sync.Mutex
	timers  map[string]*time.Timer
	waiting map[string]bool // Paths held back by the per-path interval
	files   map[string]bool // Explicitly watched files; empty means every Markdown file

	handlerMu sync.Mutex
}

// New creates a watcher. A path is handled once it has been quiet for
// debounce. Handling of one path is spaced at least minInterval apart;
// saves that land inside the interval are folded into a single deferred
// run. A zero minInterval disables the cap.
func New(debounce, minInterval time.Duration, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		limiter:  worker.NewLimiter(minInterval, 1),
		handler:  handler,
		timers:   make(map[string]*time.Timer),
		waiting:  make(map[string]bool),
		files:    make(map[string]bool),
	}, nil
}

// Add watches files and directories. Directories are watched recursively;
// a file is watched through its parent directory.
func (w *Watcher) Add(paths ...string) error {
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}

		if !info.IsDir() {
			w.mu.Lock()
			w.files[abs] = true
			w.mu.Unlock()
			if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
				return fmt.Errorf("watch %s: %w", p, err)
			}
			continue
		}

		if err := w.addTree(abs); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// Run processes events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.cancel(path)
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() && !skipDirs[info.Name()] {
				_ = w.addTree(path)
				return
			}
		}
		if w.wants(path) {
			w.schedule(ctx, path)
		}
	}
}

// wants reports whether path is a file this watcher handles
func (w *Watcher) wants(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.files) > 0 {
		return w.files[path]
	}
	return IsMarkdown(path)
}

// schedule (re)starts the quiet-period timer for path
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.fire(ctx, path)
	})
}

// fire waits out the per-path interval and runs the handler. While one
// run for a path is waiting, later runs for it are dropped; the waiting
// run reads the file after the wait and sees their changes.
func (w *Watcher) fire(ctx context.Context, path string) {
	w.mu.Lock()
	delete(w.timers, path)
	if w.waiting[path] {
		w.mu.Unlock()
		return
	}
	w.waiting[path] = true
	w.mu.Unlock()

	err := w.limiter.Wait(ctx, path)

	w.mu.Lock()
	delete(w.waiting, path)
	w.mu.Unlock()

	if err != nil || ctx.Err() != nil {
		return
	}

	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.handler(ctx, path)
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.limiter.Forget(path)
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
	w.mu.Unlock()
	_ = w.fsw.Close()
}

// SkipDir reports whether a directory name is never searched for documents
func SkipDir(name string) bool {
	return skipDirs[name]
}

// IsMarkdown reports whether a path has a Markdown extension
func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdx":
		return true
	}
	return false
}
