// Package watch reprocesses saved pages when they appear or change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/fsnotify.v1"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to
// settle before handling it.
const DefaultDebounce = 500 * time.Millisecond

// Handler processes a batch of changed files, sorted by path.
type Handler func(ctx context.Context, paths []string) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the settle delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithExtension limits events to files with ext, ".html" by default.
func WithExtension(ext string) Option {
	return func(w *Watcher) { w.ext = ext }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// Watcher watches one directory.
type Watcher struct {
	dir      string
	ext      string
	debounce time.Duration
	handle   Handler
	logger   *zap.Logger
}

// New creates a Watcher calling handle for changed files in dir.
func New(dir string, handle Handler, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		ext:      ".html",
		debounce: DefaultDebounce,
		handle:   handle,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Handler errors are logged and do not
// stop the watcher. Run returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", w.dir, err)
	}
	w.logger.Info("watching for page changes", zap.String("dir", w.dir))

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if len(pending) == 0 {
				timer.Reset(w.debounce)
			}
			pending[event.Name] = struct{}{}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			paths := drain(pending)
			w.logger.Debug("handling changed pages", zap.Strings("paths", paths))
			if err := w.handle(ctx, paths); err != nil {
				w.logger.Warn("handling changed pages failed", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), w.ext) {
		return false
	}
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		return true
	case event.Op&fsnotify.Write == fsnotify.Write:
		return true
	case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
		w.logger.Debug("page removed; output kept", zap.String("path", event.Name))
	}
	return false
}

func drain(pending map[string]struct{}) []string {
	paths := make([]string, 0, len(pending))
	for path := range pending {
		paths = append(paths, path)
		delete(pending, path)
	}
	sort.Strings(paths)
	return paths
}
