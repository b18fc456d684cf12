package resolution

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits after the last change
// before reloading, so editors that write in several steps reload once.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a Store whenever its backing file changes on disk.
//
// The parent directory is watched rather than the file itself, because the
// Store (and most editors) replace the file by renaming a temp file over it.
type Watcher struct {
	store    *Store
	logger   *zap.Logger
	debounce time.Duration
	onReload func(error)
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithReloadHook registers fn to be called after every reload attempt with
// its result.
func WithReloadHook(fn func(error)) WatchOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher creates a Watcher for store.
func NewWatcher(store *Store, logger *zap.Logger, opts ...WatchOption) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		store:    store,
		logger:   logger,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. It returns nil on cancellation and an
// error only if the watch cannot be set up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	path, err := filepath.Abs(w.store.Path())
	if err != nil {
		return fmt.Errorf("resolve %s: %w", w.store.Path(), err)
	}
	dir, target := filepath.Split(path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching resolutions file", zap.String("path", path))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("resolutions file changed", zap.String("op", ev.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			err := w.store.Reload()
			if err == nil {
				w.logger.Info("resolutions reloaded from disk", zap.Int("count", w.store.Len()))
			}
			if w.onReload != nil {
				w.onReload(err)
			}
		}
	}
}
