// pattern: Imperative Shell

// Package watch re-runs a callback when the workspace configuration changes.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"reposync/internal/logging"
)

const (
	defaultDebounce = 500 * time.Millisecond
	pollInterval    = 2 * time.Second
)

// Watcher reports changes of a single file. It watches the parent
// directory so the file may be created, replaced or saved atomically.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *logging.ScopedLogger
	watcher  *fsnotify.Watcher

	lastMod  time.Time
	lastSize int64
}

// New creates a Watcher for path. Changes closer together than debounce
// are coalesced; zero means 500ms.
func New(path string, debounce time.Duration, logger *logging.ScopedLogger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		logger:   logger,
		watcher:  watcher,
	}
	w.lastMod, w.lastSize = w.stat()
	return w, nil
}

// Run calls onChange after every settled change until ctx is cancelled.
// onChange runs on the watch goroutine; changes during a call are
// coalesced into one further call.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context)) error {
	defer func() { _ = w.watcher.Close() }()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	w.logger.Info("watching configuration", "path", w.path)

	// Polling safeguard for filesystems that drop events.
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false
	schedule := func() {
		timer.Reset(w.debounce)
		pending = true
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				w.logger.Debug("configuration event", "op", event.Op.String())
				schedule()
			}

		case <-ticker.C:
			if w.changedOnDisk() && !pending {
				schedule()
			}

		case <-timer.C:
			pending = false
			w.lastMod, w.lastSize = w.stat()
			w.logger.Info("configuration changed, syncing again", "path", w.path)
			onChange(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) stat() (time.Time, int64) {
	info, err := os.Stat(w.path)
	if err != nil {
		return time.Time{}, -1
	}
	return info.ModTime(), info.Size()
}

func (w *Watcher) changedOnDisk() bool {
	mod, size := w.stat()
	return !mod.Equal(w.lastMod) || size != w.lastSize
}
