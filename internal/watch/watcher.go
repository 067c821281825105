// Package watch re-runs work when a followed file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wonny/fibivi/pkg/logger"
)

// DefaultDebounce collapses the burst of events a single save produces
const DefaultDebounce = 200 * time.Millisecond

// FileWatcher calls onChange after the file at path is written, created or
// renamed into place. The parent directory is watched so editors that save
// via rename keep working.
type FileWatcher struct {
	path     string
	debounce time.Duration
	onChange func(ctx context.Context)
	logger   *logger.Logger
}

// New creates a watcher for path
func New(path string, onChange func(ctx context.Context), log *logger.Logger) *FileWatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &FileWatcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   log,
	}
}

// WithDebounce overrides the debounce interval
func (w *FileWatcher) WithDebounce(d time.Duration) *FileWatcher {
	w.debounce = d
	return w
}

// Run blocks until ctx is cancelled
func (w *FileWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.WithField("path", w.path).Info("Following file")

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != w.path {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.logger.WithField("path", w.path).Debug("File changed")
			w.onChange(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Watcher error")
		}
	}
}
