package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is the quiet period after a file event before reloading,
// so editors that write-then-rename do not trigger reload storms.
const watchDebounce = 250 * time.Millisecond

// Watcher observes the configuration file and calls back with the freshly
// loaded configuration on every change. The primary consumer retunes the
// process log level through a slog.LevelVar.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	pending *time.Timer
}

// NewWatcher creates a watcher for the given configuration file.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the directory rather than the file: rename-on-save replaces
	// the inode and would silently detach a file watch.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(path), err)
	}

	return &Watcher{
		path:    path,
		watcher: fw,
		logger:  slog.Default().With("component", "config.watcher"),
	}, nil
}

// Watch blocks until ctx is cancelled, invoking onReload with the new
// configuration after each debounced change to the watched file. Reload
// failures are logged and the previous configuration stays in effect.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config)) error {
	w.logger.Info("config watcher started", "path", w.path)

	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload(onReload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// scheduleReload debounces rapid event bursts into one reload.
func (w *Watcher) scheduleReload(onReload func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}

	w.pending = time.AfterFunc(watchDebounce, func() {
		cfg, err := Load(w.path)
		if err != nil {
			w.logger.Error("config reload failed", "path", w.path, "error", err)
			return
		}

		w.logger.Info("config reloaded", "path", w.path, "log_level", cfg.Logging.Level)
		onReload(cfg)
	})
}
