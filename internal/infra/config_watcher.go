package infra

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reloads the config file between cycles. An fsnotify watch on
// the config directory only marks the file dirty; the reload itself happens
// in Current, so a change takes effect on the next tick. A broken file keeps
// the last good configuration.
type ConfigWatcher struct {
	path    string
	mu      sync.Mutex
	cfg     *Config
	modTime time.Time
	dirty   atomic.Bool
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewConfigWatcher loads the file once. A failure here is fatal for the caller.
// If the file system watch cannot be installed, changes are still detected
// through the file's modification time.
func NewConfigWatcher(path string) (*ConfigWatcher, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	w := &ConfigWatcher{path: path, cfg: cfg}
	if info, err := os.Stat(path); err == nil {
		w.modTime = info.ModTime()
	}
	if err := w.watch(); err != nil {
		slog.Warn("⚠️ Config file watch unavailable, falling back to modification time",
			slog.String("path", path), slog.Any("error", err))
	}
	return w, nil
}

// NewStaticConfig wraps a fixed configuration, used by one-shot commands and tests.
func NewStaticConfig(cfg *Config) *ConfigWatcher {
	return &ConfigWatcher{cfg: cfg}
}

func (w *ConfigWatcher) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors replace the file by rename, so the directory is watched.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher
	w.done = make(chan struct{})
	go w.watchLoop(watcher)
	return nil
}

func (w *ConfigWatcher) watchLoop(watcher *fsnotify.Watcher) {
	defer close(w.done)
	for {
		select {
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if w.isConfigEvent(evt) {
				w.dirty.Store(true)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("⚠️ Config watcher error", slog.Any("error", err))
		}
	}
}

func (w *ConfigWatcher) isConfigEvent(evt fsnotify.Event) bool {
	if filepath.Clean(evt.Name) != w.path {
		return false
	}
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// Current returns the latest configuration, reloading it first if the file changed.
func (w *ConfigWatcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.path == "" {
		return w.cfg
	}

	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("⚠️ Config file unavailable, keeping previous configuration",
			slog.String("path", w.path), slog.Any("error", err))
		return w.cfg
	}
	// Any mtime movement counts, backwards included (cp -p, checkouts).
	changed := w.dirty.Swap(false) || !info.ModTime().Equal(w.modTime)
	if !changed {
		return w.cfg
	}

	cfg, err := LoadConfig(w.path)
	// Remember the mtime either way so a broken file is not re-parsed every tick.
	w.modTime = info.ModTime()
	if err != nil {
		slog.Error("❌ Config reload failed, keeping previous configuration",
			slog.String("path", w.path), slog.Any("error", err))
		return w.cfg
	}

	w.cfg = cfg
	slog.Info("🔄 Configuration reloaded",
		slog.String("path", w.path),
		slog.Int("assets", len(cfg.EnabledAssets())),
		slog.Duration("interval", cfg.CycleInterval()),
		slog.String("mode", cfg.Trading.Mode),
	)
	return w.cfg
}

// CycleInterval returns the interval of the current configuration.
func (w *ConfigWatcher) CycleInterval() time.Duration {
	return w.Current().CycleInterval()
}

// Close stops the file watch.
func (w *ConfigWatcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	<-w.done
	return err
}
