package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tabrown76/Aramark-Scripts/internal/logging"
)

// reloadDebounce coalesces the burst of events an editor save produces.
const reloadDebounce = 200 * time.Millisecond

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	path      string
	base      Config
	watcher   *fsnotify.Watcher
	cancelCtx context.CancelFunc

	mu       sync.Mutex
	onChange func(Config)
	timer    *time.Timer
}

// NewWatcher creates a watcher for the config file at path. Reloads are
// layered over Default() unless SetBase is called.
func NewWatcher(path string) *Watcher {
	return &Watcher{path: filepath.Clean(path), base: Default()}
}

// SetBase sets the config each reload is decoded on top of.
func (w *Watcher) SetBase(c Config) {
	w.mu.Lock()
	w.base = c
	w.mu.Unlock()
}

// OnChange sets the callback invoked with each successfully loaded config.
// Files that fail to parse or validate are logged and skipped.
func (w *Watcher) OnChange(fn func(Config)) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// Start begins watching. The parent directory is watched so that editors
// replacing the file by rename are still seen.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.watcher = watcher

	ctx, cancel := context.WithCancel(ctx)
	w.cancelCtx = cancel
	go w.watchLoop(ctx)
	return nil
}

// Stop stops watching for changes
func (w *Watcher) Stop() {
	if w.cancelCtx != nil {
		w.cancelCtx()
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Errorf("[config] Watch error: %v", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	base := w.base
	w.mu.Unlock()

	c, err := LoadFileOver(base, w.path)
	if err == nil {
		err = c.Validate()
	}
	if err != nil {
		logging.Errorf("[config] Ignoring %s: %v", w.path, err)
		return
	}
	logging.Infof("[config] Reloaded %s", w.path)

	w.mu.Lock()
	fn := w.onChange
	w.mu.Unlock()
	if fn != nil {
		fn(c)
	}
}
