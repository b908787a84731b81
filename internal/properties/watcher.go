package properties

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultsWatcher reloads the defaults file into a Manager whenever it changes
// on disk. Editors that save by rename are handled by watching the directory.
type DefaultsWatcher struct {
	mu          sync.Mutex
	manager     *Manager
	path        string
	watcher     *fsnotify.Watcher
	logger      *zap.Logger
	debounceDur time.Duration
	pending     bool
	lastEvent   time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	reloads     int
}

// NewDefaultsWatcher creates a watcher for path. Call Start to begin.
func NewDefaultsWatcher(m *Manager, path string, logger *zap.Logger) (*DefaultsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create defaults watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &DefaultsWatcher{
		manager:     m,
		path:        abs,
		watcher:     w,
		logger:      logger,
		debounceDur: 200 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start watches the defaults file's directory. It returns immediately.
func (dw *DefaultsWatcher) Start(ctx context.Context) error {
	dw.mu.Lock()
	if dw.running {
		dw.mu.Unlock()
		return nil
	}
	dw.running = true
	dw.mu.Unlock()

	if err := dw.watcher.Add(filepath.Dir(dw.path)); err != nil {
		dw.mu.Lock()
		dw.running = false
		dw.mu.Unlock()
		return fmt.Errorf("watch %s: %w", filepath.Dir(dw.path), err)
	}
	go dw.run(ctx)
	return nil
}

// Stop ends the watch loop and waits for it to exit. Safe to call more than once.
func (dw *DefaultsWatcher) Stop() {
	dw.mu.Lock()
	wasRunning := dw.running
	dw.running = false
	dw.mu.Unlock()

	if wasRunning {
		close(dw.stopCh)
		<-dw.doneCh
	}
	if err := dw.watcher.Close(); err != nil {
		dw.logger.Warn("close defaults watcher", zap.Error(err))
	}
}

// Reloads reports how many times the defaults were reloaded.
func (dw *DefaultsWatcher) Reloads() int {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return dw.reloads
}

func (dw *DefaultsWatcher) run(ctx context.Context) {
	defer close(dw.doneCh)

	tick := time.NewTicker(dw.debounceDur / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-dw.stopCh:
			return
		case ev, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			dw.handle(ev)
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.logger.Warn("defaults watcher", zap.Error(err))
		case <-tick.C:
			dw.flush()
		}
	}
}

func (dw *DefaultsWatcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != dw.path {
		return
	}
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	dw.mu.Lock()
	dw.pending = true
	dw.lastEvent = time.Now()
	dw.mu.Unlock()
}

func (dw *DefaultsWatcher) flush() {
	dw.mu.Lock()
	if !dw.pending || time.Since(dw.lastEvent) < dw.debounceDur {
		dw.mu.Unlock()
		return
	}
	dw.pending = false
	dw.mu.Unlock()

	changed, err := dw.manager.LoadDefaults(dw.path)
	if err != nil {
		// A half-written file is common mid-save; the next write retries.
		dw.logger.Warn("reload property defaults", zap.String("path", dw.path), zap.Error(err))
		return
	}
	dw.mu.Lock()
	dw.reloads++
	dw.mu.Unlock()
	dw.logger.Info("property defaults reloaded",
		zap.String("path", dw.path), zap.Strings("changed", changed))
}

// WatchDefaults starts a DefaultsWatcher for path. Stop it, or cancel ctx,
// to end the watch.
func (m *Manager) WatchDefaults(ctx context.Context, path string, logger *zap.Logger) (*DefaultsWatcher, error) {
	dw, err := NewDefaultsWatcher(m, path, logger)
	if err != nil {
		return nil, err
	}
	if err := dw.Start(ctx); err != nil {
		_ = dw.watcher.Close()
		return nil, err
	}
	return dw, nil
}
