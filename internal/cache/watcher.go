package cache

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"superclaude/internal/logging"
)

// Watcher invalidates cache entries when their backing rule files change
// on disk, so the next read reparses. Every relevant event drops the
// entry; rapid editor saves are only collapsed in the log.
type Watcher struct {
	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	cache    *Cache
	debounce map[string]time.Time
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for debugging and tests.
type WatcherStats struct {
	Events        int
	Invalidations int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// NewWatcher creates a watcher for the cache's rules directory.
func NewWatcher(c *Cache) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fsw,
		cache:    c,
		debounce: make(map[string]time.Time),
		interval: 250 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; events are handled in a goroutine
// until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.cache.Dir()); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Get(logging.CategoryWatcher).Info("watching rules directory: %s", w.cache.Dir())

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	log := logging.Get(logging.CategoryWatcher)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			log.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := tableName(event.Name)
	if name == "" {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	now := time.Now()
	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = now
	last, seen := w.debounce[name]
	w.debounce[name] = now
	w.stats.Invalidations++
	w.mu.Unlock()

	// Every event drops the entry; a reload between two rapid writes must
	// not pin a stale table. The debounce window only quiets the log.
	w.cache.Invalidate(name)
	if !seen || now.Sub(last) >= w.interval {
		logging.Get(logging.CategoryWatcher).Debug("source change for table %q (%s)", name, event.Op)
	}
}

// tableName maps a watched file path to its table name, or "" when the
// file is not a rule table.
func tableName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext != ".yml" && ext != ".yaml" {
		return ""
	}
	return strings.TrimSuffix(base, ext)
}
