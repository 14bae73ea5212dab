package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"spreadnet/internal/logging"
)

// Handler receives the outcome of every document the watcher processes.
// It runs on the watcher goroutine and must not block.
type Handler func(path string, res *Result, err error)

// Watcher processes documents that appear in or change under a directory.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	proc        *Processor
	dir         string
	ext         string
	handler     Handler
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stopped     bool
	stats       WatcherStats
}

// WatcherStats counts watcher activity.
type WatcherStats struct {
	Events        int
	Processed     int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long a file must stay quiet before it is processed.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounceDur = d }
}

// WithExtension restricts processing to files with ext (".txt" by default).
func WithExtension(ext string) WatcherOption {
	return func(w *Watcher) { w.ext = ext }
}

// NewWatcher watches dir and hands each settled file to p.
func NewWatcher(dir string, p *Processor, h Handler, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:     fw,
		proc:        p,
		dir:         dir,
		ext:         ".txt",
		handler:     h,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// ErrWatcherStopped is returned when starting a watcher after Stop.
var ErrWatcherStopped = errors.New("engine: watcher stopped")

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrWatcherStopped
	}
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	err := os.MkdirAll(w.dir, 0755)
	if err == nil {
		err = w.watcher.Add(w.dir)
	}
	if err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Engine("watcher: watching %s for *%s", w.dir, w.ext)

	go w.run(ctx)
	return nil
}

// Stop ends the event loop, waits for it to return and releases the
// underlying watcher. It is safe to call without Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	w.stopped = true
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.EngineError("watcher: close: %v", err)
	}
	logging.Engine("watcher: stopped")
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounceDur / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.EngineDebug("watcher: context done")
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.EngineError("watcher: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if filepath.Ext(ev.Name) != w.ext {
		return
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	logging.EngineDebug("watcher: %s %s", ev.Op, ev.Name)

	w.mu.Lock()
	now := time.Now()
	w.stats.Events++
	w.stats.LastEventPath = ev.Name
	w.stats.LastEventTime = now
	w.debounceMap[ev.Name] = now
	w.mu.Unlock()
}

func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			ready = append(ready, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()
	sort.Strings(ready)

	for _, path := range ready {
		w.processFile(ctx, path)
	}
}

func (w *Watcher) processFile(ctx context.Context, path string) {
	docs, err := ReadDocuments([]string{path})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		w.finish(path, nil, err)
		return
	}
	res, err := w.proc.Process(ctx, docs[0])
	w.finish(path, res, err)
}

func (w *Watcher) finish(path string, res *Result, err error) {
	w.mu.Lock()
	if err != nil {
		w.stats.Errors++
	} else {
		w.stats.Processed++
	}
	w.mu.Unlock()

	if err != nil {
		logging.EngineError("watcher: %s: %v", path, err)
	}
	if w.handler != nil {
		w.handler(path, res, err)
	}
}
