// Package watch delivers debounced filesystem change notifications for a
// directory tree.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/sumerian-dev/sumerian/pkg/config"
	"github.com/sumerian-dev/sumerian/pkg/errclass"
	"github.com/sumerian-dev/sumerian/pkg/logging"
	"github.com/sumerian-dev/sumerian/pkg/metrics"
)

// EventType classifies a delivered event.
type EventType string

const (
	EventCreate EventType = "create"
	EventModify EventType = "modify"
	EventRemove EventType = "remove"
)

// Event is one change notification. Events caused by this process's own
// writes are delivered like any other.
type Event struct {
	Type EventType `json:"type"`
	Path string    `json:"path"`
}

// Handler receives events. Calls are serialized.
type Handler func(Event)

// Options tunes a watch. Zero values select the config defaults.
type Options struct {
	Debounce time.Duration
	Settle   time.Duration
	MaxDepth int
	Ignore   []string
	Metrics  *metrics.Registry
}

func (o Options) withDefaults() Options {
	d := config.Default().Watch
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.Settle <= 0 {
		o.Settle = d.Settle
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.Ignore == nil {
		o.Ignore = d.Ignore
	}
	return o
}

// maxSettlePolls bounds how long a file that keeps changing delays its event.
const maxSettlePolls = 20

type watcher struct {
	id      string
	root    string
	opts    Options
	handler Handler
	fsw     *fsnotify.Watcher
	log     *logging.Logger
	metrics *metrics.Registry

	done    chan struct{}
	stopped atomic.Bool
	once    sync.Once

	mu      sync.Mutex
	pending map[string]*time.Timer

	deliverMu sync.Mutex
}

// Start watches dir recursively and calls handler for every change until
// the returned cancel function is called or ctx is done. Cancel is safe
// to call more than once.
//
// Write bursts on one path are coalesced: after Debounce of quiet the file
// is polled every Settle until its size and mtime stop changing, then a
// single modify event is delivered. Watcher errors are logged and the
// watch carries on with whatever directories it still holds.
func Start(ctx context.Context, dir string, opts Options, handler Handler) (func(), error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errclass.NewIOError("watch", dir, err)
	}
	if !info.IsDir() {
		return nil, errclass.NewIOError("watch", dir, fmt.Errorf("not a directory"))
	}

	opts = opts.withDefaults()
	w := &watcher{
		id:      uuid.NewString(),
		root:    filepath.Clean(dir),
		opts:    opts,
		handler: handler,
		metrics: metrics.OrDefault(opts.Metrics),
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}
	w.log = logging.WithFields(logging.Fields{"component": "watch", "watch_id": w.id, "dir": w.root})

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		// Degraded: no notifications, but the caller keeps running.
		w.metrics.WatchErrors.Inc()
		w.log.WarnErr("watcher unavailable", err)
		return func() {}, nil
	}
	w.fsw = fsw
	w.addTree(w.root)

	go w.loop()
	go func() {
		select {
		case <-ctx.Done():
			w.cancel()
		case <-w.done:
		}
	}()

	w.log.Debug("watch started")
	return w.cancel, nil
}

func (w *watcher) cancel() {
	w.once.Do(func() {
		w.stopped.Store(true)
		close(w.done)

		w.mu.Lock()
		for path, t := range w.pending {
			t.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()

		if err := w.fsw.Close(); err != nil {
			w.log.WarnErr("watcher close failed", err)
		}
		w.log.Debug("watch stopped")
	})
}

// addTree registers dir and its subdirectories down to MaxDepth, skipping
// ignored paths. Registration failures are logged per directory.
func (w *watcher) addTree(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.reportError("walk failed", err, path)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && (w.ignored(path) || w.depth(path) > w.opts.MaxDepth) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.reportError("add watch failed", err, path)
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		w.reportError("walk failed", err, dir)
	}
}

func (w *watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.reportError("watcher error", err, w.root)
		}
	}
}

func (w *watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if w.ignored(path) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Lstat(path); err == nil && info.IsDir() && w.depth(path) <= w.opts.MaxDepth {
			w.addTree(path)
		}
		w.emit(Event{Type: EventCreate, Path: path})
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.dropPending(path)
		w.emit(Event{Type: EventRemove, Path: path})
	case ev.Has(fsnotify.Write):
		w.scheduleModify(path)
	}
}

func (w *watcher) scheduleModify(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped.Load() {
		return
	}
	w.armLocked(path)
}

// armLocked starts or extends the debounce timer for path. w.mu must be held.
func (w *watcher) armLocked(path string) {
	if t, ok := w.pending[path]; ok {
		// A timer that already fired but has not claimed the path yet will
		// stat the file after this write, so it covers it.
		if t.Stop() {
			t.Reset(w.opts.Debounce)
		}
		return
	}
	var t *time.Timer
	t = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		w.settle(path)
	})
	w.pending[path] = t
}

func (w *watcher) dropPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// settle polls path until size and mtime hold still, then emits modify.
// A file that disappears meanwhile produces no modify event.
func (w *watcher) settle(path string) {
	prev, err := os.Stat(path)
	if err != nil {
		return
	}
	for i := 0; i < maxSettlePolls; i++ {
		select {
		case <-w.done:
			return
		case <-time.After(w.opts.Settle):
		}
		cur, err := os.Stat(path)
		if err != nil {
			return
		}
		if cur.Size() == prev.Size() && cur.ModTime().Equal(prev.ModTime()) {
			break
		}
		prev = cur
	}
	w.emit(Event{Type: EventModify, Path: path})
}

func (w *watcher) emit(ev Event) {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()
	if w.stopped.Load() {
		return
	}
	w.metrics.WatchEvents.WithLabelValues(string(ev.Type)).Inc()
	w.handler(ev)
}

func (w *watcher) reportError(msg string, err error, path string) {
	if errors.Is(err, fsnotify.ErrClosed) {
		return
	}
	w.metrics.WatchErrors.Inc()
	w.log.WarnErr(msg, err, logging.Fields{"path": path})
}

// depth is the number of path segments between the root and path.
func (w *watcher) depth(path string) int {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

func (w *watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	return Ignored(filepath.ToSlash(rel), w.opts.Ignore)
}

// Ignored reports whether the root-relative slash path rel matches one of
// patterns. Patterns containing a slash match rel or any path below it;
// other patterns match any single segment by name or glob.
func Ignored(rel string, patterns []string) bool {
	segments := strings.Split(rel, "/")
	for _, p := range patterns {
		if strings.Contains(p, "/") {
			p = strings.Trim(p, "/")
			if rel == p || strings.HasPrefix(rel, p+"/") {
				return true
			}
			continue
		}
		for _, seg := range segments {
			if seg == p {
				return true
			}
			if ok, _ := filepath.Match(p, seg); ok {
				return true
			}
		}
	}
	return false
}
