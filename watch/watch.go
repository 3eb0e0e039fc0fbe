// Package watch recompiles the corpus when script files change and swaps
// the new index into a running engine.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/nathoo/parley/engine/state"
)

// LoadFunc builds a fresh index, typically by calling loader.Load.
type LoadFunc func() (*state.Index, error)

// Swapper receives successfully compiled indexes. *engine.Engine
// implements it.
type Swapper interface {
	Swap(idx *state.Index) *state.Index
}

// Stats tracks reload activity.
type Stats struct {
	Events     int
	Reloads    int
	Failures   int
	LastError  string
	LastReload time.Time
}

// Reloader watches language directories and hot-swaps the index after
// changes settle. A failed compile leaves the current index in place.
type Reloader struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dirs     []string
	load     LoadFunc
	target   Swapper
	log      *zap.Logger
	debounce time.Duration
	notify   func(error)

	pending time.Time // zero when no change is waiting
	stats   Stats
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reloader) { r.log = l }
}

// WithDebounce sets how long the directories must stay quiet before a
// reload runs.
func WithDebounce(d time.Duration) Option {
	return func(r *Reloader) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithNotify registers fn to be called after every reload attempt with
// its error (nil on success).
func WithNotify(fn func(error)) Option {
	return func(r *Reloader) { r.notify = fn }
}

// New creates a Reloader for dirs. It does not start watching.
func New(dirs []string, load LoadFunc, target Swapper, opts ...Option) (*Reloader, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	r := &Reloader{
		watcher:  w,
		dirs:     dirs,
		load:     load,
		target:   target,
		log:      zap.NewNop(),
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Start begins watching. It is non-blocking; events are handled in a
// goroutine until Stop is called or ctx is cancelled.
func (r *Reloader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.mu.Unlock()

	for _, dir := range r.dirs {
		if err := r.watcher.Add(dir); err != nil {
			r.log.Warn("cannot watch language directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		r.log.Info("watching language directory", zap.String("dir", dir))
	}

	go r.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (r *Reloader) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		r.watcher.Close()
		return
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh

	if err := r.watcher.Close(); err != nil {
		r.log.Error("closing watcher", zap.Error(err))
	}
}

// Reload compiles and swaps immediately, bypassing the debounce.
func (r *Reloader) Reload() error {
	idx, err := r.load()

	r.mu.Lock()
	if err != nil {
		r.stats.Failures++
		r.stats.LastError = err.Error()
	} else {
		r.stats.Reloads++
		r.stats.LastError = ""
		r.stats.LastReload = time.Now()
	}
	r.mu.Unlock()

	if err != nil {
		r.log.Error("reload failed, keeping current index", zap.Error(err))
	} else {
		r.target.Swap(idx)
	}
	if r.notify != nil {
		r.notify(err)
	}
	return err
}

// Stats returns a snapshot of reload activity.
func (r *Reloader) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Reloader) run(ctx context.Context) {
	defer close(r.doneCh)

	tick := r.debounce / 4
	if tick <= 0 || tick > 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-r.stopCh:
			return

		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.handleEvent(event)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Error("watcher error", zap.Error(err))

		case <-ticker.C:
			r.mu.Lock()
			due := !r.pending.IsZero() && time.Since(r.pending) >= r.debounce
			if due {
				r.pending = time.Time{}
			}
			r.mu.Unlock()
			if due {
				r.Reload()
			}
		}
	}
}

func (r *Reloader) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// A newly created custom/ directory joins the watch set.
	if event.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if err := r.watcher.Add(event.Name); err == nil {
				r.log.Info("watching language directory", zap.String("dir", event.Name))
			}
			return
		}
	}

	switch filepath.Ext(event.Name) {
	case ".rive", ".lua":
	default:
		return
	}

	r.log.Debug("script changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
	r.mu.Lock()
	r.stats.Events++
	r.pending = time.Now()
	r.mu.Unlock()
}
