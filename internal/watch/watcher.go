// Package watch triggers refreshes when skill directories change on disk.
// Change events are coalesced through a debounce timer so bulk external
// modification produces one refresh, not a storm.
package watch

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the window over which change events are coalesced.
const DefaultDebounce = 500 * time.Millisecond

// Watcher debounces filesystem events into refresh callbacks.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange func(ctx context.Context)

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// New creates a Watcher over the given directories. Directories that do not
// exist yet are skipped. onChange runs after each debounced burst; it is the
// callback's job to guard against overlapping refreshes.
func New(dirs []string, debounce time.Duration, onChange func(ctx context.Context)) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Run consumes events until the context is cancelled or the watcher is
// closed. Blocking; callers run it on its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return
		case <-w.done:
			w.stopTimer()
			return
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.bump(ctx)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next event still counts.
		}
	}
}

// bump restarts the debounce timer. The callback fires only once the event
// burst has been quiet for the full window.
func (w *Watcher) bump(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.onChange(ctx)
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	return w.fsw.Close()
}
