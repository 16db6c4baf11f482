// Package watch observes the store file and turns external writes into
// force-refresh signals, the analog of another tab mutating shared storage.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okatsu/habitask/internal/bus"
	"github.com/okatsu/habitask/internal/domain"
)

const debounceDelay = 200 * time.Millisecond

// Watcher emits a Refresh on the bus whenever the store file changes on
// disk. Bursts of writes collapse into a single refresh.
type Watcher struct {
	fs      *fsnotify.Watcher
	bus     *bus.Bus
	sched   domain.Scheduler
	log     domain.Logger
	path    string
	cancel  func()
	done    chan struct{}
	mu      sync.Mutex
	started bool
}

// New creates a Watcher for the given store file path.
func New(path string, b *bus.Bus, sched domain.Scheduler, log domain.Logger) *Watcher {
	return &Watcher{
		bus:   b,
		sched: sched,
		log:   log,
		path:  path,
		done:  make(chan struct{}),
	}
}

// Start begins watching the store file's directory. The directory is
// watched rather than the file itself because atomic rename writes replace
// the inode.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(w.path)); err != nil {
		_ = fs.Close()
		return fmt.Errorf("watch store directory: %w", err)
	}

	w.fs = fs
	w.started = true
	go w.loop()
	return nil
}

// Close stops the watcher. The lock is released before waiting for the loop
// to drain: the loop's debounce path takes the same lock, so holding it here
// would deadlock against an event arriving during shutdown.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	fs := w.fs
	w.mu.Unlock()

	err := fs.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	base := filepath.Base(w.path)

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.bump()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.Warn("watch", fmt.Sprintf("watcher error: %v", err))
			}
		}
	}
}

// bump restarts the debounce window; the refresh fires once the file has
// been quiet for the full delay.
func (w *Watcher) bump() {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.cancel = w.sched.AfterFunc(debounceDelay, func() {
		w.bus.Emit(domain.Refresh{})
	})
	w.mu.Unlock()
}
