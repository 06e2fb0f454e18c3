// Package watcher notifies when the store file changes on disk, so a running
// board can pick up sounds recorded by another instance.
package watcher

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/reesdraminski/soundboard/log"
)

const DefaultDebounce = 200 * time.Millisecond

type Config struct {
	// Path is the store file. Sibling files sharing its name as a prefix
	// (sqlite -wal and -shm journals) count as changes too.
	Path        string
	DebounceDur time.Duration
}

type Watcher struct {
	cfg     Config
	fsw     *fsnotify.Watcher
	changes chan struct{}

	mu      sync.Mutex
	started bool
	done    chan struct{}
	stopped chan struct{}
}

func New(cfg Config) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, errors.New("watcher: empty path")
	}
	if cfg.DebounceDur <= 0 {
		cfg.DebounceDur = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	return &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// Changes delivers at most one pending notification per debounce window.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Start watches the directory holding Path; the file itself is replaced by
// rename on every write, which would drop a watch on the file.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return errors.New("watcher: already started")
	}
	if err := w.fsw.Add(filepath.Dir(w.cfg.Path)); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	w.started = true
	go w.loop()
	return nil
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.started = false
	w.mu.Unlock()

	select {
	case <-w.done:
	default:
		close(w.done)
	}
	err := w.fsw.Close()
	if started {
		<-w.stopped
	}
	return err
}

func (w *Watcher) relevant(name string) bool {
	base := filepath.Base(w.cfg.Path)
	got := filepath.Base(name)
	return got == base || strings.HasPrefix(got, base+"-")
}

func (w *Watcher) loop() {
	defer close(w.stopped)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev.Name) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.cfg.DebounceDur)
			} else {
				timer.Reset(w.cfg.DebounceDur)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("watcher error: %v", err)

		case <-fire:
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}
