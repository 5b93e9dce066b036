// Package watch monitors a directory of plan files and reports changes.
// Rapid bursts of filesystem events for the same file are coalesced so a
// single save triggers a single re-run.
package watch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType classifies a plan file change.
type EventType string

const (
	// EventChanged means a plan file was created or written.
	EventChanged EventType = "changed"
	// EventRemoved means a plan file was deleted or renamed away.
	EventRemoved EventType = "removed"
)

// Event is a debounced plan file change.
type Event struct {
	Type EventType
	Path string
}

// DefaultDebounce coalesces editor save bursts.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory for plan file changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	debounce time.Duration
	events   chan Event

	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	watching bool
}

// New creates a watcher for the given directory. Only .yaml and .yml files
// produce events.
func New(dir string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fsw:      fsw,
		dir:      dir,
		debounce: debounce,
		events:   make(chan Event, 64),
	}, nil
}

// Start begins watching. The returned channel closes when Stop is called
// or the context ends.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watching {
		return w.events, nil
	}

	if err := w.fsw.Add(w.dir); err != nil {
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.watching = true
	go w.loop()

	return w.events, nil
}

// Stop stops watching and closes the event channel.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.watching {
		return nil
	}
	w.cancel()
	w.watching = false
	return w.fsw.Close()
}

// loop drains fsnotify events, debouncing per path.
func (w *Watcher) loop() {
	defer close(w.events)

	pending := make(map[string]EventType)
	var pendingMu sync.Mutex
	var timer *time.Timer

	flush := func() {
		pendingMu.Lock()
		batch := pending
		pending = make(map[string]EventType)
		pendingMu.Unlock()

		for path, typ := range batch {
			select {
			case w.events <- Event{Type: typ, Path: path}:
			case <-w.ctx.Done():
				return
			default:
				log.Printf("[watch] event channel full, dropping %s %s", typ, path)
			}
		}
	}

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			typ, relevant := classify(ev)
			if !relevant {
				continue
			}

			pendingMu.Lock()
			pending[ev.Name] = typ
			pendingMu.Unlock()

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, flush)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[watch] %s: %v", w.dir, err)
		}
	}
}

// classify maps an fsnotify op to an event type, filtering out non-plan
// files and chmod noise.
func classify(ev fsnotify.Event) (EventType, bool) {
	if !isPlanFile(ev.Name) {
		return "", false
	}
	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		return EventChanged, true
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return EventRemoved, true
	default:
		return "", false
	}
}

func isPlanFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
