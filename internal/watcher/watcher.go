// Package watcher implements pankat's file-system watcher: a recursive,
// debounced source-event stream over the input directory feeding the
// compile pipeline.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
)

// EventKind classifies a debounced source event.
type EventKind int

const (
	Create EventKind = iota
	Modify
	Remove
)

func (k EventKind) String() string {
	switch k {
	case Create:
		return "create"
	case Modify:
		return "modify"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is one coalesced filesystem event, path relative to the input root.
type Event struct {
	Kind EventKind
	Path string
}

// debounceWindow is the per-path coalescing window: rapid-fire events for
// the same path (e.g. an editor's write-then-rename save) collapse into one.
const debounceWindow = 100 * time.Millisecond

// Watcher recursively watches an input directory for .mdwn changes and
// emits a debounced Event stream.
type Watcher struct {
	root   string
	fsw    *fsnotify.Watcher
	events chan Event
	logger *slog.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]EventKind
}

// New creates a Watcher rooted at root, adding every existing subdirectory
// to the underlying fsnotify watch recursively.
func New(root string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, perrors.WrapError(err, perrors.CategoryWatcher, "creating fsnotify watcher").Build()
	}

	w := &Watcher{
		root:    root,
		fsw:     fsw,
		events:  make(chan Event, 64),
		logger:  logger,
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]EventKind),
	}

	if err := w.addDirsRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addDirsRecursive(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		return perrors.WrapError(err, perrors.CategoryWatcher, "adding directories to watch").
			WithContext("root", root).Build()
	}
	return nil
}

// Events returns the channel of debounced, .mdwn-filtered events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run drains the underlying fsnotify event and error channels until ctx is
// canceled or Close is called. It is intended to run in its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.events)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleRawEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// Close stops the underlying fsnotify watcher; any debounce timers still
// pending are stopped without firing.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) handleRawEvent(ev fsnotify.Event) {
	if shouldIgnore(ev.Name) {
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, err := statIsDir(ev.Name); err == nil && info {
			if err := w.fsw.Add(ev.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
			}
			return
		}
	}

	if !strings.HasSuffix(ev.Name, ".mdwn") {
		return
	}

	kind, ok := classify(ev.Op)
	if !ok {
		return
	}

	relPath, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		relPath = ev.Name
	}
	w.debounce(relPath, kind)
}

func classify(op fsnotify.Op) (EventKind, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return Create, true
	case op&fsnotify.Remove != 0, op&fsnotify.Rename != 0:
		return Remove, true
	case op&fsnotify.Write != 0:
		return Modify, true
	default:
		return 0, false
	}
}

// debounce coalesces rapid duplicate events for the same path into one,
// firing after debounceWindow with the most recently seen kind.
func (w *Watcher) debounce(relPath string, kind EventKind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[relPath] = kind
	if t, exists := w.timers[relPath]; exists {
		t.Reset(debounceWindow)
		return
	}

	w.timers[relPath] = time.AfterFunc(debounceWindow, func() {
		w.mu.Lock()
		k := w.pending[relPath]
		delete(w.pending, relPath)
		delete(w.timers, relPath)
		w.mu.Unlock()

		w.events <- Event{Kind: k, Path: relPath}
	})
}

func shouldIgnore(name string) bool {
	base := filepath.Base(name)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}

func statIsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
