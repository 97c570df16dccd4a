package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/studywise/pkg/core"
)

// DebounceDelay merges bursts of writes to the same document into one event.
const DebounceDelay = 50 * time.Millisecond

// Watch streams changes to documents whose ID matches pattern ("" or "*" matches all).
// The channel is closed once ctx is cancelled and pending events are flushed.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := r.addDirs(watcher, r.Path); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	if !r.config.Gitless {
		// index.lock tells us when git is rewriting the tree.
		_ = watcher.Add(filepath.Join(r.Path, ".git"))
	}

	// Seed the index so Reconcile has a baseline.
	if _, err := r.List(ctx); err != nil {
		r.config.Logger.Debug("initial scan failed", "error", err)
	}

	events := make(chan core.Event, 100)
	w := &watchWorker{
		repo:      r,
		pattern:   pattern,
		events:    events,
		watcher:   watcher,
		debouncer: newDebouncer(DebounceDelay),
	}
	r.setWatcherActive(true)

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(r.reportError))
	return events, nil
}

func (r *Repository) reportError(err error) {
	if r.config.ErrorHandler != nil {
		r.config.ErrorHandler(err)
		return
	}
	r.config.Logger.Error("watcher failed", "error", err)
}

// addDirs registers root and every non-private directory below it.
func (r *Repository) addDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != r.Path && r.isPrivateDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

type watchWorker struct {
	repo      *Repository
	pattern   string
	events    chan core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	gitLocked bool
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	logger := w.repo.config.Logger
	defer close(w.events)
	defer w.repo.setWatcherActive(false)
	defer w.watcher.Close()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("watcher panic: %v", rec)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			}
		}
	}()

	err = w.loop(ctx)
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			if w.handleGitLock(ctx, event) || w.gitLocked {
				continue
			}
			w.handle(ctx, event)

		case werr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.repo.reportError(werr)
		}
	}
}

// handleGitLock pauses event delivery while .git/index.lock exists and
// reconciles once git releases it.
func (w *watchWorker) handleGitLock(ctx context.Context, event fsnotify.Event) bool {
	if filepath.Base(event.Name) != "index.lock" || filepath.Base(filepath.Dir(event.Name)) != ".git" {
		return false
	}
	logger := w.repo.config.Logger
	switch {
	case event.Has(fsnotify.Create):
		w.gitLocked = true
		logger.Debug("git operation detected, pausing watcher")
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.gitLocked = false
		logger.Debug("git operation finished, reconciling")
		lifecycle.Go(ctx, func(ctx context.Context) error {
			changes, err := w.repo.Reconcile(ctx)
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}
			for _, e := range changes {
				if w.matches(e.ID, e.ID) {
					w.send(ctx, e)
				}
			}
			return nil
		}, lifecycle.WithErrorHandler(w.repo.reportError))
	}
	return true
}

func (w *watchWorker) handle(ctx context.Context, event fsnotify.Event) {
	w.repo.config.Logger.Debug("fs event", "op", event.Op.String(), "name", event.Name)

	rel, err := filepath.Rel(w.repo.Path, event.Name)
	if err != nil {
		return
	}
	relPath := filepath.ToSlash(rel)
	first := strings.SplitN(relPath, "/", 2)[0]
	if w.repo.isPrivateDir(first) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.repo.addDirs(w.watcher, event.Name); err != nil {
				w.repo.reportError(err)
			}
			return
		}
	}

	if !w.repo.isDocumentFile(relPath) {
		return
	}
	id := idFromPath(relPath)
	if !w.matches(id, relPath) {
		return
	}

	var typ core.EventType
	switch {
	case event.Has(fsnotify.Create):
		typ = core.EventCreate
	case event.Has(fsnotify.Write):
		typ = core.EventModify
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		typ = core.EventDelete
	default:
		return
	}
	w.send(ctx, core.Event{Type: typ, ID: id, Timestamp: time.Now().Unix()})
}

func (w *watchWorker) matches(id, relPath string) bool {
	if w.pattern == "" || w.pattern == "*" || w.pattern == "**" {
		return true
	}
	if ok, _ := doublestar.Match(w.pattern, id); ok {
		return true
	}
	ok, _ := doublestar.Match(w.pattern, relPath)
	return ok
}

func (w *watchWorker) send(ctx context.Context, e core.Event) {
	w.debouncer.add(e, func(e core.Event) {
		// The channel may close under a delivery that outlived stopAndWait.
		defer func() { _ = recover() }()
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

// debouncer holds the latest event per document until it has been quiet for delay.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]core.Event
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]core.Event),
	}
}

func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if prev, ok := d.pending[e.ID]; ok {
		e = mergeEvents(prev, e)
	}
	d.pending[e.ID] = e

	if t, ok := d.timers[e.ID]; ok {
		// A timer that already fired is about to read pending, which now holds e.
		if t.Stop() {
			t.Reset(d.delay)
		}
		return
	}

	id := e.ID
	d.wg.Add(1)
	d.timers[id] = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		ev, ok := d.pending[id]
		delete(d.pending, id)
		delete(d.timers, id)
		d.mu.Unlock()
		if ok {
			emit(ev)
		}
	})
}

// stopAndWait drops pending events and waits for in-flight deliveries.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for id, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
			delete(d.timers, id)
			delete(d.pending, id)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

// mergeEvents folds a burst into one event: a file created then written is
// still a creation, anything else takes the latest type.
func mergeEvents(prev, next core.Event) core.Event {
	if prev.Type == core.EventCreate && next.Type == core.EventModify {
		next.Type = core.EventCreate
	}
	if prev.Type == core.EventDelete && next.Type == core.EventCreate {
		next.Type = core.EventModify
	}
	return next
}
