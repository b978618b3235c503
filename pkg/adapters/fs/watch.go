package fs

import (
	"context"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch of changes is reported.
const DefaultDebounce = 500 * time.Millisecond

// WatchConfig holds the configuration for a Watcher.
type WatchConfig struct {
	Root      string
	Debounce  time.Duration
	Ignore    []string
	SystemDir string
	Logger    *slog.Logger
	// ErrorHandler receives fsnotify errors and panics raised by the
	// change callback. Errors are logged when it is nil.
	ErrorHandler func(error)
}

// ChangeFunc receives the sorted, slash separated paths that changed during
// one debounce window. Calls never overlap.
type ChangeFunc func(ctx context.Context, paths []string)

// Watcher reports changes under a directory tree. It is a lifecycle worker
// and may be run under a supervisor.
type Watcher struct {
	*worker.BaseWorker
	config   WatchConfig
	log      *slog.Logger
	onChange ChangeFunc

	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc

	callMu  sync.Mutex
	mu      sync.RWMutex
	active  bool
	batches int
}

// NewWatcher creates a Watcher that calls onChange for every debounced
// batch of changes.
func NewWatcher(config WatchConfig, onChange ChangeFunc) *Watcher {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	log := config.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		config:     config,
		log:        log,
		onChange:   onChange,
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.addTree(watcher, w.config.Root); err != nil {
		_ = watcher.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.watcher = watcher
	w.debouncer = newDebouncer(w.config.Debounce, func(paths []string) {
		w.dispatch(runCtx, paths)
	})
	w.setActive(true)

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *Watcher) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *Watcher) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

// Active reports whether the event loop is running.
func (w *Watcher) Active() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.active
}

// Batches returns the number of change batches delivered so far.
func (w *Watcher) Batches() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.batches
}

func (w *Watcher) setActive(active bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = active
}

// addTree registers dir and every non-ignored directory below it.
func (w *Watcher) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			w.log.Warn("not watching unreadable directory", "path", p, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.config.Root && w.ignored(p) {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// rel returns the slash separated path of name under Root.
func (w *Watcher) rel(name string) (string, bool) {
	r, err := filepath.Rel(w.config.Root, name)
	if err != nil || r == "." || strings.HasPrefix(r, "..") {
		return "", false
	}
	return filepath.ToSlash(r), true
}

func (w *Watcher) ignored(name string) bool {
	r, ok := w.rel(name)
	if !ok {
		return true
	}
	if r == w.config.SystemDir || strings.HasPrefix(r, w.config.SystemDir+"/") {
		return true
	}
	if strings.HasPrefix(filepath.Base(name), TempFilePrefix) {
		return true
	}
	return matchAny(w.config.Ignore, r)
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.log.Debug("event received", "name", event.Name, "op", event.Op.String())

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if w.ignored(event.Name) {
		return
	}
	if event.Has(fsnotify.Create) {
		if err := w.addTree(w.watcher, event.Name); err != nil {
			w.log.Debug("not a watchable directory", "path", event.Name, "error", err)
		}
	}

	r, _ := w.rel(event.Name)
	w.debouncer.add(r)
}

// dispatch runs the change callback on a tracked goroutine.
func (w *Watcher) dispatch(ctx context.Context, paths []string) {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		w.callMu.Lock()
		defer w.callMu.Unlock()
		if ctx.Err() != nil {
			return nil
		}

		w.mu.Lock()
		w.batches++
		w.mu.Unlock()

		w.onChange(ctx, paths)
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		w.handleError(fmt.Errorf("change callback panic: %w", err))
	}))
}

func (w *Watcher) handleError(err error) {
	if w.config.ErrorHandler != nil {
		w.config.ErrorHandler(err)
		return
	}
	w.log.Error("watcher error", "error", err)
}

func (w *Watcher) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.log.Enabled(ctx, slog.LevelDebug) {
				w.log.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.log.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.setActive(false)
	defer w.watcher.Close()

	err = w.loop(ctx)

	w.debouncer.stopAndWait(5 * time.Second)
	// Wait for a running callback. Later ones see the cancelled context.
	w.callMu.Lock()
	w.callMu.Unlock()
	return err
}

func (w *Watcher) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.handleEvent(event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.handleError(wErr)
		}
	}
}

// debouncer collects paths and fires once no path was added for delay.
type debouncer struct {
	delay time.Duration
	fire  func([]string)

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(delay time.Duration, fire func([]string)) *debouncer {
	return &debouncer{delay: delay, fire: fire, pending: make(map[string]bool)}
}

func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending[path] = true
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.wg.Add(1)
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	defer d.wg.Done()

	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]bool)
	d.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	d.fire(paths)
}

// stopAndWait drops pending paths and waits for in-flight flushes.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
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

var _ worker.Worker = (*Watcher)(nil)
