package dashboard

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/dashwire/internal/logging"
)

// DefaultDebounce coalesces bursts of writes from editors.
const DefaultDebounce = 150 * time.Millisecond

// ReloadFunc receives the reloaded definition, or the error that prevented
// loading it.
type ReloadFunc func(def *Definition, err error)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(l *logging.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logging.OrNull(l).WithComponent("dashboard-watcher")
	}
}

// Watcher reloads a definition file when it or its script file changes.
// Directories are watched rather than files, so editors that replace files
// by rename are handled.
type Watcher struct {
	mu sync.Mutex

	fsw      *fsnotify.Watcher
	path     string
	files    map[string]bool
	dirs     map[string]bool
	onReload ReloadFunc
	debounce time.Duration
	timer    *time.Timer
	logger   *logging.Logger

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher starts watching the definition at path.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		path:     abs,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		onReload: onReload,
		debounce: DefaultDebounce,
		logger:   logging.NullLogger,
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.track(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if def, err := LoadFile(abs); err == nil && def.ScriptFile != "" {
		if err := w.track(def.ScriptPath()); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Files returns the watched files.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	return out
}

// Close stops watching. Pending reloads are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}

// track adds a file and its directory. Callers must not hold w.mu.
func (w *Watcher) track(file string) error {
	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	w.files[abs] = true
	if w.dirs[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
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
			w.logger.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
		return
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || !w.files[abs] {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	def, err := LoadFile(w.path)
	if err == nil && def.ScriptFile != "" {
		if terr := w.track(def.ScriptPath()); terr != nil {
			w.logger.Warn("watch script %s: %v", def.ScriptPath(), terr)
		}
	}
	if err != nil {
		w.logger.Warn("reload %s: %v", w.path, err)
	} else {
		w.logger.Info("reloaded %s", w.path)
	}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("reload handler panicked: %v", r)
		}
	}()
	w.onReload(def, err)
}
