// Package watch notices edits to a single file, such as the config file, and
// reports them debounced.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const (
	DefaultDebounce     = 150 * time.Millisecond
	DefaultPollInterval = 2 * time.Second
)

var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the file must stay quiet before a change fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithPollInterval sets the stat interval used when polling.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithForcePoll skips fsnotify and polls the file instead.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// WithLogger sets the logger used for watch errors.
func WithLogger(log *zerolog.Logger) Option {
	return func(w *Watcher) {
		if log != nil {
			w.log = log.With().Str("component", "watch").Logger()
		}
	}
}

// Watcher reports changes to one file. It watches the parent directory so
// atomic replace-by-rename saves are seen too, and falls back to polling when
// fsnotify is unavailable.
type Watcher struct {
	path         string
	debounce     time.Duration
	pollInterval time.Duration
	forcePoll    bool
	log          zerolog.Logger

	mu        sync.Mutex
	started   bool
	polling   bool
	cancel    context.CancelFunc
	fsWatcher *fsnotify.Watcher
	timer     *time.Timer
	lastMod   time.Time
	lastSize  int64

	changed chan struct{}
	errs    chan error
}

// New returns an unstarted watcher for path.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:         abs,
		debounce:     DefaultDebounce,
		pollInterval: DefaultPollInterval,
		log:          zerolog.Nop(),
		changed:      make(chan struct{}, 1),
		errs:         make(chan error, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Changed receives once per debounced burst of changes. Bursts that happen
// while nobody is receiving collapse into one.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Errors receives watch failures, including ErrFileRemoved. Errors that
// arrive while nobody is receiving are dropped.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Polling reports whether the watcher fell back to polling.
func (w *Watcher) Polling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

// Start begins watching. The file need not exist yet.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	if info, err := os.Stat(w.path); err == nil {
		w.lastMod = info.ModTime()
		w.lastSize = info.Size()
	}

	w.polling = true
	if !w.forcePoll {
		if fsw, err := fsnotify.NewWatcher(); err == nil {
			if err := fsw.Add(filepath.Dir(w.path)); err == nil {
				w.fsWatcher = fsw
				w.polling = false
				go w.watchEvents(ctx, fsw)
			} else {
				_ = fsw.Close()
				w.log.Debug().Err(err).Msg("fsnotify add failed, polling")
			}
		} else {
			w.log.Debug().Err(err).Msg("fsnotify unavailable, polling")
		}
	}
	if w.polling {
		go w.watchPolling(ctx)
	}

	w.started = true
	return nil
}

// Stop ends watching. Changed is not closed.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.cancel()
	if w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.started = false
}

func (w *Watcher) watchEvents(ctx context.Context, fsw *fsnotify.Watcher) {
	target := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				w.trigger()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				// Editors that save by rename recreate the file right away.
				w.trigger()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) watchPolling(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(w.path)
			w.mu.Lock()
			hadFile := !w.lastMod.IsZero()
			changed := false
			switch {
			case err != nil:
				w.lastMod, w.lastSize = time.Time{}, 0
			case !info.ModTime().Equal(w.lastMod) || info.Size() != w.lastSize:
				w.lastMod, w.lastSize = info.ModTime(), info.Size()
				changed = true
			}
			w.mu.Unlock()

			switch {
			case os.IsNotExist(err):
				if hadFile {
					w.report(ErrFileRemoved)
				}
			case err != nil:
				w.report(err)
			case changed:
				w.trigger()
			}
		}
	}
}

func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.notify)
}

func (w *Watcher) notify() {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return
	}
	if _, err := os.Stat(w.path); os.IsNotExist(err) {
		w.report(ErrFileRemoved)
		return
	}
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

func (w *Watcher) report(err error) {
	w.log.Debug().Err(err).Str("path", w.path).Msg("watch error")
	select {
	case w.errs <- err:
	default:
	}
}
