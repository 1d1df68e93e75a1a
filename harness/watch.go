package harness

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/logger"
)

// DefaultDebounce absorbs the burst of events an editor save produces
const DefaultDebounce = 300 * time.Millisecond

// Watcher calls back when any of a set of case files changes. Parent
// directories are watched so files replaced by rename keep being seen.
type Watcher struct {
	files    map[string]bool
	watcher  *fsnotify.Watcher
	onChange func(path string)
	debounce time.Duration
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	timer   *time.Timer
	pending string
}

// NewWatcher watches paths; onChange runs on a timer goroutine, at most once
// per debounce period
func NewWatcher(paths []string, debounce time.Duration, onChange func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}

	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "resolve %s", p)
		}
		files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "watch %s", dir)
		}
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		files:    files,
		watcher:  fw,
		onChange: onChange,
		debounce: debounce,
		logger:   logger.ComponentLogger("harness"),
	}, nil
}

// Run delivers change callbacks until ctx is done, then releases the watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debugw("Case file changed",
				logger.FieldFile, event.Name,
				"op", event.Op.String())
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("Watcher error", logger.FieldError, err.Error())
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = path
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		path := w.pending
		w.mu.Unlock()
		w.onChange(path)
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.watcher.Close()
}
