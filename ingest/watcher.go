package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/logger"
)

// RefreshFunc reloads the store, e.g. (*store.Store).Refresh
type RefreshFunc func(ctx context.Context) (bool, error)

// DefaultDebounce collapses bursts of file events into one refresh
const DefaultDebounce = 500 * time.Millisecond

// DirWatcher refreshes the store when table files in a directory change
type DirWatcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	refresh  RefreshFunc
	logger   *zap.SugaredLogger
	debounce time.Duration
	timeout  time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDirWatcher watches dir. timeout bounds each triggered refresh.
func NewDirWatcher(dir string, refresh RefreshFunc, timeout time.Duration, log *zap.SugaredLogger) (*DirWatcher, error) {
	if log == nil {
		log = logger.ComponentLogger("watcher")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "failed to watch data directory %s", dir)
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &DirWatcher{
		dir:      dir,
		watcher:  w,
		refresh:  refresh,
		logger:   log,
		debounce: DefaultDebounce,
		timeout:  timeout,
	}, nil
}

// Run processes events until ctx is done or the watcher is closed
func (dw *DirWatcher) Run(ctx context.Context) {
	dw.logger.Infow("Watching data directory", logger.FieldSource, dw.dir)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if _, isTable := TableStem(event.Name); !isTable {
				continue
			}
			dw.logger.Debugw("Data directory changed",
				logger.FieldFile, event.Name,
				"op", event.Op.String())
			dw.schedule(ctx)
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.logger.Warnw("Watcher error", logger.FieldError, err)
		}
	}
}

// schedule restarts the debounce timer
func (dw *DirWatcher) schedule(ctx context.Context) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.timer != nil {
		dw.timer.Stop()
	}
	dw.timer = time.AfterFunc(dw.debounce, func() {
		rctx, cancel := context.WithTimeout(ctx, dw.timeout)
		defer cancel()
		loaded, err := dw.refresh(rctx)
		if err != nil {
			dw.logger.Errorw("Refresh after file change failed", logger.FieldError, err)
			return
		}
		dw.logger.Infow("Refreshed after file change", "loaded", loaded)
	})
}

// Close stops watching
func (dw *DirWatcher) Close() error {
	dw.mu.Lock()
	if dw.timer != nil {
		dw.timer.Stop()
	}
	dw.mu.Unlock()
	return dw.watcher.Close()
}
