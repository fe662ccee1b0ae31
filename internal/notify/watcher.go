package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultWatchDebounce = 200 * time.Millisecond

// FileWatcher fires when another process replaces the snapshot file. It is
// the storage-event channel: the process that wrote the file is notified too,
// so receivers must tolerate signals for content they already hold.
type FileWatcher struct {
	path     string
	debounce time.Duration
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	subs     subscribers

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
	once  sync.Once
}

var _ Notifier = (*FileWatcher)(nil)

// NewFileWatcher watches the directory holding path and signals on changes
// to that file only. Bursts within debounce collapse into one signal.
func NewFileWatcher(path string, debounce time.Duration, logger *zap.Logger) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("notify: resolve watch path: %w", err)
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("notify: create watch dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("notify: create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("notify: watch %s: %w", dir, err)
	}

	w := &FileWatcher{
		path:     abs,
		debounce: debounce,
		logger:   logger,
		watcher:  watcher,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *FileWatcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("snapshot watcher error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *FileWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.logger.Debug("snapshot file changed", zap.String("path", w.path))
		w.subs.fire()
	})
}

// Publish is a no-op: writing the snapshot file is the signal.
func (w *FileWatcher) Publish(context.Context) error { return nil }

func (w *FileWatcher) Subscribe(fn func()) func() { return w.subs.add(fn) }

func (w *FileWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		w.subs.clear()
		if cerr := w.watcher.Close(); cerr != nil && !errors.Is(cerr, fsnotify.ErrClosed) {
			err = cerr
		}
	})
	return err
}
