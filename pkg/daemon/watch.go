package daemon

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/vetcalc/pkg/catalog"
	"github.com/charlie0129/vetcalc/pkg/store"
)

const watchDebounce = 250 * time.Millisecond

// StoreWatcher reloads the catalog when the store file is changed by someone
// other than the daemon.
type StoreWatcher struct {
	path     string
	catalog  *catalog.Catalog
	watcher  *fsnotify.Watcher
	debounce time.Duration
	// onReload is called after every reload attempt, for tests.
	onReload func(err error)
	logger   logrus.FieldLogger
}

func NewStoreWatcher(path string, cat *catalog.Catalog) (*StoreWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create file watcher")
	}

	// The file is replaced by rename on every write, so the directory is
	// watched rather than the file itself.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		_ = w.Close()
		return nil, pkgerrors.Wrapf(err, "failed to create directory %s", dir)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, pkgerrors.Wrapf(err, "failed to watch %s", dir)
	}

	return &StoreWatcher{
		path:     filepath.Clean(path),
		catalog:  cat,
		watcher:  w,
		debounce: watchDebounce,
		logger:   logrus.WithFields(logrus.Fields{"component": "watcher", "path": path}),
	}, nil
}

// Run blocks until ctx is done.
func (w *StoreWatcher) Run(ctx context.Context) {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.logger.WithError(err).Warn("failed to close file watcher")
		}
	}()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}

			// Reset or start debounce timer
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("file watcher error")
		case <-timerC:
			timer = nil
			timerC = nil
			w.flush(ctx)
		}
	}
}

func (w *StoreWatcher) flush(ctx context.Context) {
	changed, err := w.changedExternally()
	if err != nil {
		w.logger.WithError(err).Warn("failed to read store file")
	}
	if !changed {
		return
	}

	err = w.catalog.Reload(ctx)
	if err != nil {
		w.logger.WithError(err).Warn("failed to reload catalog after store file changed")
	} else {
		w.logger.Info("store file changed, catalog reloaded")
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}

// changedExternally compares the file with what the daemon would have
// written for the current custom set.
func (w *StoreWatcher) changedExternally() (bool, error) {
	onDisk, err := os.ReadFile(w.path)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	custom := w.catalog.Snapshot().Custom()
	if len(bytes.TrimSpace(onDisk)) == 0 {
		return len(custom) > 0, nil
	}

	ours, err := store.Encode(custom)
	if err != nil {
		return false, err
	}
	return !bytes.Equal(onDisk, ours), nil
}
