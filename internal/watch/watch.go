// Package watch reruns a build whenever any of its source files
// changes. It watches the parent directories of the loaded files, so
// editors that replace files via rename are caught too.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the bursts of events editors emit per save.
const debounceWindow = 100 * time.Millisecond

// Watcher reruns a callback on changes to a file set. The callback
// returns the files to watch next, so a fixed import typo extends the
// watch set on the following run.
type Watcher struct {
	logger *slog.Logger
	run    func() []string
}

// New creates a watcher around run. run is invoked once immediately on
// Watch and again after every change; it returns the current set of
// files to keep watching.
func New(logger *slog.Logger, run func() []string) *Watcher {
	return &Watcher{logger: logger, run: run}
}

// Watch blocks, rebuilding on changes, until ctx is canceled.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	files := w.run()
	watched := w.rewatch(fw, nil, files)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !watchedFile(files, ev.Name) {
				continue
			}
			w.logger.Debug("source changed", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			files = w.run()
			watched = w.rewatch(fw, watched, files)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// rewatch points the watcher at the parent directories of files.
func (w *Watcher) rewatch(fw *fsnotify.Watcher, old map[string]bool, files []string) map[string]bool {
	dirs := make(map[string]bool)
	for _, f := range files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range old {
		if !dirs[dir] {
			_ = fw.Remove(dir)
		}
	}
	for dir := range dirs {
		if !old[dir] {
			if err := fw.Add(dir); err != nil {
				w.logger.Warn("cannot watch directory", "dir", dir, "error", err)
			}
		}
	}
	return dirs
}

func watchedFile(files []string, name string) bool {
	clean := filepath.Clean(name)
	for _, f := range files {
		if f == clean {
			return true
		}
	}
	return false
}
