package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay debounces bursts of events from one atomic replace.
const reloadDelay = 200 * time.Millisecond

// Watch reloads src whenever its snapshot file in dir is created, written
// or renamed into place, until ctx is cancelled. It watches the directory
// because atomic writes replace the file. onReload, if non-nil, runs after
// each load that changed the snapshot.
func Watch(ctx context.Context, src *Source, dir string, logger *slog.Logger, onReload func(Snapshot)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("dir", dir), slog.String("file", src.Name()))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(reloadDelay)
			fire = timer.C
		} else {
			timer.Reset(reloadDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			changed, err := src.Load()
			if err != nil {
				logger.Warn("watcher: reload failed", slog.String("file", src.Name()), slog.String("error", err.Error()))
				continue
			}
			if !changed {
				logger.Debug("watcher: snapshot unchanged", slog.String("file", src.Name()))
				continue
			}
			if onReload != nil {
				onReload(src.Snapshot())
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != filepath.Base(src.Name()) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
