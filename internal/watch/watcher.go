// Package watch reloads the ledger when its file is edited outside the
// running process.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/anxi/internal/checksum"
)

// DefaultDebounce is how long the watcher waits for a burst of events on the
// ledger file to settle before comparing checksums.
const DefaultDebounce = 200 * time.Millisecond

// Source is the ledger file and the digest of its last self-write.
type Source interface {
	Path() string
	Checksum() string
}

// Reloader re-reads the ledger.
type Reloader interface {
	Reload() error
}

// Watch starts an fsnotify watcher on the directory of the ledger file and
// processes change events until ctx is cancelled. When the file content no
// longer matches src.Checksum() it calls r.Reload.
//
// The directory is watched rather than the file so that editors which save
// by writing a new file and renaming it over the old one are still seen.
func Watch(ctx context.Context, src Source, r Reloader, logger *slog.Logger, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(src.Path())
	dir := filepath.Dir(target)
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("path", target))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
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

		case <-timerCh:
			timer, timerCh = nil, nil
			reloadIfChanged(src, r, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watcher: ledger event", slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reloadIfChanged reloads unless the file still holds what the store last
// wrote. A missing file counts as changed.
func reloadIfChanged(src Source, r Reloader, logger *slog.Logger) {
	sum, err := checksum.File(src.Path())
	switch {
	case err == nil && sum == src.Checksum():
		logger.Debug("watcher: self-write ignored")
		return
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		logger.Warn("watcher: checksum failed", slog.String("error", err.Error()))
		return
	}

	if err := r.Reload(); err != nil {
		logger.Warn("watcher: reload failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("watcher: ledger reloaded after external edit", slog.String("path", src.Path()))
}
