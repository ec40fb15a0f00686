package library

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the music directory tree and triggers a rescan after
// filesystem changes settle. Events are coalesced with a debounce so a
// bulk copy produces one scan, not hundreds.
type Watcher struct {
	scanner  *Scanner
	logger   *slog.Logger
	root     string
	debounce time.Duration
}

// NewWatcher creates a watcher over the scanner's music root.
func NewWatcher(scanner *Scanner, logger *slog.Logger, root string) *Watcher {
	return &Watcher{
		scanner:  scanner,
		logger:   logger.With(slog.String("component", "watcher")),
		root:     root,
		debounce: 2 * time.Second,
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start blocks until ctx is canceled, dispatching debounced rescans. If
// fsnotify is unavailable the watcher logs and returns; the library still
// works via manual rescans.
func (w *Watcher) Start(ctx context.Context) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("fsnotify unavailable, manual rescans only", "error", err)
		return
	}
	defer fw.Close() //nolint:errcheck

	w.addRecursive(fw)
	w.logger.Info("filesystem watcher starting", slog.String("root", w.root))

	// Starts stopped; reset on each event.
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("filesystem watcher stopping")
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				// New directories need their own watch.
				w.addRecursiveFrom(fw, ev.Name)
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) ||
				ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
				pending = true
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if _, err := w.scanner.Scan(ctx); err != nil {
				w.logger.Warn("triggered scan failed", "error", err)
			}
		}
	}
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher) {
	w.addRecursiveFrom(fw, w.root)
}

func (w *Watcher) addRecursiveFrom(fw *fsnotify.Watcher, start string) {
	_ = filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if err := fw.Add(path); err != nil {
			w.logger.Debug("adding watch", "path", path, "error", err)
		}
		return nil
	})
}
