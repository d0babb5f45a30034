package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher calls a function when watched files change. Events arriving
// within Debounce of each other trigger one call.
type Watcher struct {
	// Paths are files or directories. Files are watched through their
	// directory so editors that replace files are seen. Missing paths are
	// skipped.
	Paths    []string
	Debounce time.Duration
	Logger   *slog.Logger
}

// Run blocks until ctx is done, calling onChange after each burst of changes.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	// dir -> files of interest; nil means every file
	filters := map[string]map[string]bool{}
	for _, p := range w.Paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			logger.Debug("not watching missing path", "path", p)
			continue
		}

		dir := abs
		if !info.IsDir() {
			dir = filepath.Dir(abs)
		}
		files, seen := filters[dir]
		if !seen {
			if err := fw.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
		}
		switch {
		case info.IsDir():
			filters[dir] = nil
		case seen && files == nil:
			// whole directory already watched
		default:
			if files == nil {
				files = map[string]bool{}
				filters[dir] = files
			}
			files[filepath.Base(abs)] = true
		}
	}

	relevant := func(name string) bool {
		files, ok := filters[filepath.Dir(name)]
		return ok && (files == nil || files[filepath.Base(name)])
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || !relevant(ev.Name) {
				continue
			}
			logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			onChange()
		}
	}
}
