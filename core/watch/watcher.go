// Package watch ingests audio files dropped into watched directories as
// they appear on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	corelib "Phonolib/core/library"
	"Phonolib/library"
	"Phonolib/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// settleDelay is how long a new file must stay quiet before ingestion.
// Copies and downloads emit a burst of write events; ingesting too early
// reads a half-written file.
const settleDelay = 2 * time.Second

// Watcher ingests supported audio files created under a directory.
type Watcher struct {
	lib  library.Library
	opts library.IngestOptions

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a directory watcher feeding the given library.
func NewWatcher(lib library.Library, opts library.IngestOptions) *Watcher {
	return &Watcher{
		lib:     lib,
		opts:    opts,
		pending: make(map[string]*time.Timer),
	}
}

// Run watches dir until the context is canceled. Files already present
// are not picked up; use a directory scan for those.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot watch %s: not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logger.Info("watching directory", zap.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && corelib.SupportedAudioFile(event.Name) {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// schedule (re)arms the settle timer for a path. Every further event on
// the same path pushes ingestion back by the full delay.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Reset(settleDelay)
		return
	}
	w.pending[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		track, err := w.lib.AddTrack(ctx, path, w.opts)
		if err != nil {
			logger.Warn("failed to ingest watched file", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("ingested watched file",
			zap.String("path", path), zap.String("trackId", track.ID.String()))
	})
}
