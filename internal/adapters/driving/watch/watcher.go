// Package watch ingests markdown files as they appear or change in a directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/vidrag/internal/core/ports/driving"
	"github.com/custodia-labs/vidrag/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher ingests *.md files in one directory.
type Watcher struct {
	dir       string
	retrieval driving.RetrievalService
	debounce  time.Duration
}

// New creates a watcher for dir.
func New(dir string, retrieval driving.RetrievalService, opts ...Option) *Watcher {
	w := &Watcher{
		dir:       dir,
		retrieval: retrieval,
		debounce:  DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Ingestion failures are logged and
// do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", w.dir, err)
	}
	logger.Info("Watching %s for markdown changes", w.dir)

	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			path, ok := Relevant(event)
			if !ok {
				continue
			}
			// Editors write in bursts; ingest once the file is quiet.
			if t, exists := timers[path]; exists {
				t.Reset(w.debounce)
				continue
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(timers, path)
			if err := w.retrieval.Ingest(ctx, path); err != nil {
				logger.Error("Failed to ingest %s: %v", path, err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}

// Relevant reports whether event is a create or write of a visible
// markdown file, and returns its path.
func Relevant(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".md") {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return event.Name, true
}
