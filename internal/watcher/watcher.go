// Package watcher analyzes images dropped into a directory.
package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/amishk599/geolens/internal/intake"
)

// Processor ingests one file. *intake.Intake satisfies it.
type Processor interface {
	IngestFile(ctx context.Context, path string) (intake.Result, error)
}

// Watcher owns the watch loop: it collects create/write events and, once a
// file has been quiet for the settle period, processes it. Files are
// processed one at a time.
type Watcher struct {
	dir    string
	exts   map[string]bool
	settle time.Duration
	proc   Processor
	logger *slog.Logger

	pending map[string]time.Time
}

// New creates a watcher for dir. Only files whose lower-cased extension is in
// exts are considered.
func New(dir string, exts []string, settle time.Duration, proc Processor, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return &Watcher{
		dir:     dir,
		exts:    set,
		settle:  settle,
		proc:    proc,
		logger:  logger,
		pending: make(map[string]time.Time),
	}
}

// Run processes the images already in the directory, then watches it until
// ctx is cancelled. It returns nil on cancellation (graceful shutdown).
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating watch dir: %w", err)
	}
	// Watch before scanning so files created during the scan are not missed.
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.logger.Info("starting watcher", "dir", w.dir, "settle", w.settle.String())
	w.scan(ctx)

	tick := w.settle / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down watcher")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		case now := <-ticker.C:
			w.processSettled(ctx, now)
		}
	}
}

func (w *Watcher) wanted(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return w.exts[strings.ToLower(filepath.Ext(base))]
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.wanted(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.logger.Debug("file changed", "path", event.Name, "op", event.Op.String())
		w.pending[event.Name] = time.Now()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
	}
}

// processSettled handles files that have been quiet for the settle period, in
// name order.
func (w *Watcher) processSettled(ctx context.Context, now time.Time) {
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	for _, path := range ready {
		delete(w.pending, path)
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, path)
	}
}

func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("initial scan failed", "dir", w.dir, "error", err)
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if e.IsDir() || !w.wanted(e.Name()) {
			continue
		}
		w.process(ctx, filepath.Join(w.dir, e.Name()))
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	res, err := w.proc.IngestFile(ctx, path)
	if err != nil {
		w.logger.Error("analysis failed", "path", path, "error", err)
		return
	}
	if res.Duplicate {
		w.logger.Debug("skipped already analyzed file", "path", path, "id", res.Sample.ID)
		return
	}
	w.logger.Info("sample added", "path", path, "id", res.Sample.ID, "rock", res.Sample.Analysis.RockName)
}
