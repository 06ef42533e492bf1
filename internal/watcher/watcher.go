// Package watcher converts population files as they appear in a directory.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"spopconv/internal/config"
	"spopconv/internal/logger"
	"spopconv/pkg/metadata"
)

// ConvertFunc converts the file at path.
type ConvertFunc func(ctx context.Context, path string) error

// Watcher runs a conversion for every matching file written to a directory.
// Files whose content digest has not changed since their last successful
// conversion are skipped.
type Watcher struct {
	dir      string
	pattern  string
	rescan   string
	debounce time.Duration
	convert  ConvertFunc
	log      *logger.Logger

	// mu serializes conversions between event timers and rescans
	mu      sync.Mutex
	digests map[string]string
	wg      sync.WaitGroup
}

// New creates a watcher for dir.
func New(dir string, cfg config.WatchConfig, convert ConvertFunc, log *logger.Logger) *Watcher {
	if log == nil {
		log = logger.Discard()
	}

	return &Watcher{
		dir:      dir,
		pattern:  cfg.Pattern,
		rescan:   cfg.Rescan,
		debounce: cfg.GetDebounce(),
		convert:  convert,
		log:      log.With("watch_dir", dir),
		digests:  make(map[string]string),
	}
}

// Matches reports whether the base name of path matches the watch pattern.
func (w *Watcher) Matches(path string) bool {
	ok, err := filepath.Match(w.pattern, filepath.Base(path))
	return err == nil && ok
}

// ProcessExisting converts the matching files already present in the
// directory and returns how many were converted.
func (w *Watcher) ProcessExisting(ctx context.Context) (int, error) {
	paths, err := filepath.Glob(filepath.Join(w.dir, w.pattern))
	if err != nil {
		return 0, fmt.Errorf("invalid watch pattern %q: %w", w.pattern, err)
	}

	sort.Strings(paths)

	converted := 0

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return converted, err
		}

		ok, err := w.handle(ctx, path)
		if err != nil {
			w.log.Error("conversion failed", "path", path, "error", err)
			continue
		}

		if ok {
			converted++
		}
	}

	return converted, nil
}

// Run watches the directory until ctx is cancelled. Pending conversions are
// allowed to finish before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("watch directory %q is not accessible", w.dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.dir, err)
	}

	w.log.Info("watching for population files", "pattern", w.pattern, "debounce", w.debounce)

	if w.rescan != "" {
		sched := cron.New()

		if _, err := sched.AddFunc(w.rescan, func() { w.scan(ctx) }); err != nil {
			return fmt.Errorf("invalid rescan schedule %q: %w", w.rescan, err)
		}

		sched.Start()
		defer func() { <-sched.Stop().Done() }()

		w.log.Info("periodic rescan enabled", "schedule", w.rescan)
	}

	timers := make(map[string]*time.Timer)

	defer func() {
		for _, t := range timers {
			if t.Stop() {
				w.wg.Done()
			}
		}

		w.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if !w.Matches(event.Name) {
				continue
			}

			path := event.Name
			if t, exists := timers[path]; exists && t.Stop() {
				w.wg.Done()
			}

			w.wg.Add(1)
			timers[path] = time.AfterFunc(w.debounce, func() {
				defer w.wg.Done()

				if _, err := w.handle(ctx, path); err != nil {
					w.log.Error("conversion failed", "path", path, "error", err)
				}
			})
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.log.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	n, err := w.ProcessExisting(ctx)
	if err != nil {
		w.log.Warn("rescan failed", "error", err)
		return
	}

	if n > 0 {
		w.log.Info("rescan converted files", "count", n)
	}
}

// handle converts path unless its content was already converted.
func (w *Watcher) handle(ctx context.Context, path string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	digest, err := metadata.FileHash(path)
	if err != nil {
		return false, err
	}

	if w.digests[path] == digest {
		w.log.Debug("unchanged, skipping", "path", path)
		return false, nil
	}

	if err := w.convert(ctx, path); err != nil {
		return false, err
	}

	w.digests[path] = digest

	return true, nil
}
