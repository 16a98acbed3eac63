// Package watch reruns generation when template sources change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"modelgen/internal/frontend"
	"modelgen/internal/logging"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/romdo/go-debounce"
)

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period after the last change before a run.
	Debounce time.Duration
	// Includes and Excludes select the files whose changes count, using
	// the same globs as template discovery.
	Includes []string
	Excludes []string
}

// RunFunc regenerates. Its error is logged and watching continues.
type RunFunc func(ctx context.Context) error

// Stats counts watcher activity.
type Stats struct {
	Events int
	Runs   int
	Errors int
}

// Watcher watches a directory tree and calls a RunFunc, debounced, after
// relevant file changes. Runs never overlap.
type Watcher struct {
	root    string
	opts    Options
	run     RunFunc
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	stats Stats
}

// New returns a watcher over root. Call Run to start it.
func New(root string, opts Options, run RunFunc) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{root: root, opts: opts, run: run, watcher: fw}
	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run blocks until ctx is done, calling the RunFunc after each settled
// burst of changes. It closes the underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	trigger := make(chan struct{}, 1)
	fire, cancel := debounce.NewWithMaxWait(w.opts.Debounce, 4*w.opts.Debounce, func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	defer cancel()

	logging.Watch("watching %s (debounce %v)", w.root, w.opts.Debounce)
	for {
		select {
		case <-ctx.Done():
			logging.Watch("watch stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watch event channel closed")
			}
			if w.handle(event) {
				fire()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watch error channel closed")
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)
			w.count(func(s *Stats) { s.Errors++ })

		case <-trigger:
			w.count(func(s *Stats) { s.Runs++ })
			if err := w.run(ctx); err != nil {
				logging.Get(logging.CategoryWatch).Warn("regeneration failed: %v", err)
				w.count(func(s *Stats) { s.Errors++ })
			}
		}
	}
}

// handle reacts to one event and reports whether it should trigger a run.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if frontend.SkipDir(w.opts.Excludes, rel) {
				return false
			}
			if err := w.addTree(event.Name); err != nil {
				logging.Get(logging.CategoryWatch).Warn("cannot watch new directory %s: %v", event.Name, err)
			}
			return true
		}
	}
	if frontend.SkipDir(w.opts.Excludes, filepath.ToSlash(filepath.Dir(rel))) {
		return false
	}
	if !frontend.Candidate(w.opts.Includes, w.opts.Excludes, rel) {
		return false
	}
	logging.WatchDebug("%s %s", event.Op, rel)
	w.count(func(s *Stats) { s.Events++ })
	return true
}

func (w *Watcher) count(f func(s *Stats)) {
	w.mu.Lock()
	f(&w.stats)
	w.mu.Unlock()
}

// addTree watches dir and every directory below it that discovery would
// not skip.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		if frontend.SkipDir(w.opts.Excludes, filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		logging.WatchDebug("watching directory %s", path)
		return nil
	})
}
