// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guard

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/AleutianGuard/pkg/logging"
)

// OutcomeHandler receives the outcome of each triggered scan.
type OutcomeHandler func(Outcome)

// Watcher rescans source files as they change on disk.
//
// # Description
//
// Watches a directory tree and runs the engine on every eligible file
// after it is created or written. Changes are debounced per file so a
// burst of editor writes triggers one scan, not one per keystroke.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is called from a single goroutine.
type Watcher struct {
	engine   *Engine
	handler  OutcomeHandler
	logger   *logging.Logger
	debounce time.Duration
	watcher  *fsnotify.Watcher

	// pending holds the per-file debounce timers. Only the event loop in
	// Start touches it; entries are removed when their scan is dequeued.
	pending map[string]*time.Timer

	done     chan struct{}
	stopOnce sync.Once
}

// DefaultDebounceWindow is how long a file must stay quiet before it is
// rescanned.
const DefaultDebounceWindow = 200 * time.Millisecond

// Directories never descended into while watching.
var ignoredDirs = map[string]bool{
	".git":         true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"node_modules": true,
	".idea":        true,
}

// NewWatcher creates a watcher driving the given engine. A zero debounce
// uses DefaultDebounceWindow.
func NewWatcher(engine *Engine, handler OutcomeHandler, logger *logging.Logger, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}
	if logger == nil {
		logger = logging.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		engine:   engine,
		handler:  handler,
		logger:   logger,
		debounce: debounce,
		watcher:  fsw,
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}, nil
}

// Start watches root and its subdirectories until the context is canceled
// or Stop is called. Blocks for the duration of the watch.
func (w *Watcher) Start(ctx context.Context, root string) error {
	if err := w.addRecursive(root); err != nil {
		return err
	}
	w.logger.Info("watching for changes", "root", root)

	scans := make(chan string, 64)

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return ctx.Err()
		case <-w.done:
			return nil
		case path := <-scans:
			// The fired timer is spent; drop it so the map does not grow
			// with every file ever touched.
			delete(w.pending, path)
			out := w.engine.AnalyzeFile(ctx, path)
			if w.handler != nil {
				w.handler(out)
			}
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, scans)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err.Error())
		}
	}
}

// Stop ends the watch and releases the fsnotify watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event, scans chan<- string) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	// New directories must be added to the watch set.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory",
					"dir", event.Name, "error", err.Error())
			}
			return
		}
	}

	if !w.engine.Config().AllowsExtension(filepath.Ext(event.Name)) {
		return
	}

	path := event.Name
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		select {
		case scans <- path:
		case <-w.done:
		}
	})
}

// addRecursive adds dir and every non-ignored subdirectory to the watch
// set.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if ignoredDirs[name] || (strings.HasPrefix(name, ".") && path != dir) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}
