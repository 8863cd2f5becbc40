// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package watch re-runs a callback when watched files change.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces bursts of writes from editors.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches files and directories and calls onChange once per burst of
// changes. A watched file triggers on write or create of that file; a
// watched directory triggers on any write, create, remove or rename inside it.
type Watcher struct {
	watcher       *fsnotify.Watcher
	files         map[string]bool
	dirs          map[string]bool
	onChange      func()
	debounceDelay time.Duration
	logger        zerolog.Logger

	mu            sync.Mutex
	debounceTimer *time.Timer
}

// New creates a watcher over paths. Paths that are directories are watched
// as a whole.
func New(paths []string, onChange func(), logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:       fw,
		files:         make(map[string]bool),
		dirs:          make(map[string]bool),
		onChange:      onChange,
		debounceDelay: DefaultDebounce,
		logger:        logger.With().Str("component", "watch").Logger(),
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fw.Close()
			return nil, err
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			w.dirs[abs] = true
			continue
		}
		w.files[abs] = true
	}
	return w, nil
}

// SetDebounce changes the debounce delay. It must be called before Start.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounceDelay = d }

// Start blocks until ctx is cancelled, dispatching change notifications.
// fsnotify watches directories, so a watched file's parent is added.
func (w *Watcher) Start(ctx context.Context) error {
	added := make(map[string]bool)
	for file := range w.files {
		added[filepath.Dir(file)] = true
	}
	for dir := range w.dirs {
		added[dir] = true
	}
	for dir := range added {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Error().Err(err).Str("dir", dir).Msg("Failed to watch directory")
			_ = w.watcher.Close()
			return err
		}
	}

	w.logger.Info().Int("files", len(w.files)).Int("dirs", len(w.dirs)).Dur("debounce", w.debounceDelay).Msg("Started watching")

	defer func() {
		w.stopTimer()
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Error closing watcher")
		}
		w.logger.Info().Msg("Stopped watching")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug().Str("op", event.Op.String()).Str("file", event.Name).Msg("Detected change")
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("File watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if w.files[name] {
		return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
	}
	if w.dirs[filepath.Dir(name)] {
		return event.Op != fsnotify.Chmod
	}
	return false
}

// schedule runs onChange after the debounce delay, resetting a pending run.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.onChange)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
}

// Close releases the watcher without starting it.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
