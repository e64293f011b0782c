// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// shaderWatcher reports new contents of one WGSL file. The directory is
// watched instead of the file so editors that replace the file on save
// keep being noticed.
type shaderWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	sources chan string
	logger  *slog.Logger
}

func watchShader(path string, logger *slog.Logger) (*shaderWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	return &shaderWatcher{
		path:    abs,
		watcher: w,
		sources: make(chan string, 1),
		logger:  logger,
	}, nil
}

// Sources delivers the file content after each change.
func (s *shaderWatcher) Sources() <-chan string { return s.sources }

// run forwards changes until ctx is done, then closes the watcher.
func (s *shaderWatcher) run(ctx context.Context) {
	defer s.watcher.Close()
	for {
		select {
		case e, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if e.Name != s.path || !e.Op.Has(fsnotify.Write) && !e.Op.Has(fsnotify.Create) {
				continue
			}
			src, err := os.ReadFile(s.path)
			if err != nil {
				s.logger.Warn("read shader", "path", s.path, "err", err)
				continue
			}
			// Keep only the newest content if the renderer has not caught up.
			select {
			case <-s.sources:
			default:
			}
			s.sources <- string(src)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("shader watcher", "err", err)

		case <-ctx.Done():
			return
		}
	}
}
