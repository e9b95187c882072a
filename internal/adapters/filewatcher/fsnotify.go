// Package filewatcher provides file system monitoring adapters.
// FSNotifyWatcher implements ports.FileWatcher for the SDS inbox.
package filewatcher

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/0xcro3dile/chemstock/internal/domain/ports"
)

// FSNotifyWatcher implements ports.FileWatcher using fsnotify.
type FSNotifyWatcher struct {
	watcher    *fsnotify.Watcher
	extensions []string // lower-cased, e.g. ".pdf"
	logger     *zap.Logger
}

// NewFSNotifyWatcher creates a watcher that only reports files with one of
// the given extensions (compared case-insensitively).
func NewFSNotifyWatcher(extensions []string, logger *zap.Logger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = []string{".pdf"}
	}
	lowered := make([]string, len(extensions))
	for i, e := range extensions {
		lowered[i] = strings.ToLower(e)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FSNotifyWatcher{
		watcher:    w,
		extensions: lowered,
		logger:     logger,
	}, nil
}

// Watch starts monitoring the directory and emits events until ctx is done
// or the watcher is stopped.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan ports.FileEvent, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.isWatchedExtension(event.Name) {
					continue
				}

				var op ports.FileOperation
				switch {
				case event.Op&fsnotify.Create == fsnotify.Create:
					op = ports.FileCreated
				case event.Op&fsnotify.Write == fsnotify.Write:
					op = ports.FileModified
				case event.Op&fsnotify.Remove == fsnotify.Remove:
					op = ports.FileDeleted
				default:
					continue
				}

				select {
				case events <- ports.FileEvent{Path: event.Name, Operation: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("inbox watcher error", zap.String("dir", dir), zap.Error(err))
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}

// isWatchedExtension checks if the file has a watched extension.
func (w *FSNotifyWatcher) isWatchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
