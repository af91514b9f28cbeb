package watcher

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/MuXiu1997/ass-processor/internal/logger"
)

// New creates a Watcher over the manifest drop directory. Batches must
// never overlap, so the handler runs through a single-slot semaphore.
func New(manifestDir string, handler ManifestHandler, log logger.Logger) (Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(manifestDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	return &implWatcher{
		manifestDir: manifestDir,
		handler:     handler,
		logger:      log,
		watcher:     watcher,
		semaphore:   make(chan struct{}, 1),
	}, nil
}
