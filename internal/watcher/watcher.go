package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MuXiu1997/ass-processor/internal/logger"
)

var manifestExtensions = []string{".yaml", ".yml"}

type implWatcher struct {
	manifestDir string
	handler     ManifestHandler
	logger      logger.Logger
	watcher     *fsnotify.Watcher
	semaphore   chan struct{}
	wg          sync.WaitGroup
}

// Start begins monitoring the manifest directory for dropped job manifests.
func (w *implWatcher) Start(ctx context.Context) error {
	w.logger.Info(ctx, "Manifest watcher started. Monitoring: %s", w.manifestDir)
	w.logger.Info(ctx, "Drop a .yaml/.yml job manifest to start a batch")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Waiting for the running batch to complete...")
			w.wg.Wait()
			w.logger.Info(ctx, "Manifest watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			// Only process CREATE events
			if event.Op&fsnotify.Create == fsnotify.Create {
				if isManifest(event.Name) {
					w.logger.Info(ctx, "New manifest detected: %s", event.Name)

					// Small delay to ensure file is fully written
					time.Sleep(500 * time.Millisecond)

					// Acquire the single batch slot (blocks while a batch runs)
					select {
					case w.semaphore <- struct{}{}:
						w.wg.Add(1)
						go func(manifestPath string) {
							defer w.wg.Done()
							defer func() { <-w.semaphore }()

							if err := w.handler(ctx, manifestPath); err != nil {
								w.logger.Error(ctx, "Batch for %s failed: %v", manifestPath, err)
							}
						}(event.Name)
					case <-ctx.Done():
						return ctx.Err()
					}
				} else {
					w.logger.Debug(ctx, "Ignoring non-manifest file: %s", event.Name)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error(ctx, "Watcher error: %v", err)
		}
	}
}

// Stop closes the file watcher
func (w *implWatcher) Stop() error {
	return w.watcher.Close()
}

func isManifest(path string) bool {
	return slices.Contains(manifestExtensions, strings.ToLower(filepath.Ext(path)))
}
