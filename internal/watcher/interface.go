package watcher

import "context"

// Watcher defines the interface for file system monitoring
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// ManifestHandler runs one batch for a dropped job manifest.
type ManifestHandler func(ctx context.Context, manifestPath string) error
