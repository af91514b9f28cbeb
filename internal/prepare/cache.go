// Package prepare turns heterogeneous font and subtitle sources into
// plain directories the embedding tool can consume.
package prepare

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/MuXiu1997/ass-processor/internal/archive"
	"github.com/MuXiu1997/ass-processor/internal/logger"
	"github.com/MuXiu1997/ass-processor/pkg/fileutil"
)

// PreparationError reports a source that could not be turned into a
// usable directory.
type PreparationError struct {
	Description string
	Source      string
	Err         error
}

func (e *PreparationError) Error() string {
	return fmt.Sprintf("prepare %s %s: %v", e.Description, e.Source, e.Err)
}

func (e *PreparationError) Unwrap() error { return e.Err }

// Extractor unpacks a classified archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string, format archive.Format) error
}

type prepMode string

const (
	modeExtract      prepMode = "extract"
	modeCopy         prepMode = "copy"
	modeFilteredCopy prepMode = "filtered-copy"
)

// Cache prepares sources exactly once per (mode, canonical path) pair and
// hands out the prepared directory on every further request. The backing
// root directory is created lazily on first use and lives until Cleanup.
type Cache struct {
	log      logger.Logger
	extract  Extractor
	classify func(string) archive.Format
	tempDir  string

	group   singleflight.Group
	mu      sync.Mutex
	root    string
	entries map[string]string
}

// Option configures a Cache.
type Option func(*Cache)

// WithExtractor overrides the archive extractor.
func WithExtractor(e Extractor) Option {
	return func(c *Cache) { c.extract = e }
}

// WithClassifier overrides the format classifier.
func WithClassifier(fn func(string) archive.Format) Option {
	return func(c *Cache) { c.classify = fn }
}

// WithTempDir places the lazily created cache root under dir instead of
// the system temp directory.
func WithTempDir(dir string) Option {
	return func(c *Cache) { c.tempDir = dir }
}

// NewCache creates a new preparation cache
func NewCache(log logger.Logger, opts ...Option) *Cache {
	c := &Cache{
		log:      log,
		classify: archive.Classify,
		entries:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.extract == nil {
		c.extract = archive.NewEngine(log)
	}
	return c
}

// Prepare returns a directory holding the contents of source. Archive
// files are extracted, directories are copied (filtered to allowedExts
// when given), plain files are copied as single entries. Identical
// requests share one cache entry; concurrent identical requests share one
// population run. The description names the source's role in errors.
func (c *Cache) Prepare(ctx context.Context, source, description string, allowedExts []string) (string, error) {
	dir, err := c.prepare(ctx, source, allowedExts)
	if err != nil {
		return "", &PreparationError{Description: description, Source: source, Err: err}
	}
	return dir, nil
}

func (c *Cache) prepare(ctx context.Context, source string, allowedExts []string) (string, error) {
	canonical, err := canonicalPath(source)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return "", err
	}

	mode := modeCopy
	format := archive.FormatNone
	switch {
	case info.Mode().IsRegular():
		if f := c.classify(canonical); f != archive.FormatNone {
			mode, format = modeExtract, f
		} else if len(allowedExts) > 0 {
			mode = modeFilteredCopy
		}
	case info.IsDir():
		if len(allowedExts) > 0 {
			mode = modeFilteredCopy
		}
	default:
		return "", fmt.Errorf("%s: neither a file nor a directory", source)
	}

	key := string(mode) + "|" + canonical
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if dir, ok := c.lookup(key); ok {
			return dir, nil
		}
		dir, err := c.populate(ctx, canonical, mode, format, allowedExts)
		if err != nil {
			return nil, err
		}
		c.store(key, dir)
		return dir, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) populate(ctx context.Context, canonical string, mode prepMode, format archive.Format, allowedExts []string) (string, error) {
	root, err := c.ensureRoot()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, uuid.NewString())

	if mode == modeExtract {
		c.log.Debug(ctx, "preparing %s by extraction (%s)", canonical, format)
		if err := c.extract.Extract(ctx, canonical, dir, format); err != nil {
			return "", err
		}
		return dir, nil
	}

	c.log.Debug(ctx, "preparing %s by %s", canonical, mode)
	if err := fileutil.CopyTree(canonical, dir, allowedExts); err != nil {
		return "", err
	}
	return dir, nil
}

func (c *Cache) ensureRoot() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.root != "" {
		return c.root, nil
	}
	root, err := os.MkdirTemp(c.tempDir, "assproc-cache-*")
	if err != nil {
		return "", fmt.Errorf("create cache root: %w", err)
	}
	c.root = root
	return root, nil
}

func (c *Cache) lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dir, ok := c.entries[key]
	return dir, ok
}

func (c *Cache) store(key, dir string) {
	c.mu.Lock()
	c.entries[key] = dir
	c.mu.Unlock()
}

// Stats reports the number of cached entries and the number of prepared
// directories physically present under the cache root.
func (c *Cache) Stats() (entries, dirs int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries = len(c.entries)
	if c.root == "" {
		return entries, 0
	}
	listing, err := os.ReadDir(c.root)
	if err != nil {
		return entries, 0
	}
	return entries, len(listing)
}

// Cleanup removes the cache root and resets the cache to its initial
// state so the same instance can serve another run. Removal failures are
// logged, never returned.
func (c *Cache) Cleanup(ctx context.Context) {
	c.mu.Lock()
	root := c.root
	c.root = ""
	c.entries = make(map[string]string)
	c.mu.Unlock()

	if root == "" {
		return
	}
	if err := os.RemoveAll(root); err != nil {
		c.log.Warn(ctx, "cache cleanup failed for %s: %s", root, logger.FormatError(err))
		return
	}
	c.log.Debug(ctx, "cache root %s removed", root)
}

// canonicalPath resolves source to an absolute, symlink-free path so that
// different spellings of the same location share a cache entry.
func canonicalPath(source string) (string, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
