// Package installer resolves the font-embedding tool binary, downloading
// and unpacking it on first use when it is not already present.
package installer

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MuXiu1997/ass-processor/internal/archive"
	"github.com/MuXiu1997/ass-processor/internal/assfonts"
	"github.com/MuXiu1997/ass-processor/internal/logger"
	"github.com/MuXiu1997/ass-processor/pkg/download"
	"github.com/MuXiu1997/ass-processor/pkg/fileutil"
)

const defaultDownloadTimeout = 2 * time.Minute

// Options configures an Installer.
type Options struct {
	// Binary is the tool's path or bare command name.
	Binary string
	// DownloadURL is fetched when the tool cannot be found. Empty
	// disables downloading.
	DownloadURL string
	// DataDir hosts the installed binary and download scratch.
	DataDir string
	// Timeout bounds the download.
	Timeout time.Duration
}

// Status reports the availability of one external dependency.
type Status struct {
	Name    string
	Command string
	Path    string
	Err     error
}

// OK reports whether the dependency resolved.
func (s Status) OK() bool { return s.Err == nil }

// Installer locates the embedding tool. Resolution order: explicit path,
// PATH lookup, previously installed copy, download. A successful
// resolution is cached; failures are not, so callers retry by calling
// EnsureInstalled again.
type Installer struct {
	log     logger.Logger
	engine  *archive.Engine
	binary  string
	url     string
	dataDir string
	timeout time.Duration

	mu   sync.Mutex
	path string
}

// New creates a new Installer
func New(log logger.Logger, opts Options) *Installer {
	if opts.Binary == "" {
		opts.Binary = assfonts.DefaultBinary
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultDownloadTimeout
	}
	return &Installer{
		log:     log,
		engine:  archive.NewEngine(log),
		binary:  opts.Binary,
		url:     opts.DownloadURL,
		dataDir: opts.DataDir,
		timeout: opts.Timeout,
	}
}

// EnsureInstalled resolves the tool binary and returns its path.
func (i *Installer) EnsureInstalled(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.path != "" {
		return i.path, nil
	}
	path, err := i.locate(ctx)
	if err != nil {
		return "", err
	}
	i.path = path
	return path, nil
}

// Check probes the tool without installing anything.
func (i *Installer) Check() []Status {
	status := Status{Name: "font embedding tool", Command: i.binary}
	if path, ok := i.probe(); ok {
		status.Path = path
	} else if i.url != "" {
		status.Err = fmt.Errorf("not installed; will be downloaded from %s on first run", i.url)
	} else {
		status.Err = fmt.Errorf("not found on PATH and no download url configured")
	}
	return []Status{status}
}

func (i *Installer) locate(ctx context.Context) (string, error) {
	if path, ok := i.probe(); ok {
		return path, nil
	}
	if strings.ContainsRune(i.binary, os.PathSeparator) {
		return "", fmt.Errorf("configured tool binary %s does not exist", i.binary)
	}
	if i.url == "" {
		return "", fmt.Errorf("%s not found on PATH and no download url configured", i.binary)
	}
	return i.install(ctx)
}

func (i *Installer) probe() (string, bool) {
	if strings.ContainsRune(i.binary, os.PathSeparator) {
		if fileutil.Exists(i.binary) {
			return i.binary, true
		}
		return "", false
	}
	if path, err := exec.LookPath(i.binary); err == nil {
		return path, true
	}
	if installed := i.installedPath(); fileutil.Exists(installed) {
		return installed, true
	}
	return "", false
}

func (i *Installer) installedPath() string {
	return filepath.Join(i.dataDir, "bin", i.binary)
}

func (i *Installer) install(ctx context.Context) (string, error) {
	i.log.Info(ctx, "downloading %s from %s", i.binary, i.url)

	downloadDir := filepath.Join(i.dataDir, "downloads")
	fetched, err := download.Fetch(ctx, i.url, filepath.Join(downloadDir, i.downloadName()), download.Options{
		Timeout: i.timeout,
	})
	if err != nil {
		return "", fmt.Errorf("download tool: %w", err)
	}

	candidate := fetched
	if format := archive.Classify(fetched); format != archive.FormatNone {
		unpacked := filepath.Join(downloadDir, uuid.NewString())
		if err := i.engine.Extract(ctx, fetched, unpacked, format); err != nil {
			return "", fmt.Errorf("unpack tool: %w", err)
		}
		if candidate, err = findBinary(unpacked, i.binary); err != nil {
			return "", err
		}
	}

	installed := i.installedPath()
	if err := os.MkdirAll(filepath.Dir(installed), 0o755); err != nil {
		return "", fmt.Errorf("create install dir: %w", err)
	}
	if err := fileutil.CopyFileMode(candidate, installed, 0o755); err != nil {
		return "", fmt.Errorf("install tool: %w", err)
	}

	i.log.Info(ctx, "installed %s", installed)
	return installed, nil
}

func (i *Installer) downloadName() string {
	if u, err := url.Parse(i.url); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return i.binary
}

// findBinary walks an unpacked tool tree for exactly one file carrying
// the tool's name. Release archives nest the binary under versioned
// directories, so the search is recursive.
func findBinary(root, name string) (string, error) {
	var found []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.HasPrefix(d.Name(), name) {
			found = append(found, p)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(found) != 1 {
		return "", fmt.Errorf("expected exactly one %s binary in the unpacked tool, found %d", name, len(found))
	}
	return found[0], nil
}
