// Package download fetches files over HTTP with explicit timeout handling.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ErrTimeout reports that a download exceeded its configured deadline.
var ErrTimeout = errors.New("download timed out")

// Options controls a single download.
type Options struct {
	// Headers are added to the request verbatim.
	Headers map[string]string
	// Timeout bounds the whole transfer. Zero means no deadline.
	Timeout time.Duration
}

// Fetch downloads rawURL into destPath and returns the final path.
// The body is written to a .part file first and renamed into place only
// after the transfer completed, so destPath never holds a partial file.
func Fetch(ctx context.Context, rawURL, destPath string, opts Options) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", wrapTimeout(ctx, fmt.Errorf("fetch %s: %w", rawURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	part := destPath + ".part"
	out, err := os.Create(part)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", part, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(part)
		return "", wrapTimeout(ctx, fmt.Errorf("write %s: %w", part, err))
	}
	if err := out.Close(); err != nil {
		os.Remove(part)
		return "", fmt.Errorf("close %s: %w", part, err)
	}

	if err := os.Rename(part, destPath); err != nil {
		os.Remove(part)
		return "", fmt.Errorf("finalize %s: %w", destPath, err)
	}
	return destPath, nil
}

// wrapTimeout rewrites deadline failures into ErrTimeout so callers can
// match them with errors.Is regardless of where the transfer was cut.
func wrapTimeout(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
