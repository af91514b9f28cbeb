package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/gzip"
	"github.com/nwaples/rardecode/v2"

	"github.com/MuXiu1997/ass-processor/internal/logger"
)

// Stage identifies the phase of an extraction that failed.
type Stage string

const (
	StageMount      Stage = "mount"
	StageDecompress Stage = "decompress"
	StageExtract    Stage = "extract"
)

// ExtractionError reports a failed extraction together with the stage it
// died in and the format being unpacked.
type ExtractionError struct {
	Stage  Stage
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s archive: %s stage: %v", e.Format, e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func stageErr(stage Stage, format Format, err error) error {
	if err == nil {
		return nil
	}
	return &ExtractionError{Stage: stage, Format: format, Err: err}
}

// Engine extracts classified archives into host directories. Every call
// runs inside a fresh private namespace: the archive's directory and the
// destination are mounted in under unique paths, scratch space is memory
// backed, and the namespace is torn down when the call returns whether
// the extraction succeeded or not.
type Engine struct {
	log    logger.Logger
	policy ModePolicy
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithModePolicy overrides how recorded permission bits are applied to
// extracted entries.
func WithModePolicy(p ModePolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// NewEngine creates a new extraction engine
func NewEngine(log logger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{log: log, policy: DefaultModePolicy}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract unpacks archivePath, already classified as format, into destDir.
// destDir is created if missing. Passing FormatNone is a caller bug:
// paths must be classified before they reach the engine.
func (e *Engine) Extract(ctx context.Context, archivePath, destDir string, format Format) error {
	if format == FormatNone {
		return stageErr(StageMount, format, errors.New("path was not classified as an archive"))
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return stageErr(StageMount, format, err)
	}

	env := newEnvironment(e.policy)
	defer env.Close()

	srcMount, err := env.Mount(filepath.Dir(archivePath))
	if err != nil {
		return stageErr(StageMount, format, err)
	}
	defer env.Unmount(srcMount)

	dstMount, err := env.Mount(destDir)
	if err != nil {
		return stageErr(StageMount, format, err)
	}
	defer env.Unmount(dstMount)

	src := path.Join(srcMount, filepath.Base(archivePath))
	e.log.Debug(ctx, "extracting %s archive %s -> %s", format, archivePath, destDir)

	switch format {
	case FormatZip:
		err = stageErr(StageExtract, format, extractZip(ctx, env, src, dstMount))
	case FormatRar:
		err = stageErr(StageExtract, format, extractRar(ctx, env, src, dstMount))
	case FormatSevenZip:
		err = stageErr(StageExtract, format, extractSevenZip(ctx, env, src, dstMount))
	case FormatTar:
		err = stageErr(StageExtract, format, extractTar(ctx, env, src, dstMount))
	case FormatTarGz:
		err = extractTarGz(ctx, env, src, dstMount)
	default:
		err = stageErr(StageMount, format, fmt.Errorf("unknown format %q", format))
	}
	if err != nil {
		return err
	}

	e.log.Debug(ctx, "extraction of %s complete", archivePath)
	return nil
}

// entryPath joins an archive entry name onto dst. Entry names are
// normalized so they can never escape the destination mount.
func entryPath(dst, name string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(name))
	if clean == "/" {
		return "", fmt.Errorf("entry name %q resolves to nothing", name)
	}
	return dst + clean, nil
}

// writeEntry streams one regular file into the environment and applies
// the recorded mode through the engine's policy.
func writeEntry(env *environment, target string, r io.Reader, recorded os.FileMode) error {
	if err := env.MkdirAll(path.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := env.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return env.Chmod(target, recorded)
}

func makeDir(env *environment, target string, recorded os.FileMode) error {
	if err := env.MkdirAll(target, 0o755); err != nil {
		return err
	}
	return env.Chmod(target, recorded)
}

func extractZip(ctx context.Context, env *environment, src, dst string) error {
	f, err := env.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return err
	}

	for _, entry := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := entryPath(dst, entry.Name)
		if err != nil {
			return err
		}
		fi := entry.FileInfo()
		switch {
		case fi.IsDir():
			err = makeDir(env, target, fi.Mode())
		case fi.Mode().IsRegular():
			err = func() error {
				rc, err := entry.Open()
				if err != nil {
					return err
				}
				defer rc.Close()
				return writeEntry(env, target, rc, fi.Mode())
			}()
		default:
			// symlinks and other irregular entries are dropped
			continue
		}
		if err != nil {
			return fmt.Errorf("entry %s: %w", entry.Name, err)
		}
	}
	return nil
}

func extractRar(ctx context.Context, env *environment, src, dst string) error {
	f, err := env.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	rr, err := rardecode.NewReader(f)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := entryPath(dst, hdr.Name)
		if err != nil {
			return err
		}
		if hdr.IsDir {
			err = makeDir(env, target, hdr.Mode())
		} else {
			err = writeEntry(env, target, rr, hdr.Mode())
		}
		if err != nil {
			return fmt.Errorf("entry %s: %w", hdr.Name, err)
		}
	}
}

func extractSevenZip(ctx context.Context, env *environment, src, dst string) error {
	f, err := env.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	zr, err := sevenzip.NewReader(f, info.Size())
	if err != nil {
		return err
	}

	for _, entry := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := entryPath(dst, entry.Name)
		if err != nil {
			return err
		}
		fi := entry.FileInfo()
		switch {
		case fi.IsDir():
			err = makeDir(env, target, fi.Mode())
		case fi.Mode().IsRegular():
			err = func() error {
				rc, err := entry.Open()
				if err != nil {
					return err
				}
				defer rc.Close()
				return writeEntry(env, target, rc, fi.Mode())
			}()
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("entry %s: %w", entry.Name, err)
		}
	}
	return nil
}

func extractTar(ctx context.Context, env *environment, src, dst string) error {
	f, err := env.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	return untar(ctx, env, f, dst)
}

func untar(ctx context.Context, env *environment, r io.Reader, dst string) error {
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := entryPath(dst, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			err = makeDir(env, target, hdr.FileInfo().Mode())
		case tar.TypeReg:
			err = writeEntry(env, target, tr, hdr.FileInfo().Mode())
		default:
			// links and devices are dropped
			continue
		}
		if err != nil {
			return fmt.Errorf("entry %s: %w", hdr.Name, err)
		}
	}
}

// extractTarGz runs the two-stage pipeline: decompress the gzip stream
// into scratch space, verify exactly one intermediate tar came out, then
// unpack that tar into the destination.
func extractTarGz(ctx context.Context, env *environment, src, dst string) error {
	scratch, err := env.ScratchDir()
	if err != nil {
		return stageErr(StageDecompress, FormatTarGz, err)
	}

	if err := gunzipToScratch(env, src, scratch); err != nil {
		return stageErr(StageDecompress, FormatTarGz, err)
	}

	entries, err := env.ReadDir(scratch)
	if err != nil {
		return stageErr(StageDecompress, FormatTarGz, err)
	}
	name, err := soleEntry(entries)
	if err != nil {
		return stageErr(StageDecompress, FormatTarGz, err)
	}

	inner, err := env.Open(path.Join(scratch, name))
	if err != nil {
		return stageErr(StageExtract, FormatTarGz, err)
	}
	defer inner.Close()

	return stageErr(StageExtract, FormatTarGz, untar(ctx, env, inner, dst))
}

// soleEntry enforces the intermediate contract of the two-stage pipeline:
// decompression must have produced exactly one tar in scratch space.
func soleEntry(entries []os.FileInfo) (string, error) {
	if len(entries) != 1 {
		return "", fmt.Errorf("expected exactly one intermediate tar, found %d entries", len(entries))
	}
	return entries[0].Name(), nil
}

func gunzipToScratch(env *environment, src, scratch string) error {
	f, err := env.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()

	name := strings.TrimSuffix(path.Base(src), path.Ext(src))
	if !strings.HasSuffix(name, ".tar") {
		name += ".tar"
	}
	out, err := env.Create(path.Join(scratch, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, zr); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
