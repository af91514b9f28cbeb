package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MuXiu1997/ass-processor/internal/assfonts"
	"github.com/MuXiu1997/ass-processor/internal/logger"
	"github.com/MuXiu1997/ass-processor/internal/match"
	"github.com/MuXiu1997/ass-processor/internal/prepare"
	"github.com/MuXiu1997/ass-processor/pkg/fileutil"
)

// Options configures a driver run.
type Options struct {
	// Log controls the batch log placement.
	Log LogOptions
	// FontExtensions restricts which files direct font directories
	// contribute. Archives are never filtered.
	FontExtensions []string
	// TempDir hosts the job-scoped output directories. Empty means the
	// system temp directory.
	TempDir string
}

// Driver runs batches of embedding jobs strictly in order, failing fast
// on the first job that cannot produce its output. A driver processes at
// most one batch; run State() to observe where it ended up.
type Driver struct {
	log   logger.Logger
	cache *prepare.Cache
	tool  assfonts.Client
	opts  Options
	state machine
}

// NewDriver creates a new batch driver
func NewDriver(log logger.Logger, cache *prepare.Cache, tool assfonts.Client, opts Options) *Driver {
	return &Driver{
		log:   log,
		cache: cache,
		tool:  tool,
		opts:  opts,
	}
}

// State reports the driver's lifecycle state.
func (d *Driver) State() State {
	return d.state.current()
}

// Process runs jobs sequentially. The first failure aborts the batch and
// the remaining jobs are never attempted. One Result per attempted job is
// returned in order; the batch log and the cache cleanup are settled
// before any aggregate error is handed back.
func (d *Driver) Process(ctx context.Context, jobs []Job) ([]Result, error) {
	if err := d.state.to(StateRunning); err != nil {
		return nil, err
	}
	startedAt := time.Now()

	blog, err := NewLog(d.opts.Log, startedAt, len(jobs))
	if err != nil {
		d.state.to(StateAborted)
		return nil, err
	}
	defer d.cache.Cleanup(ctx)
	defer blog.Close()

	d.log.Info(ctx, "========================================")
	d.log.Info(ctx, "batch started: %d job(s)", len(jobs))

	results := make([]Result, 0, len(jobs))
	var failure error
	for idx, job := range jobs {
		d.log.Info(ctx, "[%d/%d] job %q", idx+1, len(jobs), job.Name)
		res := d.runJob(ctx, job, blog)
		results = append(results, res)
		if !res.OK {
			failure = res.Err
			d.log.Error(ctx, "job %q failed: %s", job.Name, logger.FormatError(res.Err))
			break
		}
		d.log.Info(ctx, "job %q done -> %s", job.Name, res.OutputPath)
	}

	succeeded, failed := 0, 0
	for _, r := range results {
		if r.OK {
			succeeded++
		} else {
			failed++
		}
	}
	notAttempted := len(jobs) - len(results)

	blog.WriteSummary(succeeded, failed, notAttempted, time.Now())

	if failure != nil {
		d.state.to(StateAborted)
		return results, &BatchError{
			Succeeded:    succeeded,
			Failed:       failed,
			NotAttempted: notAttempted,
			LogPath:      blog.Path(),
			First:        failure,
		}
	}

	d.state.to(StateCompleted)
	d.log.Info(ctx, "batch complete: %d job(s)", succeeded)
	return results, nil
}

func (d *Driver) runJob(ctx context.Context, job Job, blog *Log) (res Result) {
	res.Name = job.Name
	block := Block{JobName: job.Name}
	defer func() {
		block.Timestamp = time.Now()
		block.OK = res.OK
		block.Err = res.Err
		blog.WriteBlock(block)
	}()

	fail := func(err error) Result {
		res.Err = err
		return res
	}

	// Font sources are independent, so they are prepared concurrently;
	// the cache guarantees each distinct source is populated once.
	fontDirs := make([]string, len(job.FontSources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range job.FontSources {
		g.Go(func() error {
			dir, err := d.cache.Prepare(gctx, src, "font source", d.opts.FontExtensions)
			if err != nil {
				return err
			}
			fontDirs[i] = dir
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	subDir, err := d.cache.Prepare(ctx, job.SubtitleSource, "subtitle source", nil)
	if err != nil {
		return fail(err)
	}

	subtitle, err := match.Unique(subDir, job.SubtitleGlob)
	if err != nil {
		return fail(fmt.Errorf("resolve subtitle: %w", err))
	}
	res.SubtitlePath = subtitle

	video, err := match.Unique(job.OutputDir, job.VideoGlob)
	if err != nil {
		return fail(fmt.Errorf("resolve video: %w", err))
	}

	if job.Transform != nil {
		if err := d.applyTransform(ctx, job, subtitle); err != nil {
			return fail(err)
		}
	}

	tempOut, err := os.MkdirTemp(d.opts.TempDir, "assproc-out-*")
	if err != nil {
		return fail(fmt.Errorf("create job output dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(tempOut); err != nil {
			d.log.Warn(ctx, "failed to remove job output dir %s: %s", tempOut, logger.FormatError(err))
		}
	}()

	inv, err := d.tool.Embed(ctx, subtitle, tempOut, fontDirs)
	block.CommandLine = inv.CommandLine
	block.Stdout = inv.Stdout
	block.Stderr = inv.Stderr
	if err != nil {
		return fail(err)
	}

	pattern := d.tool.ResultPattern(subtitle)
	artifact, err := match.Unique(tempOut, pattern)
	if err != nil {
		card := &OutputCardinalityError{Dir: tempOut, Pattern: pattern, Err: err}
		var resErr *match.ResolutionError
		if errors.As(err, &resErr) {
			card.Matches = resErr.Matches
		}
		return fail(card)
	}

	finalPath := filepath.Join(job.OutputDir, fileutil.Stem(video)+job.OutputSuffix)
	if err := fileutil.CopyFile(artifact, finalPath); err != nil {
		return fail(fmt.Errorf("commit output: %w", err))
	}

	res.OK = true
	res.OutputPath = finalPath
	return res
}

// applyTransform rewrites the prepared subtitle copy in place. Only the
// cache's working copy changes; the original source is never touched.
func (d *Driver) applyTransform(ctx context.Context, job Job, subtitle string) error {
	content, err := os.ReadFile(subtitle)
	if err != nil {
		return fmt.Errorf("read subtitle: %w", err)
	}

	d.log.Info(ctx, "transforming %s", filepath.Base(subtitle))
	out, err := job.Transform(ctx, string(content))
	if err != nil {
		return fmt.Errorf("transform subtitle: %w", err)
	}

	if err := os.WriteFile(subtitle, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write transformed subtitle: %w", err)
	}
	return nil
}
