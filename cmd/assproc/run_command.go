package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/MuXiu1997/ass-processor/internal/assfonts"
	"github.com/MuXiu1997/ass-processor/internal/batch"
	"github.com/MuXiu1997/ass-processor/internal/prepare"
	"github.com/MuXiu1997/ass-processor/internal/report"
)

func newRunCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process the configured jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configFlag)
			if err != nil {
				return err
			}
			if len(a.cfg.Jobs) == 0 {
				return fmt.Errorf("config declares no jobs")
			}

			jobs, err := a.buildJobs(a.cfg.Jobs)
			if err != nil {
				return err
			}

			return a.runBatch(cmd.Context(), cmd, jobs)
		},
	}
}

// runBatch assembles a fresh driver, processes the jobs, prints the
// results table, and optionally writes the docx report. Drivers are
// single-use, so watch mode calls this once per manifest.
func (a *app) runBatch(ctx context.Context, cmd *cobra.Command, jobs []batch.Job) error {
	if err := a.ensureDirectories(); err != nil {
		return err
	}

	toolPath, err := a.installer.EnsureInstalled(ctx)
	if err != nil {
		return fmt.Errorf("ensure tool installed: %w", err)
	}

	a.log.Info(ctx, "========================================")
	a.log.Info(ctx, "Subtitle Font Embedding Batch")
	a.log.Info(ctx, "========================================")
	a.log.Info(ctx, "Tool: %s", toolPath)
	a.log.Info(ctx, "Jobs: %d", len(jobs))

	tool := assfonts.New(a.log,
		assfonts.WithBinary(toolPath),
		assfonts.WithVerbosity(a.cfg.Tool.Verbosity),
	)
	cache := prepare.NewCache(a.log, prepare.WithTempDir(a.cfg.Paths.TempDir))
	driver := batch.NewDriver(a.log, cache, tool, batch.Options{
		Log: batch.LogOptions{
			Disabled: a.cfg.Batch.DisableLog,
			Dir:      a.cfg.Paths.LogDir,
			Path:     a.cfg.Batch.LogPath,
		},
		FontExtensions: a.cfg.Batch.FontExtensions,
		TempDir:        a.cfg.Paths.TempDir,
	})

	startedAt := time.Now()
	results, batchErr := driver.Process(ctx, jobs)
	endedAt := time.Now()

	cmd.Println(renderResults(results))

	if a.cfg.Report.Enabled {
		a.writeReport(ctx, jobs, results, startedAt, endedAt)
	}

	return batchErr
}

func (a *app) writeReport(ctx context.Context, jobs []batch.Job, results []batch.Result, startedAt, endedAt time.Time) {
	path := filepath.Join(a.cfg.Report.Dir, "batch-"+startedAt.Format("20060102-150405")+".docx")
	summary := report.Summary{
		Title:        "Subtitle Font Embedding Batch",
		StartedAt:    startedAt,
		EndedAt:      endedAt,
		Results:      results,
		NotAttempted: len(jobs) - len(results),
	}

	if err := report.Write(summary, path); err != nil {
		a.log.Warn(ctx, "Failed to write report: %v", err)
		return
	}
	a.log.Info(ctx, "Report written: %s", path)
}
