package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MuXiu1997/ass-processor/internal/config"
	"github.com/MuXiu1997/ass-processor/internal/watcher"
)

func newWatchCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the manifest directory and run a batch per dropped manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configFlag)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if err := a.ensureDirectories(); err != nil {
				return err
			}
			if err := os.MkdirAll(a.cfg.Watch.ManifestDir, 0755); err != nil {
				return fmt.Errorf("create manifest directory: %w", err)
			}

			handler := func(ctx context.Context, manifestPath string) error {
				jobConfigs, err := config.LoadJobs(manifestPath)
				if err != nil {
					return err
				}
				jobs, err := a.buildJobs(jobConfigs)
				if err != nil {
					return err
				}
				return a.runBatch(ctx, cmd, jobs)
			}

			w, err := watcher.New(a.cfg.Watch.ManifestDir, handler, a.log)
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer w.Stop()

			// Setup graceful shutdown
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			errChan := make(chan error, 1)
			go func() {
				if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					errChan <- err
				}
			}()

			a.log.Info(ctx, "========================================")
			a.log.Info(ctx, "Manifest watch mode is ready")
			a.log.Info(ctx, "Monitoring: %s", a.cfg.Watch.ManifestDir)
			a.log.Info(ctx, "Press Ctrl+C to stop")
			a.log.Info(ctx, "========================================")

			select {
			case <-sigChan:
				a.log.Info(ctx, "Shutdown signal received")
			case err := <-errChan:
				return fmt.Errorf("watcher: %w", err)
			}

			// Graceful shutdown
			a.log.Info(ctx, "Shutting down gracefully...")
			cancel()

			return nil
		},
	}
}
