package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/MuXiu1997/ass-processor/internal/batch"
	"github.com/MuXiu1997/ass-processor/internal/config"
	"github.com/MuXiu1997/ass-processor/internal/installer"
	"github.com/MuXiu1997/ass-processor/internal/logger"
	"github.com/MuXiu1997/ass-processor/internal/transform"
)

// app bundles the pieces every command assembles from the config file.
type app struct {
	cfg       *config.Config
	log       logger.Logger
	installer *installer.Installer
}

func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Logging.Level)
	inst := installer.New(log, installer.Options{
		Binary:      cfg.Tool.Binary,
		DownloadURL: cfg.Tool.DownloadURL,
		DataDir:     cfg.Paths.DataDir,
	})

	return &app{cfg: cfg, log: log, installer: inst}, nil
}

// ensureDirectories creates required directories if they don't exist
func (a *app) ensureDirectories() error {
	dirs := []string{
		a.cfg.Paths.DataDir,
		a.cfg.Paths.LogDir,
		a.cfg.Paths.TempDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// buildJobs maps job configs onto driver jobs, resolving each job's
// transform by name.
func (a *app) buildJobs(jobConfigs []config.JobConfig) ([]batch.Job, error) {
	keys := geminiKeys()

	jobs := make([]batch.Job, 0, len(jobConfigs))
	for _, jc := range jobConfigs {
		fn, err := transform.New(jc.Transform, transform.Options{
			APIKeys: keys,
			Model:   a.cfg.Transform.Model,
			Prompt:  a.cfg.Transform.Prompt,
			Logger:  a.log,
		})
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", jc.Name, err)
		}

		jobs = append(jobs, batch.Job{
			Name:           jc.Name,
			FontSources:    jc.Fonts,
			SubtitleSource: jc.SubtitleSource,
			SubtitleGlob:   jc.SubtitleGlob,
			OutputDir:      jc.OutputDir,
			VideoGlob:      jc.VideoGlob,
			OutputSuffix:   jc.OutputSuffix,
			Transform:      fn,
		})
	}

	return jobs, nil
}

func geminiKeys() []string {
	raw := os.Getenv("GEMINI_API_KEYS")
	if raw == "" {
		raw = os.Getenv("GEMINI_API_KEY")
	}

	var keys []string
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
