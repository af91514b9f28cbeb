package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tool      ToolConfig      `yaml:"tool"`
	Paths     PathsConfig     `yaml:"paths"`
	Logging   LoggingConfig   `yaml:"logging"`
	Batch     BatchConfig     `yaml:"batch"`
	Transform TransformConfig `yaml:"transform"`
	Report    ReportConfig    `yaml:"report"`
	Watch     WatchConfig     `yaml:"watch"`
	Jobs      []JobConfig     `yaml:"jobs"`
}

type ToolConfig struct {
	Binary      string `yaml:"binary"`
	DownloadURL string `yaml:"download_url"`
	Verbosity   int    `yaml:"verbosity"`
}

type PathsConfig struct {
	DataDir string `yaml:"data_dir"`
	LogDir  string `yaml:"log_dir"`
	TempDir string `yaml:"temp_dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type BatchConfig struct {
	DisableLog     bool     `yaml:"disable_log"`
	LogPath        string   `yaml:"log_path"`
	FontExtensions []string `yaml:"font_extensions"`
}

type TransformConfig struct {
	Model  string `yaml:"model"`
	Prompt string `yaml:"prompt"`
}

type ReportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type WatchConfig struct {
	ManifestDir string `yaml:"manifest_dir"`
}

type JobConfig struct {
	Name           string   `yaml:"name"`
	Fonts          []string `yaml:"fonts"`
	SubtitleSource string   `yaml:"subtitle_source"`
	SubtitleGlob   string   `yaml:"subtitle_glob"`
	OutputDir      string   `yaml:"output_dir"`
	VideoGlob      string   `yaml:"video_glob"`
	OutputSuffix   string   `yaml:"output_suffix"`
	Transform      string   `yaml:"transform"`
}

func (c *Config) Validate() error {
	for i := range c.Jobs {
		if err := c.Jobs[i].validate(i); err != nil {
			return err
		}
	}

	if c.Tool.Binary == "" {
		c.Tool.Binary = "assfonts"
	}
	if c.Tool.Verbosity == 0 {
		c.Tool.Verbosity = 2
	}
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = "data"
	}
	if c.Paths.LogDir == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.TempDir == "" {
		c.Paths.TempDir = filepath.Join(c.Paths.DataDir, "temp")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if len(c.Batch.FontExtensions) == 0 {
		c.Batch.FontExtensions = []string{".ttf", ".otf", ".ttc", ".otc"}
	}
	// Extension filtering downstream compares lowercase.
	for i, ext := range c.Batch.FontExtensions {
		c.Batch.FontExtensions[i] = strings.ToLower(ext)
	}
	if c.Transform.Model == "" {
		c.Transform.Model = "gemini-2.5-flash"
	}
	if c.Report.Dir == "" {
		c.Report.Dir = filepath.Join(c.Paths.DataDir, "reports")
	}
	if c.Watch.ManifestDir == "" {
		c.Watch.ManifestDir = filepath.Join(c.Paths.DataDir, "manifests")
	}

	return nil
}

func (j *JobConfig) validate(index int) error {
	if len(j.Fonts) == 0 {
		return fmt.Errorf("jobs[%d].fonts is required", index)
	}
	if j.SubtitleSource == "" {
		return fmt.Errorf("jobs[%d].subtitle_source is required", index)
	}
	if j.OutputDir == "" {
		return fmt.Errorf("jobs[%d].output_dir is required", index)
	}

	if j.Name == "" {
		j.Name = fmt.Sprintf("job-%d", index+1)
	}
	if j.SubtitleGlob == "" {
		j.SubtitleGlob = "*.ass"
	}
	if j.VideoGlob == "" {
		j.VideoGlob = "*.mkv"
	}
	if j.OutputSuffix == "" {
		j.OutputSuffix = ".ass"
	}

	return nil
}

// Load reads the YAML config at path, applies defaults, and rejects
// configs with missing required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadJobs reads a job manifest: a YAML file whose top-level `jobs:` list
// uses the same schema as the main config. Watch mode feeds dropped
// manifests through this.
func LoadJobs(path string) ([]JobConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var manifest struct {
		Jobs []JobConfig `yaml:"jobs"`
	}
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(manifest.Jobs) == 0 {
		return nil, fmt.Errorf("manifest %s declares no jobs", path)
	}

	for i := range manifest.Jobs {
		if err := manifest.Jobs[i].validate(i); err != nil {
			return nil, fmt.Errorf("validate manifest %s: %w", path, err)
		}
	}

	return manifest.Jobs, nil
}
