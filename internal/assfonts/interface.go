package assfonts

import "context"

// Client defines the interface for the font-embedding tool
type Client interface {
	// Embed runs the tool against one subtitle file with the given font
	// directories. The returned Invocation carries the exact command line
	// and both captured output streams, also when the run failed.
	Embed(ctx context.Context, subtitlePath, outputDir string, fontDirs []string) (Invocation, error)
	// ResultPattern returns the glob matching the artifact the tool
	// derives from subtitlePath inside its output directory.
	ResultPattern(subtitlePath string) string
}

// Invocation records a single tool run for logging.
type Invocation struct {
	CommandLine string
	Stdout      string
	Stderr      string
}
