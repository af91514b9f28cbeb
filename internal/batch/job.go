// Package batch drives ordered, fail-fast runs of font-embedding jobs.
package batch

import "github.com/MuXiu1997/ass-processor/internal/transform"

// Job describes one subtitle-embedding unit of work.
type Job struct {
	Name string
	// FontSources are directories, archives or single font files whose
	// fonts the tool may embed.
	FontSources []string
	// SubtitleSource is the directory or archive holding the subtitle.
	SubtitleSource string
	// SubtitleGlob must resolve to exactly one file inside the prepared
	// subtitle source.
	SubtitleGlob string
	// OutputDir receives the final artifact and holds the video the
	// output is named after.
	OutputDir string
	// VideoGlob must resolve to exactly one video inside OutputDir.
	VideoGlob string
	// OutputSuffix is appended to the video's stem to build the output
	// file name.
	OutputSuffix string
	// Transform optionally rewrites the subtitle's working copy before
	// embedding. Nil means no rewrite.
	Transform transform.Func
}

// Result records the outcome of one attempted job.
type Result struct {
	Name         string
	OK           bool
	SubtitlePath string
	OutputPath   string
	Err          error
}
