// Package match resolves glob patterns against directories.
package match

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolutionError reports a pattern that did not resolve to exactly one file.
type ResolutionError struct {
	Dir     string
	Pattern string
	Matches []string
}

func (e *ResolutionError) Error() string {
	if len(e.Matches) == 0 {
		return fmt.Sprintf("no file matches %q under %s", e.Pattern, e.Dir)
	}
	return fmt.Sprintf("%q under %s matched %d files: %s",
		e.Pattern, e.Dir, len(e.Matches), strings.Join(e.Matches, ", "))
}

// List returns the regular files under dir matching pattern, sorted by path.
// The pattern may span subdirectories ("sub/*.ass"). Directories and other
// non-regular entries never match.
func List(dir, pattern string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %q under %s: %w", pattern, dir, err)
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, p)
	}
	sort.Strings(files)
	return files, nil
}

// Unique resolves pattern under dir to exactly one file. Zero matches and
// multiple matches both fail with a ResolutionError listing what was found.
func Unique(dir, pattern string) (string, error) {
	files, err := List(dir, pattern)
	if err != nil {
		return "", err
	}
	if len(files) != 1 {
		return "", &ResolutionError{Dir: dir, Pattern: pattern, Matches: files}
	}
	return files[0], nil
}

// Escape quotes glob metacharacters in s so it matches only literally.
// Use it when embedding file names that may contain *, ? or [ into patterns.
func Escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
