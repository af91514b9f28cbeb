package batch

import (
	"fmt"
	"strings"
)

// BatchError aggregates a failed batch run. It is returned only after the
// results, the batch log and the cache cleanup are all settled.
type BatchError struct {
	Succeeded    int
	Failed       int
	NotAttempted int
	LogPath      string
	// First is the failure that aborted the batch.
	First error
}

func (e *BatchError) Error() string {
	msg := fmt.Sprintf("batch aborted: %d succeeded, %d failed, %d not attempted",
		e.Succeeded, e.Failed, e.NotAttempted)
	if e.LogPath != "" {
		msg += fmt.Sprintf(" (log: %s)", e.LogPath)
	}
	if e.First != nil {
		msg += ": " + e.First.Error()
	}
	return msg
}

func (e *BatchError) Unwrap() error { return e.First }

// OutputCardinalityError reports a tool run that left no artifact, or
// more than one, matching the result pattern in the job's output scratch.
type OutputCardinalityError struct {
	Dir     string
	Pattern string
	Matches []string
	Err     error
}

func (e *OutputCardinalityError) Error() string {
	if len(e.Matches) == 0 {
		return fmt.Sprintf("tool produced no artifact matching %q in %s", e.Pattern, e.Dir)
	}
	return fmt.Sprintf("tool produced %d artifacts matching %q in %s: %s",
		len(e.Matches), e.Pattern, e.Dir, strings.Join(e.Matches, ", "))
}

func (e *OutputCardinalityError) Unwrap() error { return e.Err }
