package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MuXiu1997/ass-processor/internal/logger"
)

var logSeparator = strings.Repeat("=", 72)

const (
	logTimeLayout     = "2006-01-02 15:04:05"
	logFileTimeLayout = "20060102-150405"

	emptyPlaceholder      = "(empty)"
	notInvokedPlaceholder = "(not invoked)"
)

// LogOptions controls where the batch log goes.
type LogOptions struct {
	// Disabled turns the batch log off entirely.
	Disabled bool
	// Dir receives generated per-run log files.
	Dir string
	// Path, when set, names one log file that runs append to.
	Path string
}

// Log is the append-only batch log. A nil *Log is valid and writes
// nothing, which is how disabled logging is represented.
type Log struct {
	f    *os.File
	path string
}

// NewLog opens the batch log and writes the run header. It returns a nil
// Log when logging is disabled.
func NewLog(opts LogOptions, startedAt time.Time, jobs int) (*Log, error) {
	if opts.Disabled {
		return nil, nil
	}

	path := opts.Path
	if path == "" {
		path = filepath.Join(opts.Dir, "batch-"+startedAt.Format(logFileTimeLayout)+".log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create batch log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open batch log: %w", err)
	}

	l := &Log{f: f, path: path}
	fmt.Fprintln(f, logSeparator)
	fmt.Fprintf(f, "batch started: %s\n", startedAt.Format(logTimeLayout))
	fmt.Fprintf(f, "jobs: %d\n", jobs)
	return l, nil
}

// Path returns the log file location, empty when logging is disabled.
func (l *Log) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Block is one attempted job's log entry.
type Block struct {
	Timestamp   time.Time
	JobName     string
	OK          bool
	CommandLine string
	Stdout      string
	Stderr      string
	Err         error
}

// WriteBlock appends one job block. Sections with nothing to say carry a
// placeholder so the log keeps its shape.
func (l *Log) WriteBlock(b Block) {
	if l == nil {
		return
	}

	status := "SUCCESS"
	if !b.OK {
		status = "FAILED"
	}
	command := b.CommandLine
	if command == "" {
		command = notInvokedPlaceholder
	}

	fmt.Fprintln(l.f, logSeparator)
	fmt.Fprintf(l.f, "[%s] job %q %s\n", b.Timestamp.Format(logTimeLayout), b.JobName, status)
	fmt.Fprintf(l.f, "command: %s\n", command)
	fmt.Fprintln(l.f, "--- stdout ---")
	fmt.Fprintln(l.f, orPlaceholder(b.Stdout))
	fmt.Fprintln(l.f, "--- stderr ---")
	fmt.Fprintln(l.f, orPlaceholder(b.Stderr))
	if b.Err != nil {
		fmt.Fprintf(l.f, "error: %s\n", logger.FormatError(b.Err))
	}
}

// WriteSummary appends the closing counts and timestamp.
func (l *Log) WriteSummary(succeeded, failed, notAttempted int, endedAt time.Time) {
	if l == nil {
		return
	}
	fmt.Fprintln(l.f, logSeparator)
	fmt.Fprintf(l.f, "succeeded: %d\n", succeeded)
	fmt.Fprintf(l.f, "failed: %d\n", failed)
	fmt.Fprintf(l.f, "not attempted: %d\n", notAttempted)
	fmt.Fprintf(l.f, "batch finished: %s\n", endedAt.Format(logTimeLayout))
	fmt.Fprintln(l.f, logSeparator)
}

// Close flushes and closes the log file.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.f.Close()
}

func orPlaceholder(s string) string {
	s = strings.TrimRight(s, "\n")
	if strings.TrimSpace(s) == "" {
		return emptyPlaceholder
	}
	return s
}
