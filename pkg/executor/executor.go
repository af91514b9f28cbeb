package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// commandContext is swapped out in tests to avoid spawning real processes.
var commandContext = exec.CommandContext

type implExecutor struct{}

// New creates a new Executor instance
func New() Executor {
	return &implExecutor{}
}

// Execute runs an external command with the given arguments and captures
// both output streams. On failure the captured streams are still returned
// so callers can surface them.
func (e *implExecutor) Execute(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := commandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		return res, fmt.Errorf("command '%s' failed: %w", name, err)
	}
	return res, nil
}
