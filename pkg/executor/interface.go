package executor

import "context"

// Executor defines the interface for executing external commands
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (Result, error)
}

// Result carries the captured output streams of a finished command
type Result struct {
	Stdout string
	Stderr string
}
