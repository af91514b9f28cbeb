package assfonts

import (
	"github.com/MuXiu1997/ass-processor/internal/logger"
	"github.com/MuXiu1997/ass-processor/pkg/executor"
)

const (
	// DefaultBinary is the tool looked up on PATH when no explicit path
	// is configured.
	DefaultBinary = "assfonts"
	// DefaultVerbosity matches the tool's own default log level.
	DefaultVerbosity = 2
)

type implClient struct {
	binary    string
	verbosity int
	exec      executor.Executor
	log       logger.Logger
}

// Option configures the client.
type Option func(*implClient)

// WithBinary sets the tool binary path.
func WithBinary(path string) Option {
	return func(c *implClient) {
		if path != "" {
			c.binary = path
		}
	}
}

// WithVerbosity sets the -v level passed to the tool.
func WithVerbosity(v int) Option {
	return func(c *implClient) { c.verbosity = v }
}

// WithExecutor swaps the command executor, used by tests.
func WithExecutor(e executor.Executor) Option {
	return func(c *implClient) { c.exec = e }
}

// New creates a new tool client
func New(log logger.Logger, opts ...Option) Client {
	c := &implClient{
		binary:    DefaultBinary,
		verbosity: DefaultVerbosity,
		log:       log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.exec == nil {
		c.exec = executor.New()
	}
	return c
}
