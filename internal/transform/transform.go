// Package transform applies optional rewrites to subtitle content before
// embedding.
package transform

import (
	"context"
	"fmt"

	"github.com/MuXiu1997/ass-processor/internal/logger"
)

// Func rewrites subtitle text. A nil Func means the subtitle is embedded
// untouched.
type Func func(ctx context.Context, text string) (string, error)

// Options carries the settings shared by all transform backends.
type Options struct {
	APIKeys []string
	Model   string
	Prompt  string
	Logger  logger.Logger
}

// New resolves a transform by name. The empty name resolves to nil.
func New(name string, opts Options) (Func, error) {
	switch name {
	case "":
		return nil, nil
	case "gemini":
		return newGemini(opts)
	default:
		return nil, fmt.Errorf("unknown transform %q", name)
	}
}
