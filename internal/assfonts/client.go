package assfonts

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/MuXiu1997/ass-processor/internal/match"
	"github.com/MuXiu1997/ass-processor/pkg/fileutil"
)

// ToolInvocationError reports a failed embedding-tool run.
type ToolInvocationError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ToolInvocationError) Error() string {
	msg := fmt.Sprintf("tool invocation failed: %v (command: %s)", e.Err, e.Command)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	return msg
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }

func (c *implClient) Embed(ctx context.Context, subtitlePath, outputDir string, fontDirs []string) (Invocation, error) {
	args := c.embedArgs(subtitlePath, outputDir, fontDirs)
	inv := Invocation{CommandLine: strings.Join(append([]string{c.binary}, args...), " ")}

	c.log.Debug(ctx, "invoking: %s", inv.CommandLine)
	res, err := c.exec.Execute(ctx, c.binary, args...)
	inv.Stdout, inv.Stderr = res.Stdout, res.Stderr
	if err != nil {
		return inv, &ToolInvocationError{
			Command: inv.CommandLine,
			Stderr:  strings.TrimSpace(res.Stderr),
			Err:     err,
		}
	}
	return inv, nil
}

func (c *implClient) embedArgs(subtitlePath, outputDir string, fontDirs []string) []string {
	args := []string{"-i", subtitlePath, "-o", outputDir}
	for _, dir := range fontDirs {
		args = append(args, "-f", dir)
	}
	return append(args, "-v", strconv.Itoa(c.verbosity))
}

// ResultPattern matches the tool's output naming: the subtitle's stem with
// an .assfonts marker before the new extension. The stem is glob-escaped
// so subtitle names containing metacharacters match literally.
func (c *implClient) ResultPattern(subtitlePath string) string {
	return match.Escape(fileutil.Stem(subtitlePath)) + ".assfonts.*"
}
