package executor

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteCapturesStdout(t *testing.T) {
	orig := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "printf out; printf err >&2")
	}
	t.Cleanup(func() { commandContext = orig })

	res, err := New().Execute(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "out", res.Stdout)
	assert.Equal(t, "err", res.Stderr)
}

func TestExecuteFailureKeepsStreams(t *testing.T) {
	orig := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "printf partial; printf boom >&2; exit 3")
	}
	t.Cleanup(func() { commandContext = orig })

	res, err := New().Execute(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
	assert.Equal(t, "partial", res.Stdout)
	assert.Equal(t, "boom", res.Stderr)
}

func TestExecuteMissingBinary(t *testing.T) {
	_, err := New().Execute(context.Background(), "definitely-not-a-real-binary-42")
	assert.Error(t, err)
}
