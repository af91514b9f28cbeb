package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineLegalPath(t *testing.T) {
	var m machine
	assert.Equal(t, StateIdle, m.current())

	require.NoError(t, m.to(StateRunning))
	assert.Equal(t, StateRunning, m.current())

	require.NoError(t, m.to(StateCompleted))
	assert.Equal(t, StateCompleted, m.current())
}

func TestMachineAbortPath(t *testing.T) {
	var m machine
	require.NoError(t, m.to(StateRunning))
	require.NoError(t, m.to(StateAborted))
	assert.Equal(t, StateAborted, m.current())
}

func TestMachineIllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		walk []State
		bad  State
	}{
		{name: "idle to completed", walk: nil, bad: StateCompleted},
		{name: "idle to aborted", walk: nil, bad: StateAborted},
		{name: "running to running", walk: []State{StateRunning}, bad: StateRunning},
		{name: "completed is terminal", walk: []State{StateRunning, StateCompleted}, bad: StateRunning},
		{name: "aborted is terminal", walk: []State{StateRunning, StateAborted}, bad: StateRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m machine
			for _, s := range tt.walk {
				require.NoError(t, m.to(s))
			}
			err := m.to(tt.bad)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "illegal state transition")
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "aborted", StateAborted.String())
	assert.Equal(t, "state(9)", State(9).String())
}
