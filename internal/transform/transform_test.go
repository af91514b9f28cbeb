package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuXiu1997/ass-processor/internal/logger"
)

func TestNewEmptyName(t *testing.T) {
	fn, err := New("", Options{})
	require.NoError(t, err)
	assert.Nil(t, fn, "empty name must mean no transform")
}

func TestNewUnknownName(t *testing.T) {
	_, err := New("llama", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transform")
}

func TestNewGeminiRequiresKeys(t *testing.T) {
	_, err := New("gemini", Options{Logger: logger.New("error")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestNewGemini(t *testing.T) {
	fn, err := New("gemini", Options{
		APIKeys: []string{"key-1"},
		Logger:  logger.New("error"),
	})
	require.NoError(t, err)
	assert.NotNil(t, fn)
}

func TestGeminiDefaults(t *testing.T) {
	g := &implGemini{apiKeys: []string{"k"}}
	if g.model == "" {
		g.model = defaultModel
	}
	assert.Equal(t, "gemini-2.5-flash", g.model)
	assert.Contains(t, defaultPrompt, "%s")
}

func TestRotateKey(t *testing.T) {
	g := &implGemini{apiKeys: []string{"a", "b", "c"}}

	assert.Equal(t, 0, g.currentKey)
	g.rotateKey()
	assert.Equal(t, 1, g.currentKey)
	g.rotateKey()
	g.rotateKey()
	assert.Equal(t, 0, g.currentKey, "rotation must wrap around")
}
