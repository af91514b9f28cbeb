package match

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.ass", "a.ass", "c.srt", "nested/d.ass")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub.ass"), 0o755))

	files, err := List(dir, "*.ass")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "a.ass"),
		filepath.Join(dir, "b.ass"),
	}, files, "sorted, directories excluded, no recursion")
}

func TestListSubdirPattern(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "nested/d.ass")

	files, err := List(dir, "nested/*.ass")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestUnique(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "only.ass")

	got, err := Unique(dir, "*.ass")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "only.ass"), got)
}

func TestUniqueZeroMatches(t *testing.T) {
	dir := t.TempDir()

	_, err := Unique(dir, "*.ass")
	require.Error(t, err)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Empty(t, resErr.Matches)
	assert.Contains(t, err.Error(), "no file matches")
}

func TestUniqueMultipleMatches(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "one.ass", "two.ass")

	_, err := Unique(dir, "*.ass")
	require.Error(t, err)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Len(t, resErr.Matches, 2)
	assert.Contains(t, err.Error(), "one.ass")
	assert.Contains(t, err.Error(), "two.ass")
}

func TestEscape(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "weird [v2].ass", "weird 1v2].ass")

	got, err := Unique(dir, Escape("weird [v2]")+".ass")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "weird [v2].ass"), got)
}

func TestEscapePlainString(t *testing.T) {
	assert.Equal(t, "episode01", Escape("episode01"))
	assert.Equal(t, `star\*`, Escape("star*"))
	assert.Equal(t, `q\?`, Escape("q?"))
}
