package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuXiu1997/ass-processor/internal/logger"
)

func newTestEngine(opts ...EngineOption) *Engine {
	return NewEngine(logger.New("error"), opts...)
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	archive := writeFixture(t, dir, "fonts.zip", buildZip(t, map[string]string{
		"a.ttf":        "font a",
		"nested/b.otf": "font b",
	}))
	dest := filepath.Join(dir, "out")

	err := newTestEngine().Extract(context.Background(), archive, dest, FormatZip)
	require.NoError(t, err)

	a, err := os.ReadFile(filepath.Join(dest, "a.ttf"))
	require.NoError(t, err)
	assert.Equal(t, "font a", string(a))

	b, err := os.ReadFile(filepath.Join(dest, "nested", "b.otf"))
	require.NoError(t, err)
	assert.Equal(t, "font b", string(b))
}

func TestExtractZipCreatesDest(t *testing.T) {
	dir := t.TempDir()
	archive := writeFixture(t, dir, "fonts.zip", buildZip(t, map[string]string{"a.ttf": "x"}))
	dest := filepath.Join(dir, "does", "not", "exist")

	err := newTestEngine().Extract(context.Background(), archive, dest, FormatZip)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dest, "a.ttf"))
}

func TestExtractTar(t *testing.T) {
	dir := t.TempDir()
	archive := writeFixture(t, dir, "fonts.tar", buildTar(t, []tarEntry{
		{name: "fonts", dir: true, mode: 0o755},
		{name: "fonts/a.ttf", body: "font a", mode: 0o640},
		{name: "locked", dir: true, mode: 0},
		{name: "locked/zero.ttf", body: "zero mode", mode: 0},
	}))
	dest := filepath.Join(dir, "out")

	err := newTestEngine().Extract(context.Background(), archive, dest, FormatTar)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dest, "fonts", "a.ttf"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	locked, err := os.Stat(filepath.Join(dest, "locked"))
	require.NoError(t, err)
	assert.NotZero(t, locked.Mode().Perm()&0o500, "mode-0 directories must stay traversable")

	data, err := os.ReadFile(filepath.Join(dest, "locked", "zero.ttf"))
	require.NoError(t, err)
	assert.Equal(t, "zero mode", string(data))
}

func TestExtractTarSkipsLinks(t *testing.T) {
	dir := t.TempDir()
	tarData := buildTar(t, []tarEntry{
		{name: "real.ttf", body: "font", mode: 0o644},
		{name: "alias.ttf", link: "real.ttf", mode: 0o777},
	})
	archive := writeFixture(t, dir, "fonts.tar", tarData)
	dest := filepath.Join(dir, "out")

	require.NoError(t, newTestEngine().Extract(context.Background(), archive, dest, FormatTar))

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "symlink entries must be dropped")
	assert.Equal(t, "real.ttf", entries[0].Name())
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	tarData := buildTar(t, []tarEntry{
		{name: "a.ttf", body: "font a", mode: 0o644},
		{name: "collection", dir: true, mode: 0o755},
		{name: "collection/b.ttf", body: "font b", mode: 0o644},
	})
	archive := writeFixture(t, dir, "fonts.tar.gz", gzipBytes(t, tarData))
	dest := filepath.Join(dir, "out")

	err := newTestEngine().Extract(context.Background(), archive, dest, FormatTarGz)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "a.ttf"))
	require.NoError(t, err)
	assert.Equal(t, "font a", string(data))

	data, err = os.ReadFile(filepath.Join(dest, "collection", "b.ttf"))
	require.NoError(t, err)
	assert.Equal(t, "font b", string(data))

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "the intermediate tar must not land in the destination")
	for _, ent := range entries {
		assert.NotContains(t, ent.Name(), ".tar")
	}
}

func TestExtractTarGzRejectsNonGzip(t *testing.T) {
	dir := t.TempDir()
	archive := writeFixture(t, dir, "fonts.tar", buildTar(t, []tarEntry{
		{name: "a.ttf", body: "x", mode: 0o644},
	}))

	err := newTestEngine().Extract(context.Background(), archive, filepath.Join(dir, "out"), FormatTarGz)
	require.Error(t, err)

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, StageDecompress, extErr.Stage)
	assert.Equal(t, FormatTarGz, extErr.Format)
}

func TestExtractFormatNone(t *testing.T) {
	dir := t.TempDir()
	plain := writeFixture(t, dir, "plain.txt", []byte("not an archive"))

	err := newTestEngine().Extract(context.Background(), plain, filepath.Join(dir, "out"), FormatNone)
	require.Error(t, err)

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, StageMount, extErr.Stage)
}

func TestExtractCancelled(t *testing.T) {
	dir := t.TempDir()
	archive := writeFixture(t, dir, "fonts.zip", buildZip(t, map[string]string{"a.ttf": "x"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestEngine().Extract(ctx, archive, filepath.Join(dir, "out"), FormatZip)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractModePolicyOverride(t *testing.T) {
	dir := t.TempDir()
	archive := writeFixture(t, dir, "fonts.tar", buildTar(t, []tarEntry{
		{name: "a.ttf", body: "x", mode: 0o644},
	}))
	dest := filepath.Join(dir, "out")

	engine := newTestEngine(WithModePolicy(func(os.FileMode) (os.FileMode, bool) {
		return 0o600, true
	}))
	require.NoError(t, engine.Extract(context.Background(), archive, dest, FormatTar))

	info, err := os.Stat(filepath.Join(dest, "a.ttf"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestExtractNeutralizesTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := writeFixture(t, dir, "evil.zip", buildZip(t, map[string]string{
		"../evil.ttf": "escaped",
	}))
	dest := filepath.Join(dir, "out")

	require.NoError(t, newTestEngine().Extract(context.Background(), archive, dest, FormatZip))

	assert.FileExists(t, filepath.Join(dest, "evil.ttf"))
	assert.NoFileExists(t, filepath.Join(dir, "evil.ttf"))
}

func TestSoleEntry(t *testing.T) {
	env := newEnvironment(nil)
	defer env.Close()

	scratch, err := env.ScratchDir()
	require.NoError(t, err)

	entries, err := env.ReadDir(scratch)
	require.NoError(t, err)
	_, err = soleEntry(entries)
	assert.Error(t, err, "zero intermediates must fail")

	for _, name := range []string{"one.tar", "two.tar"} {
		f, err := env.Create(scratch + "/" + name)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	entries, err = env.ReadDir(scratch)
	require.NoError(t, err)
	_, err = soleEntry(entries)
	require.Error(t, err, "multiple intermediates must fail")
	assert.Contains(t, err.Error(), "found 2 entries")
}
