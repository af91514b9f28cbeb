package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	dir := t.TempDir()

	zipData := buildZip(t, map[string]string{"a.ttf": "font"})
	tarData := buildTar(t, []tarEntry{{name: "a.ttf", body: "font", mode: 0o644}})

	tests := []struct {
		name string
		path string
		want Format
	}{
		{
			name: "zip by content",
			path: writeFixture(t, dir, "fonts.zip", zipData),
			want: FormatZip,
		},
		{
			name: "zip content with misleading extension",
			path: writeFixture(t, dir, "fonts.ttf", zipData),
			want: FormatZip,
		},
		{
			name: "tar by content",
			path: writeFixture(t, dir, "fonts.tar", tarData),
			want: FormatTar,
		},
		{
			name: "gzipped tar",
			path: writeFixture(t, dir, "fonts.tar.gz", gzipBytes(t, tarData)),
			want: FormatTarGz,
		},
		{
			name: "gzipped plain data is not an archive",
			path: writeFixture(t, dir, "notes.txt.gz", gzipBytes(t, []byte("just text, nothing else"))),
			want: FormatNone,
		},
		{
			name: "rar signature",
			path: writeFixture(t, dir, "fonts.rar", append([]byte("Rar!\x1a\x07\x00"), make([]byte, 64)...)),
			want: FormatRar,
		},
		{
			name: "rar5 signature",
			path: writeFixture(t, dir, "fonts5.rar", append([]byte("Rar!\x1a\x07\x01\x00"), make([]byte, 64)...)),
			want: FormatRar,
		},
		{
			name: "7z signature",
			path: writeFixture(t, dir, "fonts.7z", append([]byte("7z\xbc\xaf\x27\x1c"), make([]byte, 64)...)),
			want: FormatSevenZip,
		},
		{
			name: "plain text with archive extension",
			path: writeFixture(t, dir, "fake.zip", []byte("this is not an archive at all")),
			want: FormatNone,
		},
		{
			name: "empty file",
			path: writeFixture(t, dir, "empty", nil),
			want: FormatNone,
		},
		{
			name: "missing path",
			path: filepath.Join(dir, "does-not-exist"),
			want: FormatNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path))
		})
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "none", FormatNone.String())
	assert.Equal(t, "tar.gz", FormatTarGz.String())
	assert.Equal(t, "7z", FormatSevenZip.String())
}
