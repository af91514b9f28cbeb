// Package archive classifies and extracts font archives.
package archive

import (
	"errors"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
)

// Format is the closed set of archive formats the engine understands.
type Format string

const (
	FormatNone     Format = ""
	FormatZip      Format = "zip"
	FormatRar      Format = "rar"
	FormatSevenZip Format = "7z"
	FormatTar      Format = "tar"
	FormatTarGz    Format = "tar.gz"
)

func (f Format) String() string {
	if f == FormatNone {
		return "none"
	}
	return string(f)
}

// Classify sniffs the content of path and reports its archive format.
// Detection is purely content-based: file extensions are ignored. Gzip
// files qualify only when the decompressed stream is itself a tar archive;
// anything else, including unreadable paths, classifies as FormatNone.
func Classify(path string) Format {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return FormatNone
	}

	switch {
	case mtype.Is("application/zip"):
		return FormatZip
	case mtype.Is("application/x-rar-compressed"):
		return FormatRar
	case mtype.Is("application/x-7z-compressed"):
		return FormatSevenZip
	case mtype.Is("application/x-tar"):
		return FormatTar
	case mtype.Is("application/gzip"):
		if gzipWrapsTar(path) {
			return FormatTarGz
		}
	}
	return FormatNone
}

// gzipWrapsTar peeks at the first decompressed block and sniffs it for a
// tar header.
func gzipWrapsTar(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return false
	}
	defer zr.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(zr, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false
	}
	return mimetype.Detect(head[:n]).Is("application/x-tar")
}
