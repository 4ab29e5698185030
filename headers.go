// Package npzheader extracts array metadata from scientific storage files
// without loading array payloads.
//
// Three container formats are recognised by file name suffix:
//
//   - .npy: a single NumPy array,
//   - .npz: a zip archive of .npy members,
//   - .mat: a MATLAB Level 4 or Level 5 file.
//
// For every stored array GetHeaders reports its shape and element type.
// Scalar entries also carry their literal value.
package npzheader

import (
	"strings"

	"github.com/go-kit/log/level"

	"github.com/scigolib/npzheader/internal/matfile"
	"github.com/scigolib/npzheader/internal/npyformat"
)

// ArchiveSuffix is the file name suffix of NumPy archives.
const ArchiveSuffix = ".npz"

// FileFormat is the container format of a file.
type FileFormat int

// Recognised formats.
const (
	FormatUnknown FileFormat = iota
	FormatSingleArray
	FormatArchive
	FormatTable
)

func (f FileFormat) String() string {
	switch f {
	case FormatSingleArray:
		return "npy"
	case FormatArchive:
		return "npz"
	case FormatTable:
		return "mat"
	default:
		return "unknown"
	}
}

// DetectFormat classifies path by its suffix. Matching is case-sensitive.
func DetectFormat(path string) FileFormat {
	switch {
	case strings.HasSuffix(path, npyformat.Suffix):
		return FormatSingleArray
	case strings.HasSuffix(path, ArchiveSuffix):
		return FormatArchive
	case strings.HasSuffix(path, matfile.Suffix):
		return FormatTable
	default:
		return FormatUnknown
	}
}

// GetHeaders returns the name, shape, element type and scalar value of
// every array stored in the file at path.
//
// An empty path yields ErrNotFound. A path with an unrecognised suffix
// yields an empty map and no error. Files that cannot be opened or read
// yield an *IOError; malformed files yield a *FormatError.
func GetHeaders(path string, opts ...Option) (*HeaderMap, error) {
	if path == "" {
		return nil, ErrNotFound
	}
	o := newOptions(opts)

	format := DetectFormat(path)
	_ = level.Debug(o.logger).Log("msg", "detected format", "path", path, "format", format)

	switch format {
	case FormatSingleArray:
		return readSingleArray(path, o)
	case FormatArchive:
		return readArchive(path, o)
	case FormatTable:
		return readTable(path, o)
	default:
		return NewHeaderMap(), nil
	}
}
