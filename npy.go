package npzheader

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-kit/log/level"

	"github.com/scigolib/npzheader/internal/npyformat"
)

// readSingleArray reports the one array of a .npy file. Only the header is
// read, so the value is always nil, scalars included.
func readSingleArray(path string, o *options) (*HeaderMap, error) {
	//nolint:gosec // G304: reading a caller-provided path is the purpose of the package
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	h, err := npyformat.ReadHeader(bufio.NewReader(f))
	if err != nil {
		return nil, classify(path, "", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), npyformat.Suffix)
	info := ItemInfo{Shape: h.Shape, DType: h.DType.String()}
	_ = level.Debug(o.logger).Log("msg", "read array header", "name", name,
		"version", h.Version, "shape", npyformat.FormatShape(h.Shape), "dtype", info.DType)

	m := NewHeaderMap()
	m.Set(name, info)
	return m, nil
}
