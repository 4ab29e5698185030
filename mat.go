package npzheader

import (
	"os"

	"github.com/go-kit/log/level"

	"github.com/scigolib/npzheader/internal/matfile"
	"github.com/scigolib/npzheader/internal/scalar"
)

// readTable lists the variables of a MATLAB file, then loads the values
// of the scalar-shaped ones in a second pass.
func readTable(path string, o *options) (*HeaderMap, error) {
	//nolint:gosec // G304: reading a caller-provided path is the purpose of the package
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}

	mf, err := matfile.Open(f, fi.Size())
	if err != nil {
		return nil, classify(path, "", err)
	}
	vars, err := mf.Variables()
	if err != nil {
		return nil, classify(path, "", err)
	}
	_ = level.Debug(o.logger).Log("msg", "listed variables", "path", path,
		"level", mf.Level(), "count", len(vars))

	// Only the last variable of a repeated name survives, so only that one
	// is worth loading.
	last := make(map[string]int, len(vars))
	for i, v := range vars {
		last[v.Name] = i
	}
	var (
		scalars []matfile.Variable
		names   []string
	)
	for i, v := range vars {
		if last[v.Name] == i && scalar.IsTableScalar(v.Shape) {
			scalars = append(scalars, v)
			names = append(names, v.Name)
		}
	}

	values, err := mf.LoadScalars(scalars, names)
	if err != nil {
		return nil, classify(path, "", err)
	}
	_ = level.Debug(o.logger).Log("msg", "loaded scalars", "path", path, "count", len(values))

	m := NewHeaderMap()
	for _, v := range vars {
		m.Set(v.Name, ItemInfo{Shape: v.Shape, DType: v.Class, Value: values[v.Name]})
	}
	return m, nil
}
