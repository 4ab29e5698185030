package matfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	mocktesting "github.com/scigolib/npzheader/internal/testing"
)

func chars16(order binary.ByteOrder, s string) []byte {
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		units = append(units, uint16(r))
	}
	if order == binary.BigEndian {
		return mocktesting.BE(units)
	}
	return mocktesting.LE(units)
}

// level5Fixture holds one variable of every listing case.
func level5Fixture(order binary.ByteOrder) []byte {
	enc := mocktesting.LE
	if order == binary.BigEndian {
		enc = mocktesting.BE
	}

	return mocktesting.MAT5(order,
		mocktesting.Matrix{
			Name: "a", Class: mocktesting.MxDOUBLE, Dims: []int32{1, 1},
			RealType: mocktesting.MiDOUBLE, Real: enc(5.0),
		}.Element(order),
		mocktesting.Compressed(order, mocktesting.Matrix{
			Name: "count", Class: mocktesting.MxINT32, Dims: []int32{1, 1},
			RealType: mocktesting.MiINT32, Real: enc(int32(-12)),
		}.Element(order)),
		mocktesting.Matrix{
			Name: "packed", Class: mocktesting.MxDOUBLE, Dims: []int32{1, 1},
			RealType: mocktesting.MiUINT8, Real: []byte{7},
		}.Element(order),
		mocktesting.Matrix{
			Name: "grid", Class: mocktesting.MxDOUBLE, Dims: []int32{3, 4},
			RealType: mocktesting.MiDOUBLE, Real: enc(make([]float64, 12)),
		}.Element(order),
		mocktesting.Compressed(order, mocktesting.Matrix{
			Name: "greeting", Class: mocktesting.MxCHAR, Dims: []int32{1, 5},
			RealType: mocktesting.MiUINT16, Real: chars16(order, "hello"),
		}.Element(order)),
		mocktesting.Matrix{
			Name: "lines", Class: mocktesting.MxCHAR, Dims: []int32{2, 3},
			RealType: mocktesting.MiUINT16, Real: chars16(order, "abcdef"),
		}.Element(order),
		mocktesting.Matrix{
			Name: "z", Class: mocktesting.MxDOUBLE, Dims: []int32{1, 1}, Complex: true,
			RealType: mocktesting.MiDOUBLE, Real: enc(1.0),
			ImagType: mocktesting.MiDOUBLE, Imag: enc(-2.0),
		}.Element(order),
		mocktesting.Matrix{
			Name: "flag", Class: mocktesting.MxUINT8, Dims: []int32{1, 1}, Logical: true,
			RealType: mocktesting.MiUINT8, Real: []byte{1},
		}.Element(order),
		mocktesting.Matrix{
			Name: "box", Class: mocktesting.MxCELL, Dims: []int32{1, 1},
		}.Element(order),
		mocktesting.Matrix{
			Name: "big", Class: mocktesting.MxUINT64, Dims: []int32{1, 1},
			RealType: mocktesting.MiUINT64, Real: enc(uint64(1) << 63),
		}.Element(order),
	)
}

func openBytes(t *testing.T, data []byte) *File {
	t.Helper()
	f, err := Open(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return f
}

func TestLevel5_Variables(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			f := openBytes(t, level5Fixture(order))
			require.Equal(t, Level5, f.Level())
			require.Equal(t, order, f.ByteOrder())

			vars, err := f.Variables()
			require.NoError(t, err)

			type listing struct {
				name  string
				shape []int
				class string
			}
			var got []listing
			for _, v := range vars {
				got = append(got, listing{v.Name, v.Shape, v.Class})
			}
			require.Equal(t, []listing{
				{"a", []int{1, 1}, "double"},
				{"count", []int{1, 1}, "int32"},
				{"packed", []int{1, 1}, "double"},
				{"grid", []int{3, 4}, "double"},
				{"greeting", []int{1}, "char"},
				{"lines", []int{2}, "char"},
				{"z", []int{1, 1}, "double"},
				{"flag", []int{1, 1}, "logical"},
				{"box", []int{1, 1}, "cell"},
				{"big", []int{1, 1}, "uint64"},
			}, got)
		})
	}
}

func TestLevel5_LoadScalars(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			f := openBytes(t, level5Fixture(order))
			vars, err := f.Variables()
			require.NoError(t, err)

			values, err := f.LoadScalars(vars, []string{"a", "count", "packed", "greeting", "z", "flag", "box", "big"})
			require.NoError(t, err)
			require.Equal(t, map[string]any{
				"a":        5.0,
				"count":    int64(-12),
				"packed":   7.0,
				"greeting": "hello",
				"z":        complex(1, -2),
				"flag":     true,
				"big":      uint64(1) << 63,
			}, values)
		})
	}
}

func TestLevel5_LoadScalarsRestrictedToNames(t *testing.T) {
	f := openBytes(t, level5Fixture(binary.LittleEndian))
	vars, err := f.Variables()
	require.NoError(t, err)

	values, err := f.LoadScalars(vars, []string{"count"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"count": int64(-12)}, values)

	values, err = f.LoadScalars(vars, nil)
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestLevel5_RefusesNonScalar(t *testing.T) {
	f := openBytes(t, level5Fixture(binary.LittleEndian))
	vars, err := f.Variables()
	require.NoError(t, err)

	_, err = f.LoadScalars(vars, []string{"grid"})
	require.Error(t, err)
}

func TestLevel5_WorkspaceName(t *testing.T) {
	order := binary.LittleEndian
	data := mocktesting.MAT5(order, mocktesting.Matrix{
		Name: "", Class: mocktesting.MxUINT8, Dims: []int32{1, 8},
		RealType: mocktesting.MiUINT8, Real: make([]byte, 8),
	}.Element(order))

	vars, err := openBytes(t, data).Variables()
	require.NoError(t, err)
	require.Len(t, vars, 1)
	require.Equal(t, WorkspaceName, vars[0].Name)
}

func TestLevel5_EmptyFile(t *testing.T) {
	vars, err := openBytes(t, mocktesting.MAT5(binary.LittleEndian)).Variables()
	require.NoError(t, err)
	require.Empty(t, vars)
}

func TestLevel5_FunctionHandle(t *testing.T) {
	order := binary.LittleEndian
	data := mocktesting.MAT5(order,
		mocktesting.Matrix{
			Name: "fh", Class: mocktesting.MxFUNCTION, Dims: []int32{1, 1},
			Body: mocktesting.SubElement(order, mocktesting.MiMATRIX, nil),
		}.Element(order),
	)
	f := openBytes(t, data)

	vars, err := f.Variables()
	require.NoError(t, err)
	require.Len(t, vars, 1)
	require.Equal(t, "fh", vars[0].Name)
	require.Equal(t, []int{}, vars[0].Shape)
	require.Equal(t, "function", vars[0].Class)
}

func TestLevel5_Errors(t *testing.T) {
	order := binary.LittleEndian
	good := mocktesting.Matrix{
		Name: "a", Class: mocktesting.MxDOUBLE, Dims: []int32{1, 1},
		RealType: mocktesting.MiDOUBLE, Real: mocktesting.LE(1.0),
	}.Element(order)

	notMatrix := mocktesting.SubElement(order, mocktesting.MiDOUBLE, mocktesting.LE(1.0, 2.0))

	badFlags := append([]byte{}, good...)
	order.PutUint32(badFlags[8:], mocktesting.MiDOUBLE) // flags sub-element type

	unknownClass := mocktesting.Matrix{
		Name: "odd", Class: 42, Dims: []int32{1, 1},
		RealType: mocktesting.MiDOUBLE, Real: mocktesting.LE(1.0),
	}.Element(order)

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated element", mocktesting.MAT5(order, good[:len(good)-4])},
		{"unknown class", mocktesting.MAT5(order, unknownClass)},
		{"truncated tag", mocktesting.MAT5(order, good, []byte{14, 0, 0})},
		{"not a matrix", mocktesting.MAT5(order, notMatrix)},
		{"bad array flags", mocktesting.MAT5(order, badFlags)},
		{"corrupt compressed stream", mocktesting.MAT5(order, append(
			mocktesting.LE(uint32(mocktesting.MiCOMPRESSED), uint32(8)), []byte("notzlib!")...))},
		{"compressed non-matrix", mocktesting.MAT5(order, mocktesting.Compressed(order, notMatrix))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := openBytes(t, tt.data).Variables()
			require.ErrorIs(t, err, ErrBadElement)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	v73 := make([]byte, 1024)
	copy(v73, "MATLAB 7.3 MAT-file, Platform: GLNXA64, HDF5 schema 1.00")
	binary.LittleEndian.PutUint16(v73[124:], 0x0200)
	copy(v73[126:], "IM")
	copy(v73[512:], hdf5Signature)

	v2NoHDF := append([]byte{}, v73...)
	copy(v2NoHDF[512:], "notHDF5!")

	badEndian := mocktesting.MAT5(binary.LittleEndian)
	copy(badEndian[124:], []byte{1, 0, 'X', 'X'})

	unknown := mocktesting.MAT5(binary.LittleEndian)
	binary.LittleEndian.PutUint16(unknown[124:], 0x0900)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"too short", []byte{1, 2}, ErrBadHeader},
		{"short level 5 header", []byte("MATLAB 5.0"), ErrBadHeader},
		{"level 7.3", v73, ErrUnsupportedVersion},
		{"version 2 without hdf5", v2NoHDF, ErrBadHeader},
		{"bad endian indicator", badEndian, ErrBadHeader},
		{"unknown version", unknown, ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(bytes.NewReader(tt.data), int64(len(tt.data)))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOpen_ReadFailure(t *testing.T) {
	data := level5Fixture(binary.LittleEndian)
	r := mocktesting.NewMockReaderAt(data).FailAt(200)

	f, err := Open(r, r.Size())
	require.NoError(t, err)

	_, err = f.Variables()
	require.Error(t, err)
}

func level4Fixture(order binary.ByteOrder) []byte {
	enc := mocktesting.LE
	mBase := int32(0)
	if order == binary.BigEndian {
		enc = mocktesting.BE
		mBase = 1000
	}

	var buf bytes.Buffer
	buf.Write(mocktesting.MAT4Var(order, mBase+0, 1, 1, false, "x", enc(2.5)))
	buf.Write(mocktesting.MAT4Var(order, mBase+1, 1, 3, false, "label", enc([]float64{'a', 'b', 'c'})))
	buf.Write(mocktesting.MAT4Var(order, mBase+0, 2, 3, false, "m", enc(make([]float64, 6))))
	buf.Write(mocktesting.MAT4Var(order, mBase+20, 1, 1, false, "n", enc(int32(-4))))
	buf.Write(mocktesting.MAT4Var(order, mBase+0, 1, 1, true, "w", enc([]float64{3, 4})))
	// Sparse storage is column-major: row indices, column indices, values.
	// The last row holds the extent (rows, cols, 0).
	buf.Write(mocktesting.MAT4Var(order, mBase+2, 2, 3, false, "sp", enc([]float64{1, 5, 1, 9, 7, 0})))
	buf.Write(mocktesting.MAT4Var(order, mBase+50, 1, 1, false, "b", []byte{200}))
	return buf.Bytes()
}

func TestLevel4(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			f := openBytes(t, level4Fixture(order))
			require.Equal(t, Level4, f.Level())
			require.Equal(t, order, f.ByteOrder())

			vars, err := f.Variables()
			require.NoError(t, err)
			require.Len(t, vars, 7)

			shapes := map[string][]int{}
			classes := map[string]string{}
			var names []string
			for _, v := range vars {
				names = append(names, v.Name)
				shapes[v.Name] = v.Shape
				classes[v.Name] = v.Class
			}
			require.Equal(t, []string{"x", "label", "m", "n", "w", "sp", "b"}, names)
			require.Equal(t, []int{1, 1}, shapes["x"])
			require.Equal(t, []int{1}, shapes["label"])
			require.Equal(t, []int{2, 3}, shapes["m"])
			require.Equal(t, []int{5, 9}, shapes["sp"])
			require.Equal(t, "double", classes["x"])
			require.Equal(t, "char", classes["label"])
			require.Equal(t, "sparse", classes["sp"])

			values, err := f.LoadScalars(vars, []string{"x", "label", "n", "w", "b"})
			require.NoError(t, err)
			require.Equal(t, map[string]any{
				"x":     2.5,
				"label": "abc",
				"n":     int64(-4),
				"w":     complex(3, 4),
				"b":     uint64(200),
			}, values)
		})
	}
}

func TestLevel4_Errors(t *testing.T) {
	order := binary.LittleEndian
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"O digit set", mocktesting.MAT4Var(order, 100, 1, 1, false, "x", mocktesting.LE(1.0)), ErrBadHeader},
		{"unknown precision", mocktesting.MAT4Var(order, 60, 1, 1, false, "x", mocktesting.LE(1.0)), ErrBadElement},
		{"unknown matrix type", mocktesting.MAT4Var(order, 3, 1, 1, false, "x", mocktesting.LE(1.0)), ErrBadElement},
		{"data past end", mocktesting.MAT4Var(order, 0, 2, 2, false, "x", mocktesting.LE(1.0)), ErrBadElement},
		{"truncated header", mocktesting.LE(int32(0), int32(1), int32(1)), ErrBadElement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := openBytes(t, tt.data).Variables()
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
