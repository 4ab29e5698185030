package npyformat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scigolib/npzheader/internal/scalar"
	mocktesting "github.com/scigolib/npzheader/internal/testing"
)

func TestReadHeader(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantShape []int
		wantDType string
		fortran   bool
		version   Version
	}{
		{
			name:      "version 1.0 vector",
			data:      mocktesting.NPY("<f8", []int{50}, make([]byte, 400)),
			wantShape: []int{50},
			wantDType: "float64",
			version:   Version{1, 0},
		},
		{
			name:      "scalar",
			data:      mocktesting.NPY("<i8", nil, make([]byte, 8)),
			wantShape: []int{},
			wantDType: "int64",
			version:   Version{1, 0},
		},
		{
			name:      "version 2.0 fortran matrix",
			data:      mocktesting.NPYHeader(2, mocktesting.NPYDict("<c16", true, []int{3, 4}), nil),
			wantShape: []int{3, 4},
			wantDType: "complex128",
			fortran:   true,
			version:   Version{2, 0},
		},
		{
			name:      "version 3.0 utf-8 header",
			data:      mocktesting.NPYHeader(3, mocktesting.NPYDict("<U7", false, nil), nil),
			wantShape: []int{},
			wantDType: "<U7",
			version:   Version{3, 0},
		},
		{
			name:      "keys in any order",
			data:      mocktesting.NPYHeader(1, "{'shape': (2, 2), 'descr': '>i4', 'fortran_order': False}", nil),
			wantShape: []int{2, 2},
			wantDType: ">i4",
			version:   Version{1, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ReadHeader(bytes.NewReader(tt.data))
			require.NoError(t, err)
			require.Equal(t, tt.wantShape, h.Shape)
			require.Equal(t, tt.wantDType, h.DType.String())
			require.Equal(t, tt.fortran, h.FortranOrder)
			require.Equal(t, tt.version, h.Version)
		})
	}
}

func TestReadHeader_PayloadAlignment(t *testing.T) {
	data := mocktesting.NPY("<f8", []int{50}, nil)
	r := bytes.NewReader(data)

	_, err := ReadHeader(r)
	require.NoError(t, err)
	require.Zero(t, r.Len(), "header must consume the padding and newline")
	require.Zero(t, len(data)%64)
}

func TestReadMagic_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrBadMagic},
		{"truncated", []byte("\x93NUM"), ErrBadMagic},
		{"wrong prefix", []byte("PK\x03\x04\x14\x00\x00\x00"), ErrBadMagic},
		{"version zero", []byte("\x93NUMPY\x00\x00"), ErrBadVersion},
		{"version four", []byte("\x93NUMPY\x04\x00"), ErrBadVersion},
		{"minor version", []byte("\x93NUMPY\x01\x01"), ErrBadVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMagic(bytes.NewReader(tt.data))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReadArrayHeader_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"missing length", []byte("\x93NUMPY\x01\x00\x10")},
		{"zero length", []byte("\x93NUMPY\x01\x00\x00\x00")},
		{"truncated header", []byte("\x93NUMPY\x01\x00\x40\x00{'descr'")},
		{"not a dict", mocktesting.NPYHeader(1, "('<f8', False, (3,))", nil)},
		{"missing key", mocktesting.NPYHeader(1, "{'descr': '<f8', 'shape': (3,)}", nil)},
		{"extra key", mocktesting.NPYHeader(1, "{'descr': '<f8', 'fortran_order': False, 'shape': (3,), 'x': 1}", nil)},
		{"shape not tuple", mocktesting.NPYHeader(1, "{'descr': '<f8', 'fortran_order': False, 'shape': [3]}", nil)},
		{"negative extent", mocktesting.NPYHeader(1, "{'descr': '<f8', 'fortran_order': False, 'shape': (-1,)}", nil)},
		{"fortran not bool", mocktesting.NPYHeader(1, "{'descr': '<f8', 'fortran_order': 0, 'shape': (3,)}", nil)},
		{"bad descr", mocktesting.NPYHeader(1, "{'descr': '<q9', 'fortran_order': False, 'shape': (3,)}", nil)},
		{"garbage", mocktesting.NPYHeader(1, "{'descr': <f8}", nil)},
		{"invalid utf-8 in v3", mocktesting.NPYHeader(3, "{'descr': '\xff'}", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHeader(bytes.NewReader(tt.data))
			require.ErrorIs(t, err, ErrBadHeader)
		})
	}
}

func TestReadItem(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want any
	}{
		{"int64", mocktesting.NPY("<i8", nil, mocktesting.LE(int64(-5))), int64(-5)},
		{"float64", mocktesting.NPY("<f8", nil, mocktesting.LE(-3.0)), -3.0},
		{"complex128", mocktesting.NPY("<c16", nil, mocktesting.Complex128(complex(1, 1))), complex(1, 1)},
		{"unicode", mocktesting.NPY("<U7", nil, mocktesting.UCS4("dhrwodn", 7)), "dhrwodn"},
		{"padded unicode", mocktesting.NPY("<U5", nil, mocktesting.UCS4("ab", 5)), "ab"},
		{"uint8", mocktesting.NPY("|u1", nil, []byte{200}), uint64(200)},
		{"big endian int", mocktesting.NPY(">i4", nil, mocktesting.BE(int32(-7))), int64(-7)},
		{"single element vector", mocktesting.NPY("<i2", []int{1}, mocktesting.LE(int16(9))), int64(9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadItem(bytes.NewReader(tt.data))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestReadScalar_RefusesArrays(t *testing.T) {
	data := mocktesting.NPY("<f8", []int{50}, make([]byte, 400))
	_, err := ReadItem(bytes.NewReader(data))
	require.ErrorIs(t, err, scalar.ErrNotScalar)

	data = mocktesting.NPY("<f8", []int{0}, nil)
	_, err = ReadItem(bytes.NewReader(data))
	require.ErrorIs(t, err, scalar.ErrNotScalar)
}

func TestReadScalar_PayloadLimit(t *testing.T) {
	// A parseable descriptor whose item exceeds the element limit is
	// refused before any payload is buffered.
	data := mocktesting.NPY("<U20000000", nil, []byte{'a', 0, 0, 0})
	_, err := ReadItem(bytes.NewReader(data))
	require.ErrorContains(t, err, "scalar payload")
}

func TestReadScalar_EmptyUnicode(t *testing.T) {
	v, err := ReadItem(bytes.NewReader(mocktesting.NPY("<U0", nil, nil)))
	require.NoError(t, err)
	require.Equal(t, "", v)
}

func TestReadScalar_TruncatedPayload(t *testing.T) {
	data := mocktesting.NPY("<i8", nil, []byte{1, 2, 3})
	_, err := ReadItem(bytes.NewReader(data))
	require.Error(t, err)
}
