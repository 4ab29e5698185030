// Package npyformat reads the NumPy .npy binary array format.
//
// A file starts with the magic string "\x93NUMPY", one major and one minor
// version byte, and a little-endian header length (2 bytes for version
// 1.0, 4 bytes for 2.0 and 3.0). The header is a Python dict literal with
// the keys "descr", "fortran_order" and "shape", padded with spaces and
// terminated by a newline. The raw element buffer follows immediately.
package npyformat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/scigolib/npzheader/internal/scalar"
	"github.com/scigolib/npzheader/internal/utils"
)

// Magic is the fixed prefix of every .npy stream.
const Magic = "\x93NUMPY"

// Suffix is the file name suffix of single-array files.
const Suffix = ".npy"

// Sentinel errors returned (wrapped) by the readers.
var (
	ErrBadMagic   = errors.New("bad magic prefix")
	ErrBadVersion = errors.New("unsupported format version")
	ErrBadHeader  = errors.New("malformed array header")
)

// Version is the (major, minor) format version.
type Version struct {
	Major, Minor uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Header is the decoded header of one array.
type Header struct {
	Version      Version
	DType        DType
	FortranOrder bool
	Shape        []int
}

var expectedKeys = []string{"descr", "fortran_order", "shape"}

// ReadMagic reads the magic prefix and the version bytes.
func ReadMagic(r io.Reader) (Version, error) {
	buf := utils.GetBuffer(len(Magic) + 2)
	defer utils.ReleaseBuffer(buf)

	if _, err := io.ReadFull(r, buf); err != nil {
		return Version{}, utils.WrapError("reading magic", fmt.Errorf("%w: %w", ErrBadMagic, err))
	}
	if string(buf[:len(Magic)]) != Magic {
		return Version{}, fmt.Errorf("%w: got %q", ErrBadMagic, buf[:len(Magic)])
	}

	v := Version{Major: buf[len(Magic)], Minor: buf[len(Magic)+1]}
	if v.Minor != 0 || v.Major < 1 || v.Major > 3 {
		return Version{}, fmt.Errorf("%w: %s", ErrBadVersion, v)
	}
	return v, nil
}

// ReadArrayHeader reads the length-prefixed header that follows the magic
// and version bytes.
func ReadArrayHeader(r io.Reader, v Version) (*Header, error) {
	var (
		n   uint32
		err error
	)
	if v.Major == 1 {
		var n16 uint16
		n16, err = utils.ReadUint16(r, binary.LittleEndian)
		n = uint32(n16)
	} else {
		n, err = utils.ReadUint32(r, binary.LittleEndian)
	}
	if err != nil {
		return nil, utils.WrapError("reading header length", fmt.Errorf("%w: %w", ErrBadHeader, err))
	}
	if err := utils.ValidateBufferSize(uint64(n), utils.MaxHeaderSize, "array header"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}

	raw, err := utils.ReadBytes(r, int(n))
	if err != nil {
		return nil, utils.WrapError("reading header", fmt.Errorf("%w: %w", ErrBadHeader, err))
	}

	text, err := decodeHeaderText(raw, v)
	if err != nil {
		return nil, err
	}
	return parseHeader(text, v)
}

func decodeHeaderText(raw []byte, v Version) (string, error) {
	if v.Major >= 3 {
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("%w: header is not valid UTF-8", ErrBadHeader)
		}
		return string(raw), nil
	}

	// Latin-1: every byte is its own code point.
	var sb strings.Builder
	sb.Grow(len(raw))
	for _, b := range raw {
		sb.WriteRune(rune(b))
	}
	return sb.String(), nil
}

func parseHeader(text string, v Version) (*Header, error) {
	lit, err := ParseLiteral(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}
	d, ok := lit.(Dict)
	if !ok {
		return nil, fmt.Errorf("%w: header is not a dict: %q", ErrBadHeader, text)
	}

	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if strings.Join(keys, ",") != strings.Join(expectedKeys, ",") {
		return nil, fmt.Errorf("%w: header keys %v, expected %v", ErrBadHeader, keys, expectedKeys)
	}

	shape, err := shapeOf(d["shape"])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}

	fortran, ok := d["fortran_order"].(bool)
	if !ok {
		return nil, fmt.Errorf("%w: fortran_order is not a bool: %v", ErrBadHeader, d["fortran_order"])
	}

	dt, err := ParseDescr(d["descr"])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}

	return &Header{
		Version:      v,
		DType:        dt,
		FortranOrder: fortran,
		Shape:        shape,
	}, nil
}

func shapeOf(v any) ([]int, error) {
	tup, ok := v.(Tuple)
	if !ok {
		return nil, fmt.Errorf("shape is not a tuple: %v", v)
	}
	shape := make([]int, len(tup))
	for i, item := range tup {
		n, ok := item.(int64)
		if !ok || n < 0 {
			return nil, fmt.Errorf("shape entry %v is not a non-negative integer", item)
		}
		shape[i] = int(n)
	}
	return shape, nil
}

// ReadHeader reads the magic, version and header of an array stream,
// leaving r positioned at the first payload byte.
func ReadHeader(r io.Reader) (*Header, error) {
	v, err := ReadMagic(r)
	if err != nil {
		return nil, err
	}
	return ReadArrayHeader(r, v)
}

// ReadScalar reads the single element that follows a header whose shape
// describes exactly one element, and returns it as a native value.
func ReadScalar(r io.Reader, h *Header) (any, error) {
	count, err := utils.ElementCount(h.Shape)
	if err != nil {
		return nil, err
	}
	if count != 1 {
		return nil, fmt.Errorf("%w: shape %s", scalar.ErrNotScalar, FormatShape(h.Shape))
	}

	if h.DType.Size != 0 {
		//nolint:gosec // G115: a negative size fails the limit check
		if err := utils.ValidateBufferSize(uint64(h.DType.Size), utils.MaxElementSize, "scalar payload"); err != nil {
			return nil, err
		}
	}
	buf, err := utils.ReadBytes(r, h.DType.Size)
	if err != nil {
		return nil, utils.WrapError("reading scalar payload", err)
	}
	elems, err := h.DType.DecodeAll(buf)
	if err != nil {
		return nil, err
	}
	v, err := scalar.Unwrap(elems)
	if err != nil {
		return nil, err
	}
	return scalar.Widen(v), nil
}

// ReadItem reads a complete array stream from its first byte and returns
// its only element.
func ReadItem(r io.Reader) (any, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	return ReadScalar(r, h)
}
