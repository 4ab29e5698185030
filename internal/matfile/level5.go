package matfile

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/scigolib/npzheader/internal/scalar"
	"github.com/scigolib/npzheader/internal/utils"
)

// Array flag bits.
const (
	flagComplex = 0x0800
	flagGlobal  = 0x0400
	flagLogical = 0x0200
)

type matrixHeader struct {
	class   Class
	complex bool
	global  bool
	logical bool
	dims    []int
	name    string
}

func (f *File) variables5() ([]Variable, error) {
	var vars []Variable

	tag := make([]byte, 8)
	pos := int64(level5Header)
	for pos < f.size {
		if _, err := f.r.ReadAt(tag, pos); err != nil {
			return nil, utils.WrapError(fmt.Sprintf("reading element tag at %d", pos),
				fmt.Errorf("%w: %w", ErrBadElement, err))
		}
		mdtype := f.order.Uint32(tag)
		nbytes := int64(f.order.Uint32(tag[4:]))
		if mdtype>>16 != 0 {
			return nil, fmt.Errorf("%w: unexpected small element at %d", ErrBadElement, pos)
		}
		end := pos + 8 + nbytes
		if end > f.size {
			return nil, fmt.Errorf("%w: element at %d runs past end of file", ErrBadElement, pos)
		}

		v := Variable{offset: pos, length: 8 + nbytes, compressed: mdtype == miCOMPRESSED}
		h, err := f.readHeaderAt(&v, mdtype)
		if err != nil {
			return nil, utils.WrapError(fmt.Sprintf("element at %d", pos), err)
		}

		v.Name = h.name
		if v.Name == "" {
			v.Name = WorkspaceName
		}
		v.class = h.class
		v.dims = h.dims
		v.complex = h.complex
		v.logical = h.logical
		v.Shape = listingShape(h.class, h.dims)
		v.Class = h.class.String()
		if h.logical {
			v.Class = "logical"
		}
		vars = append(vars, v)

		pos = end
	}
	return vars, nil
}

// readHeaderAt decodes only the matrix header of the element described by v.
func (f *File) readHeaderAt(v *Variable, mdtype uint32) (matrixHeader, error) {
	body, closeBody, err := f.openMatrix(v.offset, v.length-8, mdtype)
	if err != nil {
		return matrixHeader{}, err
	}
	defer closeBody()

	return readMatrixHeader(body, f.order)
}

// openMatrix returns a reader positioned at the first sub-element of the
// miMATRIX element starting at off. Compressed elements are inflated as a
// stream so only the bytes actually consumed are decompressed.
func (f *File) openMatrix(off, nbytes int64, mdtype uint32) (io.Reader, func(), error) {
	section := io.NewSectionReader(f.r, off+8, nbytes)

	switch mdtype {
	case miMATRIX:
		return section, func() {}, nil
	case miCOMPRESSED:
		zr, err := zlib.NewReader(section)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: compressed element: %w", ErrBadElement, err)
		}
		closeFn := func() { _ = zr.Close() }

		tag := make([]byte, 8)
		if _, err := io.ReadFull(zr, tag); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("%w: compressed element: %w", ErrBadElement, err)
		}
		inner := f.order.Uint32(tag)
		if inner != miMATRIX {
			closeFn()
			return nil, nil, fmt.Errorf("%w: expecting miMATRIX inside compressed element, got %d", ErrBadElement, inner)
		}
		return io.LimitReader(zr, int64(f.order.Uint32(tag[4:]))), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("%w: expecting miMATRIX, got %d", ErrBadElement, mdtype)
	}
}

// readSubElement reads one tagged sub-element, honouring the small data
// element format and consuming the padding to the next 8-byte boundary.
func readSubElement(r io.Reader, order binary.ByteOrder) (uint32, []byte, error) {
	tag := utils.GetBuffer(8)
	defer utils.ReleaseBuffer(tag)

	if _, err := io.ReadFull(r, tag); err != nil {
		return 0, nil, fmt.Errorf("%w: sub-element tag: %w", ErrBadElement, err)
	}

	first := order.Uint32(tag)
	if n := first >> 16; n != 0 {
		if n > 4 {
			return 0, nil, fmt.Errorf("%w: small element of %d bytes", ErrBadElement, n)
		}
		data := make([]byte, n)
		copy(data, tag[4:4+n])
		return first & 0xFFFF, data, nil
	}

	nbytes := uint64(order.Uint32(tag[4:]))
	if nbytes > utils.MaxElementSize {
		return 0, nil, fmt.Errorf("%w: sub-element of %d bytes exceeds maximum %d", ErrBadElement, nbytes, utils.MaxElementSize)
	}
	data, err := utils.ReadBytes(r, int(nbytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: sub-element data: %w", ErrBadElement, err)
	}

	// Trailing padding of the last sub-element may be absent.
	if pad := (8 - nbytes%8) % 8; pad > 0 {
		_, _ = io.CopyN(io.Discard, r, int64(pad))
	}
	return first, data, nil
}

func readMatrixHeader(r io.Reader, order binary.ByteOrder) (matrixHeader, error) {
	var h matrixHeader

	mdtype, data, err := readSubElement(r, order)
	if err != nil {
		return h, utils.WrapError("array flags", err)
	}
	if mdtype != miUINT32 || len(data) != 8 {
		return h, fmt.Errorf("%w: array flags have type %d and %d bytes", ErrBadElement, mdtype, len(data))
	}
	flags := order.Uint32(data)
	h.class = Class(flags & 0xFF)
	if _, ok := classNames[h.class]; !ok {
		return h, fmt.Errorf("%w: unknown array class %d", ErrBadElement, h.class)
	}
	h.complex = flags&flagComplex != 0
	h.global = flags&flagGlobal != 0
	h.logical = flags&flagLogical != 0

	if h.class != ClassOpaque {
		mdtype, data, err = readSubElement(r, order)
		if err != nil {
			return h, utils.WrapError("dimensions", err)
		}
		if mdtype != miINT32 || len(data)%4 != 0 {
			return h, fmt.Errorf("%w: dimensions have type %d and %d bytes", ErrBadElement, mdtype, len(data))
		}
		h.dims = make([]int, len(data)/4)
		for i := range h.dims {
			d := int32(order.Uint32(data[4*i:]))
			if d < 0 {
				return h, fmt.Errorf("%w: negative dimension %d", ErrBadElement, d)
			}
			h.dims[i] = int(d)
		}
	}

	mdtype, data, err = readSubElement(r, order)
	if err != nil {
		return h, utils.WrapError("array name", err)
	}
	if mdtype != miINT8 && mdtype != miUINT8 && mdtype != miUTF8 {
		return h, fmt.Errorf("%w: array name has type %d", ErrBadElement, mdtype)
	}
	if len(data) > utils.MaxNameSize {
		return h, fmt.Errorf("%w: array name of %d bytes", ErrBadElement, len(data))
	}
	h.name, err = decodeText(miUINT8, data, order)
	if err != nil {
		return h, err
	}
	return h, nil
}

// listingShape applies the directory listing convention: character arrays
// are listed as arrays of strings, so their last dimension is dropped.
// Function handles list with no dimensions.
func listingShape(c Class, dims []int) []int {
	if c == ClassFunction {
		return []int{}
	}
	if c == ClassChar && len(dims) > 0 {
		return append([]int{}, dims[:len(dims)-1]...)
	}
	if dims == nil {
		return []int{}
	}
	return append([]int{}, dims...)
}

// scalar5 revisits the element of v and decodes its single value.
func (f *File) scalar5(v *Variable) (any, bool, error) {
	if v.class != ClassChar && !v.class.numeric() {
		return nil, false, nil
	}

	mdtype := uint32(miMATRIX)
	if v.compressed {
		mdtype = miCOMPRESSED
	}
	body, closeBody, err := f.openMatrix(v.offset, v.length-8, mdtype)
	if err != nil {
		return nil, false, err
	}
	defer closeBody()

	if _, err := readMatrixHeader(body, f.order); err != nil {
		return nil, false, err
	}

	realType, realData, err := readSubElement(body, f.order)
	if err != nil {
		return nil, false, utils.WrapError("real part", err)
	}

	if v.class == ClassChar {
		text, err := decodeText(realType, realData, f.order)
		if err != nil {
			return nil, false, err
		}
		s, err := scalar.Unwrap([]string{text})
		return s, err == nil, err
	}

	values, err := decodeNumbers(realType, realData, f.order)
	if err != nil {
		return nil, false, err
	}
	for i := range values {
		values[i] = toClass(values[i], v.class, v.logical)
	}

	if v.complex {
		imagType, imagData, err := readSubElement(body, f.order)
		if err != nil {
			return nil, false, utils.WrapError("imaginary part", err)
		}
		imags, err := decodeNumbers(imagType, imagData, f.order)
		if err != nil {
			return nil, false, err
		}
		if len(imags) != len(values) {
			return nil, false, fmt.Errorf("%w: %d real and %d imaginary values", ErrBadElement, len(values), len(imags))
		}
		for i := range values {
			values[i] = complex(toFloat(values[i]), toFloat(imags[i]))
		}
	}

	val, err := scalar.Unwrap(values)
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
	}
	return 0
}
