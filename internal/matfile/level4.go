package matfile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/scigolib/npzheader/internal/scalar"
	"github.com/scigolib/npzheader/internal/utils"
)

// Level 4 matrix types (the T digit of the MOPT code).
const (
	v4Full   = 0
	v4Text   = 1
	v4Sparse = 2
)

// v4Storage maps the P digit of the MOPT code to a storage element type.
var v4Storage = [...]uint32{miDOUBLE, miSINGLE, miINT32, miINT16, miUINT16, miUINT8}

// v4Class maps the P digit to the class whose representative the values
// decode to.
var v4Class = [...]Class{ClassDouble, ClassDouble, ClassInt32, ClassInt32, ClassUint16, ClassUint16}

const v4HeaderSize = 20

type v4Header struct {
	precision  int
	matrix     int
	rows, cols int
	imag       bool
	dataOffset int64
}

func (h *v4Header) storage() uint32 {
	return v4Storage[h.precision]
}

// guessLevel4Order infers the byte order from the first MOPT code, which
// is a small non-negative number in the file's own order.
func guessLevel4Order(head []byte) binary.ByteOrder {
	mopt := int32(binary.LittleEndian.Uint32(head))
	if mopt < 0 || mopt > 5000 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (f *File) variables4() ([]Variable, error) {
	var vars []Variable

	buf := make([]byte, v4HeaderSize)
	pos := int64(0)
	for pos < f.size {
		if _, err := f.r.ReadAt(buf, pos); err != nil {
			return nil, utils.WrapError(fmt.Sprintf("reading variable header at %d", pos),
				fmt.Errorf("%w: %w", ErrBadElement, err))
		}

		var raw [5]int32
		if err := binary.Read(bytes.NewReader(buf), f.order, &raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadElement, err)
		}
		mopt, mrows, ncols, imagf, namlen := raw[0], raw[1], raw[2], raw[3], raw[4]

		if mopt < 0 || mopt > 5000 {
			return nil, fmt.Errorf("%w: MOPT %d out of range at %d", ErrBadHeader, mopt, pos)
		}
		rest := mopt % 1000
		if rest/100 != 0 {
			return nil, fmt.Errorf("%w: MOPT %d has a non-zero O digit", ErrBadHeader, mopt)
		}
		h := &v4Header{
			precision: int(rest%100) / 10,
			matrix:    int(rest % 10),
			rows:      int(mrows),
			cols:      int(ncols),
			imag:      imagf == 1,
		}
		if h.precision >= len(v4Storage) || h.matrix > v4Sparse {
			return nil, fmt.Errorf("%w: unsupported MOPT %d", ErrBadElement, mopt)
		}
		if mrows < 0 || ncols < 0 || namlen < 0 || namlen > utils.MaxNameSize {
			return nil, fmt.Errorf("%w: invalid header values at %d", ErrBadElement, pos)
		}

		name := make([]byte, namlen)
		if _, err := f.r.ReadAt(name, pos+v4HeaderSize); err != nil {
			return nil, utils.WrapError("reading variable name", fmt.Errorf("%w: %w", ErrBadElement, err))
		}
		h.dataOffset = pos + v4HeaderSize + int64(namlen)

		dataLen, err := h.dataLen()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadElement, err)
		}
		end := h.dataOffset + int64(dataLen)
		if end > f.size || end < h.dataOffset {
			return nil, fmt.Errorf("%w: variable at %d runs past end of file", ErrBadElement, pos)
		}

		v := Variable{
			Name:   string(bytes.TrimRight(name, "\x00")),
			offset: pos,
			length: end - pos,
			dims:   []int{h.rows, h.cols},
			v4:     h,
		}
		switch h.matrix {
		case v4Full:
			v.class = ClassDouble
			v.Shape = []int{h.rows, h.cols}
		case v4Text:
			v.class = ClassChar
			v.Shape = []int{h.rows}
		case v4Sparse:
			v.class = ClassSparse
			if v.Shape, err = f.sparseShape4(h); err != nil {
				return nil, err
			}
		}
		v.Class = v.class.String()
		v.complex = h.imag
		vars = append(vars, v)

		pos = end
	}
	return vars, nil
}

func (h *v4Header) dataLen() (uint64, error) {
	n, err := utils.ElementCount([]int{h.rows, h.cols, elemSize(h.storage())})
	if err != nil {
		return 0, err
	}
	if h.imag {
		return utils.SafeMultiply(n, 2)
	}
	return n, nil
}

// sparseShape4 reads the matrix extent from the last stored row of a
// sparse variable, where the row and column counts are kept.
func (f *File) sparseShape4(h *v4Header) ([]int, error) {
	if h.rows < 1 || h.cols < 2 {
		return []int{}, nil
	}

	size := elemSize(h.storage())
	read := func(index int) (float64, error) {
		buf := make([]byte, size)
		if _, err := f.r.ReadAt(buf, h.dataOffset+int64(index*size)); err != nil {
			return 0, fmt.Errorf("%w: sparse extent: %w", ErrBadElement, err)
		}
		vals, err := decodeNumbers(h.storage(), buf, f.order)
		if err != nil {
			return 0, err
		}
		return toFloat(vals[0]), nil
	}

	rows, err := read(h.rows - 1)
	if err != nil {
		return nil, err
	}
	cols, err := read(2*h.rows - 1)
	if err != nil {
		return nil, err
	}
	return []int{int(rows), int(cols)}, nil
}

func (f *File) scalar4(v *Variable) (any, bool, error) {
	h := v.v4
	if h.matrix == v4Sparse {
		return nil, false, nil
	}

	count, err := utils.ElementCount([]int{h.rows, h.cols})
	if err != nil {
		return nil, false, err
	}
	size := uint64(elemSize(h.storage()))
	if count*size > utils.MaxElementSize {
		return nil, false, fmt.Errorf("%w: scalar payload of %d bytes", ErrBadElement, count*size)
	}

	readPart := func(off int64) ([]any, error) {
		buf := make([]byte, count*size)
		if len(buf) > 0 {
			if _, err := f.r.ReadAt(buf, off); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrBadElement, err)
			}
		}
		return decodeNumbers(h.storage(), buf, f.order)
	}

	values, err := readPart(h.dataOffset)
	if err != nil {
		return nil, false, err
	}

	if h.matrix == v4Text {
		s, err := scalar.Unwrap([]string{codesToString(values)})
		return s, err == nil, err
	}

	class := v4Class[h.precision]
	for i := range values {
		values[i] = toClass(values[i], class, false)
	}
	if h.imag {
		imags, err := readPart(h.dataOffset + int64(count*size))
		if err != nil {
			return nil, false, err
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
