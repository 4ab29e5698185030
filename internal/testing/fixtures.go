package testing

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zlib"
)

// NPY encodes a version 1.0 .npy stream the way numpy.save lays it out:
// the header is space padded so the payload starts on a 64-byte boundary.
func NPY(descr string, shape []int, payload []byte) []byte {
	return NPYHeader(1, NPYDict(descr, false, shape), payload)
}

// NPYDict renders a header dict literal.
func NPYDict(descr string, fortran bool, shape []int) string {
	order := "False"
	if fortran {
		order = "True"
	}
	return fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': %s, }", descr, order, pyTuple(shape))
}

func pyTuple(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// NPYHeader encodes a .npy stream with an arbitrary header text.
func NPYHeader(major byte, header string, payload []byte) []byte {
	lenSize := 2
	if major > 1 {
		lenSize = 4
	}
	prefix := len("\x93NUMPY") + 2 + lenSize
	total := prefix + len(header) + 1
	pad := (64 - total%64) % 64
	header += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.WriteByte(major)
	buf.WriteByte(0)
	if lenSize == 2 {
		_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	} else {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(header)))
	}
	buf.WriteString(header)
	buf.Write(payload)
	return buf.Bytes()
}

// Member is one entry of a zip archive built by Zip.
type Member struct {
	Name    string
	Data    []byte
	Deflate bool
}

// Zip builds a zip archive holding members in the given order.
func Zip(members ...Member) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		method := zip.Store
		if m.Deflate {
			method = zip.Deflate
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: m.Name, Method: method})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(m.Data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LE encodes values in little-endian order with binary.Write semantics.
func LE(values ...any) []byte {
	return encode(binary.LittleEndian, values...)
}

// BE encodes values in big-endian order with binary.Write semantics.
func BE(values ...any) []byte {
	return encode(binary.BigEndian, values...)
}

func encode(order binary.ByteOrder, values ...any) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		if err := binary.Write(&buf, order, v); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

// UCS4 encodes s as fixed-width little-endian UTF-32 padded to width chars.
func UCS4(s string, width int) []byte {
	out := make([]byte, 4*width)
	i := 0
	for _, r := range s {
		binary.LittleEndian.PutUint32(out[4*i:], uint32(r))
		i++
	}
	return out
}

// Complex128 encodes a complex value as two little-endian float64 halves.
func Complex128(c complex128) []byte {
	return LE(math.Float64bits(real(c)), math.Float64bits(imag(c)))
}

// MAT Level 5 storage types.
const (
	MiINT8       = 1
	MiUINT8      = 2
	MiINT16      = 3
	MiUINT16     = 4
	MiINT32      = 5
	MiUINT32     = 6
	MiSINGLE     = 7
	MiDOUBLE     = 9
	MiINT64      = 12
	MiUINT64     = 13
	MiMATRIX     = 14
	MiCOMPRESSED = 15
	MiUTF8       = 16
	MiUTF16      = 17
)

// MAT Level 5 array classes.
const (
	MxCELL     = 1
	MxSTRUCT   = 2
	MxCHAR     = 4
	MxSPARSE   = 5
	MxDOUBLE   = 6
	MxSINGLE   = 7
	MxINT8     = 8
	MxUINT8    = 9
	MxINT32    = 12
	MxINT64    = 14
	MxUINT64   = 15
	MxFUNCTION = 16
)

// MAT5 assembles a Level 5 file: a 128-byte header followed by elements.
func MAT5(order binary.ByteOrder, elements ...[]byte) []byte {
	header := make([]byte, 128)
	n := copy(header, "MATLAB 5.0 MAT-file, Platform: GLNXA64, Created on: Sat Oct 17 12:00:00 2026")
	for i := n; i < 116; i++ {
		header[i] = ' '
	}
	order.PutUint16(header[124:], 0x0100)
	order.PutUint16(header[126:], 'M'<<8|'I')

	var buf bytes.Buffer
	buf.Write(header)
	for _, e := range elements {
		buf.Write(e)
	}
	return buf.Bytes()
}

// SubElement encodes one tagged data element, using the small element
// format when the payload fits in four bytes.
func SubElement(order binary.ByteOrder, mdtype uint32, data []byte) []byte {
	var buf bytes.Buffer
	if len(data) > 0 && len(data) <= 4 {
		tag := make([]byte, 8)
		order.PutUint32(tag, uint32(len(data))<<16|mdtype)
		copy(tag[4:], data)
		return tag
	}

	tag := make([]byte, 8)
	order.PutUint32(tag, mdtype)
	order.PutUint32(tag[4:], uint32(len(data)))
	buf.Write(tag)
	buf.Write(data)
	if pad := (8 - len(data)%8) % 8; pad > 0 {
		buf.Write(make([]byte, pad))
	}
	return buf.Bytes()
}

// Matrix describes one miMATRIX element.
type Matrix struct {
	Name     string
	Class    uint8
	Dims     []int32
	Complex  bool
	Logical  bool
	RealType uint32
	Real     []byte
	ImagType uint32
	Imag     []byte
	// Body replaces the real/imaginary parts for cell and struct classes.
	Body []byte
}

// Element encodes the matrix as an uncompressed miMATRIX element.
func (m Matrix) Element(order binary.ByteOrder) []byte {
	flags := uint32(m.Class)
	if m.Complex {
		flags |= 0x0800
	}
	if m.Logical {
		flags |= 0x0200
	}

	var body bytes.Buffer
	flagData := make([]byte, 8)
	order.PutUint32(flagData, flags)
	body.Write(SubElement(order, MiUINT32, flagData))

	dims := make([]byte, 4*len(m.Dims))
	for i, d := range m.Dims {
		order.PutUint32(dims[4*i:], uint32(d))
	}
	body.Write(SubElement(order, MiINT32, dims))
	body.Write(SubElement(order, MiINT8, []byte(m.Name)))

	switch {
	case m.Body != nil:
		body.Write(m.Body)
	case m.Class == MxCELL || m.Class == MxSTRUCT:
	default:
		body.Write(SubElement(order, m.RealType, m.Real))
		if m.Complex {
			body.Write(SubElement(order, m.ImagType, m.Imag))
		}
	}

	tag := make([]byte, 8)
	order.PutUint32(tag, MiMATRIX)
	order.PutUint32(tag[4:], uint32(body.Len()))
	return append(tag, body.Bytes()...)
}

// Compressed wraps a complete element in an miCOMPRESSED element.
func Compressed(order binary.ByteOrder, element []byte) []byte {
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, _ = zw.Write(element)
	_ = zw.Close()

	tag := make([]byte, 8)
	order.PutUint32(tag, MiCOMPRESSED)
	order.PutUint32(tag[4:], uint32(z.Len()))
	return append(tag, z.Bytes()...)
}

// MAT4Var encodes one Level 4 variable: a five-int32 header, the
// NUL-terminated name and the data.
func MAT4Var(order binary.ByteOrder, mopt, mrows, ncols int32, imag bool, name string, data []byte) []byte {
	imagf := int32(0)
	if imag {
		imagf = 1
	}
	var buf bytes.Buffer
	_ = binary.Write(&buf, order, []int32{mopt, mrows, ncols, imagf, int32(len(name) + 1)})
	buf.WriteString(name)
	buf.WriteByte(0)
	buf.Write(data)
	return buf.Bytes()
}
