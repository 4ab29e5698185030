package matfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Data element types of the Level 5 format.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
	miUTF8       = 16
	miUTF16      = 17
	miUTF32      = 18
)

// Class is a MATLAB array class.
type Class uint8

// Array classes of the Level 5 format.
const (
	ClassCell     Class = 1
	ClassStruct   Class = 2
	ClassObject   Class = 3
	ClassChar     Class = 4
	ClassSparse   Class = 5
	ClassDouble   Class = 6
	ClassSingle   Class = 7
	ClassInt8     Class = 8
	ClassUint8    Class = 9
	ClassInt16    Class = 10
	ClassUint16   Class = 11
	ClassInt32    Class = 12
	ClassUint32   Class = 13
	ClassInt64    Class = 14
	ClassUint64   Class = 15
	ClassFunction Class = 16
	ClassOpaque   Class = 17
)

var classNames = map[Class]string{
	ClassCell:     "cell",
	ClassStruct:   "struct",
	ClassObject:   "object",
	ClassChar:     "char",
	ClassSparse:   "sparse",
	ClassDouble:   "double",
	ClassSingle:   "single",
	ClassInt8:     "int8",
	ClassUint8:    "uint8",
	ClassInt16:    "int16",
	ClassUint16:   "uint16",
	ClassInt32:    "int32",
	ClassUint32:   "uint32",
	ClassInt64:    "int64",
	ClassUint64:   "uint64",
	ClassFunction: "function",
	ClassOpaque:   "opaque",
}

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "unknown"
}

// numeric reports whether values of the class decode to numbers.
func (c Class) numeric() bool {
	return c >= ClassDouble && c <= ClassUint64
}

// elemSize returns the byte width of a numeric storage type, or 0.
func elemSize(mdtype uint32) int {
	switch mdtype {
	case miINT8, miUINT8, miUTF8:
		return 1
	case miINT16, miUINT16, miUTF16:
		return 2
	case miINT32, miUINT32, miSINGLE, miUTF32:
		return 4
	case miDOUBLE, miINT64, miUINT64:
		return 8
	default:
		return 0
	}
}

// decodeNumbers decodes a numeric data element as float64, int64 or
// uint64 values depending on the storage type.
func decodeNumbers(mdtype uint32, data []byte, order binary.ByteOrder) ([]any, error) {
	size := elemSize(mdtype)
	if size == 0 || mdtype == miUTF8 || mdtype == miUTF16 || mdtype == miUTF32 {
		return nil, fmt.Errorf("%w: storage type %d is not numeric", ErrBadElement, mdtype)
	}
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrBadElement, len(data), size)
	}

	out := make([]any, 0, len(data)/size)
	for off := 0; off < len(data); off += size {
		b := data[off : off+size]
		var v any
		switch mdtype {
		case miINT8:
			v = int64(int8(b[0]))
		case miUINT8:
			v = uint64(b[0])
		case miINT16:
			v = int64(int16(order.Uint16(b)))
		case miUINT16:
			v = uint64(order.Uint16(b))
		case miINT32:
			v = int64(int32(order.Uint32(b)))
		case miUINT32:
			v = uint64(order.Uint32(b))
		case miSINGLE:
			v = float64(math.Float32frombits(order.Uint32(b)))
		case miDOUBLE:
			v = math.Float64frombits(order.Uint64(b))
		case miINT64:
			//nolint:gosec // G115: two's complement reinterpretation
			v = int64(order.Uint64(b))
		case miUINT64:
			v = order.Uint64(b)
		}
		out = append(out, v)
	}
	return out, nil
}

// toClass converts a decoded storage value to the representative of the
// array class: float64 for double/single, int64 or uint64 for integers,
// bool for logical arrays.
func toClass(v any, c Class, logical bool) any {
	if logical {
		switch x := v.(type) {
		case float64:
			return x != 0
		case int64:
			return x != 0
		case uint64:
			return x != 0
		}
	}

	switch c {
	case ClassDouble, ClassSingle:
		switch x := v.(type) {
		case int64:
			return float64(x)
		case uint64:
			return float64(x)
		}
		return v
	case ClassInt8, ClassInt16, ClassInt32, ClassInt64:
		switch x := v.(type) {
		case float64:
			return int64(x)
		case uint64:
			//nolint:gosec // G115: value fits the declared class
			return int64(x)
		}
		return v
	default:
		switch x := v.(type) {
		case float64:
			return uint64(x)
		case int64:
			//nolint:gosec // G115: value fits the declared class
			return uint64(x)
		}
		return v
	}
}

// decodeText decodes character data stored with the given element type.
func decodeText(mdtype uint32, data []byte, order binary.ByteOrder) (string, error) {
	switch mdtype {
	case miUTF8:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: invalid UTF-8 text", ErrBadElement)
		}
		return string(data), nil
	case miUTF16, miUINT16, miINT16:
		units := make([]uint16, len(data)/2)
		for i := range units {
			units[i] = order.Uint16(data[2*i:])
		}
		return string(utf16.Decode(units)), nil
	case miUTF32, miUINT32, miINT32:
		var sb strings.Builder
		for off := 0; off+4 <= len(data); off += 4 {
			sb.WriteRune(rune(order.Uint32(data[off:])))
		}
		return sb.String(), nil
	case miUINT8, miINT8:
		var sb strings.Builder
		for _, b := range data {
			sb.WriteRune(rune(b))
		}
		return sb.String(), nil
	default:
		codes, err := decodeNumbers(mdtype, data, order)
		if err != nil {
			return "", err
		}
		return codesToString(codes), nil
	}
}

// codesToString turns numeric character codes into text.
func codesToString(codes []any) string {
	var sb strings.Builder
	for _, c := range codes {
		switch x := c.(type) {
		case float64:
			sb.WriteRune(rune(x))
		case int64:
			sb.WriteRune(rune(x))
		case uint64:
			//nolint:gosec // G115: character codes fit in a rune
			sb.WriteRune(rune(x))
		}
	}
	return sb.String()
}
