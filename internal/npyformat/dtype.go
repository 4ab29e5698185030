package npyformat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/scigolib/npzheader/internal/utils"
)

// ErrBadDescr is returned for descriptors that cannot be interpreted.
var ErrBadDescr = errors.New("invalid dtype descriptor")

// maxItemSize is the largest item size NumPy accepts for a dtype.
const maxItemSize = math.MaxInt32

// Byte order markers used in descriptors.
const (
	LittleEndian  = '<'
	BigEndian     = '>'
	NotApplicable = '|'
	native        = '='
)

// Field is one member of a structured dtype.
type Field struct {
	Name  string
	Descr string
	Shape []int
}

// DType is a parsed array-protocol type descriptor such as "<f8" or "<U7".
type DType struct {
	Order  byte   // '<', '>' or '|'
	Kind   byte   // one of b i u f c U S V O M m
	Size   int    // bytes per element
	Unit   string // datetime unit including brackets, e.g. "[ns]"
	Fields []Field
}

// ParseDescr interprets the value stored under the "descr" header key.
func ParseDescr(descr any) (DType, error) {
	switch d := descr.(type) {
	case string:
		return parseTypeString(d)
	case List:
		return parseStructured(d)
	default:
		return DType{}, fmt.Errorf("%w: %v", ErrBadDescr, descr)
	}
}

func parseTypeString(s string) (DType, error) {
	if s == "" {
		return DType{}, fmt.Errorf("%w: empty", ErrBadDescr)
	}

	dt := DType{Order: NotApplicable}
	rest := s
	switch rest[0] {
	case LittleEndian, BigEndian, NotApplicable:
		dt.Order = rest[0]
		rest = rest[1:]
	case native:
		dt.Order = LittleEndian
		rest = rest[1:]
	}
	if rest == "" {
		return DType{}, fmt.Errorf("%w: %q", ErrBadDescr, s)
	}

	dt.Kind = rest[0]
	rest = rest[1:]
	if dt.Kind == '?' {
		dt.Kind = 'b'
	}
	if dt.Kind == 'a' {
		dt.Kind = 'S'
	}

	if i := strings.IndexByte(rest, '['); i >= 0 {
		dt.Unit = rest[i:]
		rest = rest[:i]
		if (dt.Kind != 'M' && dt.Kind != 'm') || !strings.HasSuffix(dt.Unit, "]") {
			return DType{}, fmt.Errorf("%w: %q", ErrBadDescr, s)
		}
	}

	n := 0
	if rest != "" {
		var err error
		n, err = strconv.Atoi(rest)
		if err != nil || n < 0 || n > maxItemSize {
			return DType{}, fmt.Errorf("%w: %q", ErrBadDescr, s)
		}
	}

	switch dt.Kind {
	case 'b':
		dt.Size = 1
	case 'i', 'u':
		if n != 1 && n != 2 && n != 4 && n != 8 {
			return DType{}, fmt.Errorf("%w: %q", ErrBadDescr, s)
		}
		dt.Size = n
	case 'f':
		if n != 2 && n != 4 && n != 8 && n != 12 && n != 16 {
			return DType{}, fmt.Errorf("%w: %q", ErrBadDescr, s)
		}
		dt.Size = n
	case 'c':
		if n != 8 && n != 16 && n != 24 && n != 32 {
			return DType{}, fmt.Errorf("%w: %q", ErrBadDescr, s)
		}
		dt.Size = n
	case 'U':
		if n > maxItemSize/4 {
			return DType{}, fmt.Errorf("%w: item size of %q overflows", ErrBadDescr, s)
		}
		dt.Size = 4 * n
	case 'S', 'V':
		dt.Size = n
	case 'O':
		dt.Size = 8
	case 'M', 'm':
		if n != 8 {
			return DType{}, fmt.Errorf("%w: %q", ErrBadDescr, s)
		}
		dt.Size = 8
	default:
		return DType{}, fmt.Errorf("%w: unknown kind in %q", ErrBadDescr, s)
	}

	// Single-byte types carry no meaningful byte order.
	if dt.Size <= 1 && dt.Kind != 'U' {
		dt.Order = NotApplicable
	}
	if dt.Kind == 'U' && dt.Order == NotApplicable {
		dt.Order = LittleEndian
	}
	return dt, nil
}

func parseStructured(list List) (DType, error) {
	dt := DType{Order: NotApplicable, Kind: 'V'}
	for _, item := range list {
		tup, ok := item.(Tuple)
		if !ok || len(tup) < 2 || len(tup) > 3 {
			return DType{}, fmt.Errorf("%w: field %v", ErrBadDescr, item)
		}
		name, ok := tup[0].(string)
		if !ok {
			return DType{}, fmt.Errorf("%w: field name %v", ErrBadDescr, tup[0])
		}

		// Nested structured members are rejected; they never hold scalars.
		descr, ok := tup[1].(string)
		if !ok {
			return DType{}, fmt.Errorf("%w: nested field %q", ErrBadDescr, name)
		}
		sub, err := parseTypeString(descr)
		if err != nil {
			return DType{}, err
		}

		f := Field{Name: name, Descr: descr}
		count := uint64(1)
		if len(tup) == 3 {
			f.Shape, err = shapeOf(tup[2])
			if err != nil {
				return DType{}, err
			}
			count, err = utils.ElementCount(f.Shape)
			if err != nil {
				return DType{}, fmt.Errorf("%w: field %q: %v", ErrBadDescr, name, err)
			}
		}
		size, err := utils.SafeMultiply(uint64(sub.Size), count)
		if err != nil || size > maxItemSize-uint64(dt.Size) {
			return DType{}, fmt.Errorf("%w: item size overflows at field %q", ErrBadDescr, name)
		}
		dt.Fields = append(dt.Fields, f)
		dt.Size += int(size)
	}
	return dt, nil
}

// String renders the dtype the way NumPy prints it on a little-endian host.
func (d DType) String() string {
	if d.Fields != nil {
		return d.fieldsString()
	}

	bigEndian := d.Order == BigEndian
	switch d.Kind {
	case 'b':
		return "bool"
	case 'O':
		return "object"
	case 'U':
		return string(d.Order) + "U" + strconv.Itoa(d.Size/4)
	case 'S', 'V':
		return "|" + string(d.Kind) + strconv.Itoa(d.Size)
	case 'M', 'm':
		if bigEndian {
			return ">" + string(d.Kind) + "8" + d.Unit
		}
		if d.Kind == 'M' {
			return "datetime64" + d.Unit
		}
		return "timedelta64" + d.Unit
	}

	if bigEndian {
		return ">" + string(d.Kind) + strconv.Itoa(d.Size)
	}
	var base string
	switch d.Kind {
	case 'i':
		base = "int"
	case 'u':
		base = "uint"
	case 'f':
		base = "float"
	case 'c':
		base = "complex"
	}
	return base + strconv.Itoa(d.Size*8)
}

func (d DType) fieldsString() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range d.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "(%s, %s", quote(f.Name), quote(f.Descr))
		if f.Shape != nil {
			sb.WriteString(", ")
			sb.WriteString(FormatShape(f.Shape))
		}
		sb.WriteByte(')')
	}
	sb.WriteByte(']')
	return sb.String()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// FormatShape renders a shape as a Python tuple literal, e.g. "(50,)".
func FormatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (d DType) byteOrder() binary.ByteOrder {
	if d.Order == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// DecodeAll decodes every whole element in buf. Only boolean, numeric and
// unicode kinds can be decoded; other kinds return an error.
func (d DType) DecodeAll(buf []byte) ([]any, error) {
	if d.Size == 0 {
		if d.Kind == 'U' {
			return []any{""}, nil
		}
		return nil, fmt.Errorf("%w: zero-sized %s", ErrBadDescr, d)
	}
	if len(buf)%d.Size != 0 {
		return nil, fmt.Errorf("payload of %d bytes is not a multiple of item size %d", len(buf), d.Size)
	}

	out := make([]any, 0, len(buf)/d.Size)
	for off := 0; off < len(buf); off += d.Size {
		v, err := d.decode(buf[off : off+d.Size])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (d DType) decode(b []byte) (any, error) {
	order := d.byteOrder()
	switch d.Kind {
	case 'b':
		return b[0] != 0, nil
	case 'i':
		switch d.Size {
		case 1:
			return int64(int8(b[0])), nil
		case 2:
			return int64(int16(order.Uint16(b))), nil
		case 4:
			return int64(int32(order.Uint32(b))), nil
		default:
			//nolint:gosec // G115: two's complement reinterpretation
			return int64(order.Uint64(b)), nil
		}
	case 'u':
		switch d.Size {
		case 1:
			return uint64(b[0]), nil
		case 2:
			return uint64(order.Uint16(b)), nil
		case 4:
			return uint64(order.Uint32(b)), nil
		default:
			return order.Uint64(b), nil
		}
	case 'f':
		return decodeFloat(b, d.Size, order), nil
	case 'c':
		half := d.Size / 2
		re := decodeFloat(b[:half], half, order)
		im := decodeFloat(b[half:], half, order)
		return complex(re, im), nil
	case 'U':
		return decodeUCS4(b, order), nil
	default:
		return nil, fmt.Errorf("cannot decode values of dtype %s", d)
	}
}

func decodeFloat(b []byte, size int, order binary.ByteOrder) float64 {
	switch size {
	case 2:
		return Float16ToFloat64(order.Uint16(b))
	case 4:
		return float64(math.Float32frombits(order.Uint32(b)))
	case 8:
		return math.Float64frombits(order.Uint64(b))
	default:
		return extendedToFloat64(b, order)
	}
}

// Float16ToFloat64 converts IEEE 754 half precision bits to float64.
//
// Format (16 bits total):
//   - Bit 15:     Sign
//   - Bits 14-10: Exponent (bias=15)
//   - Bits 9-0:   Mantissa
func Float16ToFloat64(h uint16) float64 {
	sign := 1.0
	if h&0x8000 != 0 {
		sign = -1.0
	}
	exp := int(h>>10) & 0x1F
	frac := float64(h & 0x3FF)

	switch exp {
	case 0:
		return sign * math.Ldexp(frac, -24) // subnormal
	case 0x1F:
		if frac != 0 {
			return math.NaN()
		}
		return math.Inf(int(sign))
	default:
		return sign * math.Ldexp(1024+frac, exp-25)
	}
}

// extendedToFloat64 converts an x87 80-bit extended value padded to 12 or
// 16 bytes (NumPy's longdouble) to float64, losing the extra precision.
func extendedToFloat64(b []byte, order binary.ByteOrder) float64 {
	le := make([]byte, len(b))
	copy(le, b)
	if order == binary.BigEndian {
		for i, j := 0, len(le)-1; i < j; i, j = i+1, j-1 {
			le[i], le[j] = le[j], le[i]
		}
	}

	mant := binary.LittleEndian.Uint64(le[0:8])
	se := binary.LittleEndian.Uint16(le[8:10])
	sign := 1.0
	if se&0x8000 != 0 {
		sign = -1.0
	}
	exp := int(se & 0x7FFF)

	switch {
	case exp == 0x7FFF:
		if mant<<1 != 0 {
			return math.NaN()
		}
		return math.Inf(int(sign))
	case exp == 0 && mant == 0:
		return math.Copysign(0, sign)
	}
	if exp == 0 {
		exp = 1 // denormal
	}

	// Keep the top 53 significant bits so the float conversion is exact
	// before scaling.
	shift := 0
	if l := bits.Len64(mant); l > 53 {
		shift = l - 53
	}
	return sign * math.Ldexp(float64(mant>>shift), exp-16383-63+shift)
}

// decodeUCS4 decodes fixed-width UTF-32 text, dropping trailing NULs.
func decodeUCS4(b []byte, order binary.ByteOrder) string {
	var sb strings.Builder
	for off := 0; off+4 <= len(b); off += 4 {
		r := rune(order.Uint32(b[off:]))
		if !utf8.ValidRune(r) {
			r = utf8.RuneError
		}
		sb.WriteRune(r)
	}
	return strings.TrimRight(sb.String(), "\x00")
}
