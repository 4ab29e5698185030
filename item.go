package npzheader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"math"
	"slices"
	"strconv"
)

// ItemInfo describes one stored array.
type ItemInfo struct {
	// Shape holds the array extents; an empty shape denotes a scalar.
	Shape []int
	// DType is the element type name used by the file format.
	DType string
	// Value is the literal value of a scalar entry: int64, uint64,
	// float64, complex128, string or bool. It is nil for arrays and for
	// entries whose value is not extracted.
	Value any
}

// HeaderMap is an ordered map from item name to ItemInfo. Names keep the
// order of their first appearance in the file.
type HeaderMap struct {
	names []string
	items map[string]ItemInfo
}

// NewHeaderMap returns an empty map.
func NewHeaderMap() *HeaderMap {
	return &HeaderMap{items: make(map[string]ItemInfo)}
}

// Set stores info under name. A repeated name replaces the earlier
// entry in place.
func (m *HeaderMap) Set(name string, info ItemInfo) {
	if _, ok := m.items[name]; !ok {
		m.names = append(m.names, name)
	}
	m.items[name] = info
}

// Get returns the entry stored under name.
func (m *HeaderMap) Get(name string) (ItemInfo, bool) {
	info, ok := m.items[name]
	return info, ok
}

// Len returns the number of entries.
func (m *HeaderMap) Len() int {
	return len(m.names)
}

// Names returns the entry names in order.
func (m *HeaderMap) Names() []string {
	return slices.Clone(m.names)
}

// All iterates over the entries in order.
func (m *HeaderMap) All() iter.Seq2[string, ItemInfo] {
	return func(yield func(string, ItemInfo) bool) {
		for _, name := range m.names {
			if !yield(name, m.items[name]) {
				return
			}
		}
	}
}

type itemJSON struct {
	Shape []int  `json:"shape"`
	DType string `json:"dtype"`
	Value any    `json:"value"`
}

// MarshalJSON encodes the map as a JSON object with keys in order.
// Complex values and non-finite floats are encoded as strings.
func (m *HeaderMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		info := m.items[name]
		shape := info.Shape
		if shape == nil {
			shape = []int{}
		}
		val, err := json.Marshal(itemJSON{Shape: shape, DType: info.DType, Value: JSONValue(info.Value)})
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// JSONValue maps a scalar value to one encoding/json can represent.
func JSONValue(v any) any {
	switch x := v.(type) {
	case complex128:
		return FormatValue(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return FormatValue(x)
		}
	}
	return v
}

// FormatValue renders a scalar value as text, the way Python prints it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		return formatFloat(x)
	case complex128:
		im := shortFloat(imag(x))
		if real(x) == 0 && !math.Signbit(real(x)) {
			return im + "j"
		}
		if !math.Signbit(imag(x)) || math.IsNaN(imag(x)) {
			im = "+" + im
		}
		return "(" + shortFloat(real(x)) + im + "j)"
	case string:
		return x
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return shortFloat(f)
}

// shortFloat renders complex components, which drop the trailing ".0".
func shortFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if a := math.Abs(f); a >= 1e16 || (a != 0 && a < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
