// Package scalar decides which entries are cheap enough to read eagerly
// and reduces a decoded single-element buffer to a native Go value.
//
// Values handed out by this package are always one of:
//
//	int64, uint64, float64, complex128, string, bool
//
// Narrower element types are widened on the way out so callers only ever
// switch over that closed set.
package scalar

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotScalar is returned when Unwrap is handed anything but a single element.
var ErrNotScalar = errors.New("buffer does not hold exactly one element")

// eligiblePrefixes are the dtype prefixes whose zero-dimensional values
// are extracted from archive members.
var eligiblePrefixes = []string{"int", "uint", "float", "complex", "<U", ">U"}

// Eligible reports whether a binary array entry with the given shape and
// dtype name should have its value materialized.
func Eligible(shape []int, dtype string) bool {
	if len(shape) != 0 {
		return false
	}
	for _, p := range eligiblePrefixes {
		if strings.HasPrefix(dtype, p) {
			return true
		}
	}
	return false
}

// IsTableScalar reports whether a table-file shape is one of the two
// on-disk scalar conventions, (1, 1) and (1,).
func IsTableScalar(shape []int) bool {
	switch len(shape) {
	case 1:
		return shape[0] == 1
	case 2:
		return shape[0] == 1 && shape[1] == 1
	default:
		return false
	}
}

// Unwrap returns the only element of elems.
func Unwrap[T any](elems []T) (T, error) {
	var zero T
	if len(elems) != 1 {
		return zero, fmt.Errorf("%w: got %d", ErrNotScalar, len(elems))
	}
	return elems[0], nil
}

// Widen converts a decoded element to its native representative.
// Unsupported kinds return nil.
func Widen(v any) any {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case int:
		return int64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	case float32:
		return float64(x)
	case float64:
		return x
	case complex64:
		return complex128(x)
	case complex128:
		return x
	case string:
		return x
	case bool:
		return x
	default:
		return nil
	}
}
