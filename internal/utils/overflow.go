package utils

import (
	"fmt"
	"math"
)

// CheckMultiplyOverflow checks if multiplying two uint64 values would overflow.
func CheckMultiplyOverflow(a, b uint64) error {
	if a == 0 || b == 0 {
		return nil // No overflow when either is zero
	}

	if a > math.MaxUint64/b {
		return fmt.Errorf("multiplication overflow: %d * %d exceeds uint64 max", a, b)
	}

	return nil
}

// SafeMultiply multiplies two uint64 values and returns the result if no overflow occurs.
func SafeMultiply(a, b uint64) (uint64, error) {
	if err := CheckMultiplyOverflow(a, b); err != nil {
		return 0, err
	}
	return a * b, nil
}

// ElementCount returns the product of the extents in shape.
// An empty shape describes a single scalar element.
func ElementCount(shape []int) (uint64, error) {
	total := uint64(1)
	for i, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("negative extent %d at dimension %d", dim, i)
		}

		var err error
		total, err = SafeMultiply(total, uint64(dim))
		if err != nil {
			return 0, fmt.Errorf("element count overflow at dimension %d: %w", i, err)
		}
	}
	return total, nil
}

// ValidateBufferSize validates that a buffer size is within reasonable limits.
func ValidateBufferSize(size, maxSize uint64, description string) error {
	if size == 0 {
		return fmt.Errorf("%s: size cannot be zero", description)
	}

	if size > maxSize {
		return fmt.Errorf("%s: size %d exceeds maximum %d", description, size, maxSize)
	}

	return nil
}

// Common buffer size limits.
const (
	// MaxHeaderSize limits an array header text to 1MB.
	MaxHeaderSize = 1024 * 1024

	// MaxElementSize limits a single data element read into memory to 64MB.
	MaxElementSize = 64 * 1024 * 1024

	// MaxNameSize limits variable names to 64KB.
	MaxNameSize = 64 * 1024
)
