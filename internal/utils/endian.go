package utils

import (
	"encoding/binary"
	"io"
)

// ReadUint16 reads a 16-bit value from the current position of r.
func ReadUint16(r io.Reader, order binary.ByteOrder) (uint16, error) {
	buf := GetBuffer(2)
	defer ReleaseBuffer(buf)

	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return order.Uint16(buf), nil
}

// ReadUint32 reads a 32-bit value from the current position of r.
func ReadUint32(r io.Reader, order binary.ByteOrder) (uint32, error) {
	buf := GetBuffer(4)
	defer ReleaseBuffer(buf)

	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return order.Uint32(buf), nil
}

// ReadBytes reads exactly n bytes into a fresh slice.
func ReadBytes(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
