// Package testing provides fixtures and test doubles for the format readers.
package testing

import "errors"

// MockReaderAt is an io.ReaderAt over a byte slice that can be told to
// fail, for exercising short reads in offset-based parsers.
type MockReaderAt struct {
	data    []byte
	failAt  int64
	failing bool
}

// NewMockReaderAt creates a new mock reader with the given data.
func NewMockReaderAt(data []byte) *MockReaderAt {
	return &MockReaderAt{data: data}
}

// FailAt makes every read touching offset off or beyond return an error.
func (m *MockReaderAt) FailAt(off int64) *MockReaderAt {
	m.failAt = off
	m.failing = true
	return m
}

// Size returns the length of the underlying data.
func (m *MockReaderAt) Size() int64 {
	return int64(len(m.data))
}

// ReadAt implements io.ReaderAt.
func (m *MockReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if m.failing && off+int64(len(p)) > m.failAt {
		return 0, errors.New("injected read failure")
	}

	if off >= int64(len(m.data)) {
		return 0, errors.New("offset beyond EOF")
	}

	n = copy(p, m.data[off:])
	if n < len(p) {
		err = errors.New("short read")
	}
	return
}
