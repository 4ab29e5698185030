package npzheader

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrNotFound is returned when GetHeaders is called without a path.
var ErrNotFound = errors.New("npzheader: no path given")

// IOError reports a file that could not be opened or read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("npzheader: reading %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// FormatError reports a file whose structure could not be decoded.
// Member names the archive entry at fault, if any.
type FormatError struct {
	Path   string
	Member string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Member != "" {
		return fmt.Sprintf("npzheader: %s: member %s: %v", e.Path, e.Member, e.Err)
	}
	return fmt.Sprintf("npzheader: %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// classify turns a reader error into an *IOError when the operating system
// refused the read, and into a *FormatError otherwise.
func classify(path, member string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return &IOError{Path: path, Err: err}
	}
	return &FormatError{Path: path, Member: member, Err: err}
}
