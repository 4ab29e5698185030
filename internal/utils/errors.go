package utils

import "fmt"

// ParseError carries the step that failed together with its cause.
type ParseError struct {
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// WrapError creates a contextual error. A nil cause yields nil.
func WrapError(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &ParseError{
		Context: context,
		Cause:   cause,
	}
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *ParseError) Unwrap() error {
	return e.Cause
}
