package csvtable

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEncoding is returned when an encoding name cannot be resolved.
	ErrUnknownEncoding = errors.New("csvtable: unknown encoding")
	// ErrUnrepresentable is returned when a field holds a character the target encoding lacks.
	ErrUnrepresentable = errors.New("csvtable: character not representable in encoding")
)

// ResourceError reports a source or sink that could not be opened or released.
type ResourceError struct {
	Op   string
	Name string
	Err  error
}

// Error formats the failed operation and the resource name.
func (e *ResourceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("csvtable: %s %s: %v", e.Op, e.Name, e.Err)
}

// Unwrap returns the underlying Err.
func (e *ResourceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// EncodingError reports text that could not be decoded from, or encoded to,
// the declared encoding. Row and Field are 0-based; -1 means unknown.
type EncodingError struct {
	Encoding string
	Row      int
	Field    int
	Err      error
}

// Error formats the encoding and, when known, the row and field position.
func (e *EncodingError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Row >= 0 && e.Field >= 0:
		return fmt.Sprintf("csvtable: %s: row %d, field %d: %v", e.Encoding, e.Row, e.Field, e.Err)
	case e.Row >= 0:
		return fmt.Sprintf("csvtable: %s: row %d: %v", e.Encoding, e.Row, e.Err)
	default:
		return fmt.Sprintf("csvtable: %s: %v", e.Encoding, e.Err)
	}
}

// Unwrap returns the underlying Err.
func (e *EncodingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// atRow fills in the row index of an EncodingError carried by err, if any.
func atRow(err error, row int) error {
	var encErr *EncodingError
	if errors.As(err, &encErr) && encErr.Row < 0 {
		encErr.Row = row
	}
	return err
}
