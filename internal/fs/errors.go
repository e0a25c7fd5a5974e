package fs

import (
	"errors"
	"fmt"
)

// IOError reports a failed filesystem operation on a path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IOError implements the behavioral interface for cross-package error checking.
func (e *IOError) IOError() bool {
	return true
}

// WrapIO returns nil for a nil err, otherwise an *IOError for op on path.
func WrapIO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// IsIOError reports whether any error in err's chain is an *IOError.
func IsIOError(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}
