package finder

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotFound is returned when a path to normalize does not exist.
	ErrPathNotFound = errors.New("path not found")
	// ErrRootEscape is returned when a path lies outside the configured root.
	ErrRootEscape = errors.New("path is outside the root")
	// ErrInvalidRoot is returned when the root directory does not exist.
	ErrInvalidRoot = errors.New("invalid root")
	// ErrRootLocked is returned when a different root is already set.
	ErrRootLocked = errors.New("root already set")
)

// PathError records a failed path operation.
type PathError struct {
	Op   string
	Path string
	Root string
	Err  error
}

func (e *PathError) Error() string {
	if e.Root != "" {
		return fmt.Sprintf("%s %s: %v (root %s)", e.Op, e.Path, e.Err, e.Root)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// OutsideRoot implements the behavioral interface for cross-package error checking.
func (e *PathError) OutsideRoot() bool {
	return errors.Is(e.Err, ErrRootEscape)
}
