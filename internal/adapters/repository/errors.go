package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for store errors. Validation failures wrap both the kind and
// the domain error, so errors.Is matches either.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid input")
	ErrDriver   = errors.New("unsupported database driver")
)

func kindErr(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}
