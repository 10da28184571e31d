package vcs

import (
	"errors"
	"fmt"
)

// Error taxonomy returned by the core. Callers classify with errors.Is;
// HTTP status mapping belongs to the transport layer and is not done here.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrMergeBlocked     = errors.New("merge blocked by unresolved conflicts")
	ErrStorage          = errors.New("storage failure")
)

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func alreadyExistsf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrAlreadyExists)
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

func invalidOpf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidOperation)
}

// storagef wraps a store error so callers can retry on ErrStorage while the
// underlying driver error stays reachable through the chain.
func storagef(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, err, ErrStorage)
}
