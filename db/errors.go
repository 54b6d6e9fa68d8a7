package db

import "github.com/pkg/errors"

// Storage-internal error kinds. The repository returns these so failure paths
// stay unit-testable; the service layer decides per call site which of them
// collapse to a logged no-op.
var (
	ErrNotFound            = errors.New("record not found")
	ErrConstraintViolation = errors.New("constraint violation")
)
