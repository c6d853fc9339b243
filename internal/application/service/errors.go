package service

import (
	"errors"
	"fmt"
)

// Error kinds the HTTP layer maps onto status codes. Every service failure
// wraps exactly one of these (or nfse.ErrUpstream for authority failures).
var (
	// ErrValidation marks bad input: unresolvable service code, missing
	// client, missing rejection reason.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden marks a role or ownership violation.
	ErrForbidden = errors.New("not authorized")

	// ErrPrecondition marks a transition attempted from the wrong state.
	ErrPrecondition = errors.New("invalid invoice state for this operation")

	// ErrNotFound marks a missing invoice or related record.
	ErrNotFound = errors.New("not found")
)

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func forbiddenErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func preconditionErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}
