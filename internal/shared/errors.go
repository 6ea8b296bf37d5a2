package shared

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a duplicate tenant domain or principal email.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates malformed input rejected before any store access.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates an authorization denial.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure. The cause is deliberately
	// undifferentiated so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAlreadyResolved indicates an approval request is in a terminal state.
	ErrAlreadyResolved = errors.New("approval request already resolved")
)
