package shared

import "errors"

// Error kinds shared by every module. Packages wrap these with %w so callers
// and the HTTP layer can classify failures with errors.Is.
var (
	// ErrInvalidInput indicates malformed or missing request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound indicates the referenced record is absent or inactive.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock indicates a cloth request above the remaining balance.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidState indicates an operation attempted from a disallowed state.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnauthorized indicates a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller without the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicate indicates a uniqueness conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
