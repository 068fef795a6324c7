package shared

import "errors"

// Sentinel errors shared across domain packages. Handlers map these onto
// HTTP status codes.
var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCSRFTokenMissing   = errors.New("csrf token missing")
	ErrCSRFTokenMismatch  = errors.New("csrf token mismatch")
)
