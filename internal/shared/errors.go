package shared

import "errors"

var (
	// ErrNotFound marks a lookup that matched no row.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials covers every login failure mode; callers must
	// not reveal whether the account or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing is returned when a mutating request carries no
	// token header.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch is returned when the presented token does not
	// match the session's.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
