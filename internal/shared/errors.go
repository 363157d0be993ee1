package shared

import "errors"

var (
	// ErrNotFound indicates the referenced resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSelfReference indicates an actor targeted itself where that is not allowed.
	ErrSelfReference = errors.New("actor and target are the same user")
	// ErrConflict indicates the requested state change collides with current state.
	ErrConflict = errors.New("conflict")
	// ErrUnauthenticated indicates a missing or invalid bearer credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUnavailable indicates an optional collaborator is not configured.
	ErrUnavailable = errors.New("unavailable")
)
