package model

import "errors"

// Sentinel errors for business-rule violations. Store functions wrap these
// with context via fmt.Errorf("...: %w", ...); callers check with errors.Is.
// The API layer maps them to HTTP status codes.
var (
	// ErrForbidden means the acting user is neither a participant of the
	// entity nor an admin.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict means the entity is not in a state that permits the
	// requested transition.
	ErrConflict = errors.New("conflict")

	// ErrNotFound means the entity does not exist or does not belong to the
	// referenced parent.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the input is malformed or violates a constraint.
	ErrValidation = errors.New("validation failed")
)
