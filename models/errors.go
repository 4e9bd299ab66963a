package models

import "errors"

// Error kinds surfaced by the commission engine. Handlers translate these
// to HTTP status codes; everything else is treated as an internal error.
var (
	ErrNotFound               = errors.New("referenced record not found")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrPersistenceConflict    = errors.New("concurrent write conflict")
)
