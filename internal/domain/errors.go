package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a unique constraint violation. Callers treat it as
	// "already exists" and re-read.
	ErrConflict = errors.New("conflict")
)
