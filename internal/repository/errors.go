package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrReferenced is returned when a delete is blocked by rows that still
	// reference the record.
	ErrReferenced = errors.New("still referenced")
)
