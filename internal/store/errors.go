package store

import "errors"

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateID is returned when inserting a record whose id is already taken.
	ErrDuplicateID = errors.New("duplicate record id")
	// ErrUniqueViolation is returned when a write would break a unique index.
	ErrUniqueViolation = errors.New("unique index violation")
)
