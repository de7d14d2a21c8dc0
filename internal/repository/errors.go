package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrStatusConflict is returned when a conditional status update finds
	// the row in a different status than expected (lost compare-and-set).
	ErrStatusConflict = errors.New("service status changed concurrently")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint.
	ErrDuplicate = errors.New("entity already exists")
)
