package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	// (including a stored session that has passed its TTL).
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
