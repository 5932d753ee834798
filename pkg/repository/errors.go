package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when a unique key is already taken
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrConflict is returned when a compare-and-set precondition no longer holds
	ErrConflict = errors.New("entity conflict detected")
)
