package hashtree

import "errors"

var (
	// ErrOutOfRange is returned for a position outside of the arena or the leaves.
	ErrOutOfRange = errors.New("index out of range")
	// ErrInvariantViolation signals that the tree structure is inconsistent.
	// It is a bug and must not be ignored.
	ErrInvariantViolation = errors.New("hash tree invariant violation")
	// ErrKeyExists is returned when inserting a key that is already present.
	ErrKeyExists = errors.New("key already exists")
)
