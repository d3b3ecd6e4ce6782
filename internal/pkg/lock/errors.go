package lock

import "errors"

// Lock-related errors.
var (
	// ErrLockTimeout is returned when a lock cannot be acquired before the context ends.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrNotLocked is returned when releasing a key that is not held.
	ErrNotLocked = errors.New("key is not locked")
)
