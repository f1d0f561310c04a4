package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by storage backends. Callers match them with
// errors.Is through the StorageError wrapper.
var (
	// ErrNotFound is returned when a requested object doesn't exist.
	ErrNotFound = errors.New("object not found")

	// ErrKeyExists is returned when writing to an occupied key with
	// overwrite disabled.
	ErrKeyExists = errors.New("object already exists at this key")

	// ErrInvalidKey is returned for keys with forbidden characters or
	// path traversal segments.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrTooLarge is returned when an object exceeds the backend's
	// configured size limit.
	ErrTooLarge = errors.New("object exceeds maximum size")

	// ErrAccessDenied is returned when the provider rejects the request
	// for permission reasons.
	ErrAccessDenied = errors.New("access denied")
)

// StorageError adds the failing operation and key to a backend error.
type StorageError struct {
	Op  string // "Put", "Get", "Delete"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
