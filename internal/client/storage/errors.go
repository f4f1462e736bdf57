package storage

import "errors"

// Common client storage errors
var (
	// ErrKeyNotFound indicates that no value exists for the requested key
	ErrKeyNotFound = errors.New("key not found")

	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
