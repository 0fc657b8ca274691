package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrUnsupported indicates a file format or operation is not supported
	ErrUnsupported = errors.New("unsupported")

	// ErrCorrupt indicates a file or database is corrupt or unreadable
	ErrCorrupt = errors.New("corrupt")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidQuery indicates a malformed query or sort order
	ErrInvalidQuery = errors.New("invalid query")

	// ErrPermission indicates a permission error
	ErrPermission = errors.New("permission denied")
)
