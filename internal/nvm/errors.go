package nvm

import "errors"

// Domain-specific errors for NVM operations.
var (
	// ErrOutOfRange is returned when an access falls outside the region.
	ErrOutOfRange = errors.New("nvm: access out of range")

	// ErrClosed is returned by operations on a closed region.
	ErrClosed = errors.New("nvm: region closed")

	// ErrInvalidSize is returned when a region is opened with a non-positive size.
	ErrInvalidSize = errors.New("nvm: region size must be positive")

	// ErrUnknownBackend is returned by Open for an unrecognised backend name.
	ErrUnknownBackend = errors.New("nvm: unknown backend")
)
