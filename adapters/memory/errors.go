package memory

import (
	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

// Sentinel errors for the memory stream.
// These are aliases to the adapters package errors for compatibility with errors.Is().
var (
	// ErrAdapterClosed is returned when an operation is attempted on a closed stream.
	ErrAdapterClosed = adapters.ErrAdapterClosed

	// ErrEmptyStreamID is returned when an empty stream ID is provided.
	ErrEmptyStreamID = adapters.ErrEmptyStreamID

	// ErrNoEvents is returned when attempting to append zero events.
	ErrNoEvents = adapters.ErrNoEvents

	// ErrConcurrencyConflict is returned when optimistic concurrency check fails.
	ErrConcurrencyConflict = adapters.ErrConcurrencyConflict

	// ErrInvalidToken is returned when the concurrency token is not a version.
	ErrInvalidToken = adapters.ErrInvalidToken
)

// ConcurrencyError is an alias for adapters.ConcurrencyError.
type ConcurrencyError = adapters.ConcurrencyError
