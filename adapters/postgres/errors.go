package postgres

import (
	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

// Sentinel errors for the postgres stream.
// These are aliases to the adapters package errors for compatibility with errors.Is().
var (
	ErrAdapterClosed       = adapters.ErrAdapterClosed
	ErrEmptyStreamID       = adapters.ErrEmptyStreamID
	ErrNoEvents            = adapters.ErrNoEvents
	ErrConcurrencyConflict = adapters.ErrConcurrencyConflict
	ErrInvalidToken        = adapters.ErrInvalidToken
)
