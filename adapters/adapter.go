// Package adapters provides shared building blocks for event stream backends.
package adapters

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for adapter implementations.
// Adapters should return these (or errors that match via errors.Is)
// to enable consistent error handling across different backends.
var (
	// ErrConcurrencyConflict is returned when optimistic concurrency check fails.
	ErrConcurrencyConflict = errors.New("stoat: concurrency conflict")

	// ErrEmptyStreamID is returned when an empty stream ID is provided.
	ErrEmptyStreamID = errors.New("stoat: stream ID is required")

	// ErrNoEvents is returned when attempting to append zero events.
	ErrNoEvents = errors.New("stoat: no events to append")

	// ErrInvalidToken is returned when a concurrency token has a type or value
	// the backend does not understand.
	ErrInvalidToken = errors.New("stoat: invalid concurrency token")

	// ErrAdapterClosed is returned when operations are attempted on a closed adapter.
	ErrAdapterClosed = errors.New("stoat: adapter is closed")
)

// StoredRecord is the backend-level representation of a persisted event.
// Backends that serialize events keep the payload in Data; the memory
// backend leaves Data empty.
type StoredRecord struct {
	// ID is the unique event identifier.
	ID string

	// StreamID is the stream this event belongs to.
	StreamID string

	// Type is the event type discriminator.
	Type string

	// Data is the serialized event payload.
	Data []byte

	// Version is the position within the stream (1-based).
	Version int64

	// Timestamp is when the event was stored.
	Timestamp time.Time
}

// HealthChecker provides health check capabilities.
type HealthChecker interface {
	// Ping checks if the adapter can connect to its backend.
	Ping(ctx context.Context) error
}

// Migrator provides schema migration capabilities.
type Migrator interface {
	// Migrate creates or upgrades the backend schema. It must be idempotent.
	Migrate(ctx context.Context) error
}
