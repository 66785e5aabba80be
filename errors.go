package stoat

import (
	"errors"
	"fmt"

	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

// Sentinel errors for common error conditions.
// Use errors.Is() to check for these errors.
var (
	// ErrInvalidIdentity indicates an aggregate identity is missing or blank.
	// It is detected before any I/O takes place.
	ErrInvalidIdentity = errors.New("stoat: aggregate ID must not be empty")

	// ErrNilEvent indicates an attempt to apply an absent event.
	ErrNilEvent = errors.New("stoat: event to be applied is nil")

	// ErrUnregisteredEvent indicates an event type without a handler was applied
	// to an aggregate running with strict event registration.
	ErrUnregisteredEvent = errors.New("stoat: event type not registered")

	// ErrConcurrencyConflict indicates the stream moved on since it was read.
	// This is an alias to the adapters package error for compatibility.
	ErrConcurrencyConflict = adapters.ErrConcurrencyConflict

	// ErrStore indicates the event stream failed for a reason other than a
	// concurrency conflict.
	ErrStore = errors.New("stoat: event stream failure")

	// ErrWriteOutcomeUnknown indicates an append was issued but it cannot be
	// determined whether the backend persisted it.
	ErrWriteOutcomeUnknown = errors.New("stoat: append outcome unknown")

	// ErrAlreadyHydrated indicates Rehydrate was called on an aggregate that
	// already holds committed or uncommitted events.
	ErrAlreadyHydrated = errors.New("stoat: aggregate already holds events")

	// ErrDuplicateHandler indicates a second handler was registered for an event type.
	ErrDuplicateHandler = errors.New("stoat: duplicate event handler")

	// ErrIdentityChanged indicates an attempt to replace an assigned aggregate ID.
	ErrIdentityChanged = errors.New("stoat: aggregate ID cannot change once assigned")

	// ErrNilAggregate indicates a nil aggregate was passed.
	ErrNilAggregate = errors.New("stoat: nil aggregate")
)

// ConcurrencyError is re-exported from the adapters package so callers can
// inspect expected and actual versions without importing adapters.
type ConcurrencyError = adapters.ConcurrencyError

// NewConcurrencyError creates a new ConcurrencyError.
func NewConcurrencyError(streamID string, expected, actual int64) *ConcurrencyError {
	return adapters.NewConcurrencyError(streamID, expected, actual)
}

// UnregisteredEventError provides detailed information about an event that has
// no handler on a strict aggregate.
type UnregisteredEventError struct {
	EventType     string
	AggregateType string
}

// Error returns the error message.
func (e *UnregisteredEventError) Error() string {
	return fmt.Sprintf("stoat: event %q is not registered in %q", e.EventType, e.AggregateType)
}

// Is reports whether this error matches the target error.
func (e *UnregisteredEventError) Is(target error) bool {
	return target == ErrUnregisteredEvent
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *UnregisteredEventError) Unwrap() error {
	return ErrUnregisteredEvent
}

// NewUnregisteredEventError creates a new UnregisteredEventError.
func NewUnregisteredEventError(eventType, aggregateType string) *UnregisteredEventError {
	return &UnregisteredEventError{EventType: eventType, AggregateType: aggregateType}
}

// StoreError wraps a failure reported by the event stream.
// The original cause stays reachable through errors.Is and errors.As.
type StoreError struct {
	Op       string // "read" or "append"
	StreamID string
	Err      error
}

// Error returns the error message.
func (e *StoreError) Error() string {
	return fmt.Sprintf("stoat: failed to %s stream %q: %v", e.Op, e.StreamID, e.Err)
}

// Is reports whether this error matches the target error.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// Unwrap returns the underlying cause for errors.Unwrap().
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, streamID string, err error) *StoreError {
	return &StoreError{Op: op, StreamID: streamID, Err: err}
}

// WriteOutcomeUnknownError is returned when an append was cancelled after it
// was handed to the stream. The events may or may not have been persisted;
// re-read the stream before retrying.
type WriteOutcomeUnknownError struct {
	StreamID string
	Events   int
	Cause    error
}

// Error returns the error message.
func (e *WriteOutcomeUnknownError) Error() string {
	return fmt.Sprintf("stoat: outcome of appending %d event(s) to stream %q is unknown: %v",
		e.Events, e.StreamID, e.Cause)
}

// Is reports whether this error matches the target error.
func (e *WriteOutcomeUnknownError) Is(target error) bool {
	return target == ErrWriteOutcomeUnknown
}

// Unwrap returns the underlying cause for errors.Unwrap().
func (e *WriteOutcomeUnknownError) Unwrap() error {
	return e.Cause
}

// NewWriteOutcomeUnknownError creates a new WriteOutcomeUnknownError.
func NewWriteOutcomeUnknownError(streamID string, events int, cause error) *WriteOutcomeUnknownError {
	return &WriteOutcomeUnknownError{StreamID: streamID, Events: events, Cause: cause}
}
