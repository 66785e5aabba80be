package adapters

import (
	"fmt"
)

// NoHistory is the version of a stream that has never been written to.
// Every built-in backend uses the committed event count as its concurrency
// token, so a fresh aggregate carries NoHistory into its first append.
const NoHistory int64 = 0

// ConcurrencyError provides details about a concurrency conflict.
// It is returned when an optimistic concurrency check fails during Append operations.
type ConcurrencyError struct {
	StreamID        string
	ExpectedVersion int64
	ActualVersion   int64
}

// NewConcurrencyError creates a new ConcurrencyError.
func NewConcurrencyError(streamID string, expected, actual int64) *ConcurrencyError {
	return &ConcurrencyError{
		StreamID:        streamID,
		ExpectedVersion: expected,
		ActualVersion:   actual,
	}
}

// Error implements the error interface.
func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("stoat: concurrency conflict on stream %q: expected version %d, got %d",
		e.StreamID, e.ExpectedVersion, e.ActualVersion)
}

// Is implements errors.Is compatibility.
// Returns true when compared with ErrConcurrencyConflict.
func (e *ConcurrencyError) Is(target error) bool {
	return target == ErrConcurrencyConflict
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *ConcurrencyError) Unwrap() error {
	return ErrConcurrencyConflict
}

// VersionFromToken converts an opaque concurrency token into a stream version.
//
// Behavior:
//   - nil returns NoHistory
//   - int64, int and uint64 values are accepted as-is when non-negative
//   - anything else returns ErrInvalidToken
func VersionFromToken(token any) (int64, error) {
	switch v := token.(type) {
	case nil:
		return NoHistory, nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative version %d", ErrInvalidToken, v)
		}
		return v, nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative version %d", ErrInvalidToken, v)
		}
		return int64(v), nil
	case uint64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: unsupported token type %T", ErrInvalidToken, token)
	}
}

// CheckVersion validates the expected version against the current version.
// This implements the optimistic concurrency control logic shared by all adapters.
func CheckVersion(streamID string, expected, current int64) error {
	if expected != current {
		return NewConcurrencyError(streamID, expected, current)
	}
	return nil
}
