package stoat

import (
	"context"
)

// ConcurrencyToken is an opaque value describing the stream position an
// aggregate was read at. It is produced by an EventStream, carried unchanged
// from Read to Append, and never interpreted by the processor or the aggregate.
type ConcurrencyToken any

// StreamContext is the result of reading a stream.
type StreamContext struct {
	// Events are the persisted events in application order.
	// Nil or empty means the stream has no history.
	Events []Event

	// Token identifies the position the stream was read at.
	Token ConcurrencyToken
}

// IsEmpty reports whether the stream has no history.
func (c StreamContext) IsEmpty() bool {
	return len(c.Events) == 0
}

// EventStream is the event log an aggregate is read from and appended to.
type EventStream interface {
	// Read returns the events of a stream and the token describing the read
	// position. A stream that does not exist is not an error; it yields an
	// empty StreamContext.
	Read(ctx context.Context, streamID string) (StreamContext, error)

	// Append stores events at the end of a stream, all or nothing.
	// token is the value observed by Read; if the stream has moved on since,
	// Append fails with an error matching ErrConcurrencyConflict.
	// The returned token describes the stream position after the write.
	Append(ctx context.Context, streamID string, events []Event, token ConcurrencyToken) (ConcurrencyToken, error)
}
