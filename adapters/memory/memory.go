// Package memory provides an in-memory implementation of stoat.EventStream.
// This stream is primarily intended for testing and development purposes.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

// Ensure MemoryStream implements all required interfaces.
var (
	_ stoat.EventStream      = (*MemoryStream)(nil)
	_ adapters.HealthChecker = (*MemoryStream)(nil)
)

// MemoryStream is an in-memory EventStream.
// The concurrency token is the number of events in the stream (an int64).
// It is thread-safe and suitable for unit testing.
type MemoryStream struct {
	mu      sync.RWMutex
	streams map[string][]entry
	now     func() time.Time
	closed  bool
}

type entry struct {
	record adapters.StoredRecord
	event  stoat.Event
}

// Option configures a MemoryStream.
type Option func(*MemoryStream)

// WithClock sets the clock used to timestamp stored events.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStream) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStream creates a new in-memory event stream.
func NewStream(opts ...Option) *MemoryStream {
	s := &MemoryStream{
		streams: make(map[string][]entry),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Read returns all events of a stream in append order.
// A stream that was never written yields no events and a NoHistory token.
func (s *MemoryStream) Read(ctx context.Context, streamID string) (stoat.StreamContext, error) {
	if err := ctx.Err(); err != nil {
		return stoat.StreamContext{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return stoat.StreamContext{}, ErrAdapterClosed
	}

	if streamID == "" {
		return stoat.StreamContext{}, ErrEmptyStreamID
	}

	entries := s.streams[streamID]
	if len(entries) == 0 {
		return stoat.StreamContext{Token: adapters.NoHistory}, nil
	}

	events := make([]stoat.Event, len(entries))
	for i, e := range entries {
		events[i] = e.event
	}

	return stoat.StreamContext{
		Events: events,
		Token:  int64(len(entries)),
	}, nil
}

// Append stores events at the end of the stream if token still matches the
// stream's version. Either all events are stored or none.
func (s *MemoryStream) Append(ctx context.Context, streamID string, events []stoat.Event, token stoat.ConcurrencyToken) (stoat.ConcurrencyToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	expected, err := adapters.VersionFromToken(token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrAdapterClosed
	}

	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	for _, event := range events {
		if stoat.IsNilEvent(event) {
			return nil, stoat.ErrNilEvent
		}
	}

	current := int64(len(s.streams[streamID]))
	if err := adapters.CheckVersion(streamID, expected, current); err != nil {
		return nil, err
	}

	now := s.now()
	for _, event := range events {
		current++
		s.streams[streamID] = append(s.streams[streamID], entry{
			record: adapters.StoredRecord{
				ID:        uuid.New().String(),
				StreamID:  streamID,
				Type:      event.EventType(),
				Version:   current,
				Timestamp: now,
			},
			event: event,
		})
	}

	return current, nil
}

// Records returns the stored metadata of a stream's events.
func (s *MemoryStream) Records(ctx context.Context, streamID string) ([]adapters.StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrAdapterClosed
	}

	entries := s.streams[streamID]
	records := make([]adapters.StoredRecord, len(entries))
	for i, e := range entries {
		records[i] = e.record
	}
	return records, nil
}

// StreamVersion returns the number of events in a stream.
func (s *MemoryStream) StreamVersion(streamID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.streams[streamID]))
}

// StreamCount returns the number of non-empty streams.
func (s *MemoryStream) StreamCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.streams)
}

// Reset clears all streams. Useful for test cleanup.
func (s *MemoryStream) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams = make(map[string][]entry)
}

// Ping always succeeds unless the stream is closed.
func (s *MemoryStream) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrAdapterClosed
	}
	return ctx.Err()
}

// Close releases any resources held by the stream.
func (s *MemoryStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
