package testutil

import (
	"context"
	"sync"

	"github.com/AshkanYarmoradi/go-stoat"
)

// AppendCall records one call to MockStream.Append.
type AppendCall struct {
	StreamID string
	Events   []stoat.Event
	Token    stoat.ConcurrencyToken
}

// MockStream is a scriptable stoat.EventStream for testing.
// Read returns Events and Token; Append returns AppendToken.
type MockStream struct {
	ReadErr     error
	AppendErr   error
	Events      []stoat.Event
	Token       stoat.ConcurrencyToken
	AppendToken stoat.ConcurrencyToken

	mu      sync.Mutex
	reads   []string
	appends []AppendCall
}

var _ stoat.EventStream = (*MockStream)(nil)

// Read implements stoat.EventStream.
func (m *MockStream) Read(ctx context.Context, streamID string) (stoat.StreamContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads = append(m.reads, streamID)
	if m.ReadErr != nil {
		return stoat.StreamContext{}, m.ReadErr
	}
	return stoat.StreamContext{
		Events: append([]stoat.Event(nil), m.Events...),
		Token:  m.Token,
	}, nil
}

// Append implements stoat.EventStream.
func (m *MockStream) Append(ctx context.Context, streamID string, events []stoat.Event, token stoat.ConcurrencyToken) (stoat.ConcurrencyToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appends = append(m.appends, AppendCall{
		StreamID: streamID,
		Events:   append([]stoat.Event(nil), events...),
		Token:    token,
	})
	if m.AppendErr != nil {
		return nil, m.AppendErr
	}
	return m.AppendToken, nil
}

// Reads returns the stream IDs passed to Read, in call order.
func (m *MockStream) Reads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reads...)
}

// Appends returns the recorded Append calls, in call order.
func (m *MockStream) Appends() []AppendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AppendCall(nil), m.appends...)
}
