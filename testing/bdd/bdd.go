// Package bdd provides BDD-style test fixtures for event-sourced aggregates.
// It enables expressive Given-When-Then testing patterns for command handling
// and aggregate behavior verification.
package bdd

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/testing/assertions"
)

// TB is an alias for testing.TB interface to allow mocking in tests
type TB = testing.TB

// TestFixture provides BDD-style testing for aggregates.
type TestFixture struct {
	t           TB
	aggregate   stoat.Aggregate
	givenEvents []stoat.Event
	result      error
	executed    bool
}

// Given sets up the aggregate with optional historical events.
// The events are rehydrated, so they never show up as uncommitted.
func Given(t TB, aggregate stoat.Aggregate, events ...stoat.Event) *TestFixture {
	t.Helper()
	return &TestFixture{
		t:           t,
		aggregate:   aggregate,
		givenEvents: events,
	}
}

// When executes a command function against the aggregate.
// The command function should call methods on the aggregate and return any error.
func (f *TestFixture) When(commandFunc func() error) *TestFixture {
	f.t.Helper()

	if err := f.aggregate.Rehydrate(f.givenEvents); err != nil {
		f.t.Fatalf("Failed to rehydrate given events: %v", err)
	}

	f.result = commandFunc()
	f.executed = true

	return f
}

// Then asserts that the aggregate produced the expected events.
func (f *TestFixture) Then(expectedEvents ...stoat.Event) {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: Then() must be called after When() - no command was executed")
	}

	if f.result != nil {
		f.t.Fatalf("Expected success but got error: %v", f.result)
	}

	assertEvents(f.t, expectedEvents, f.aggregate.UncommittedEvents())
}

// ThenError asserts that the command produced the expected error.
func (f *TestFixture) ThenError(expectedErr error) {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenError() must be called after When() - no command was executed")
	}

	if f.result == nil {
		f.t.Fatal("Expected error but got success")
	}

	if !errors.Is(f.result, expectedErr) {
		f.t.Errorf("Expected error %v, got %v", expectedErr, f.result)
	}
}

// ThenErrorContains asserts that the error message contains a substring.
func (f *TestFixture) ThenErrorContains(substring string) {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenErrorContains() must be called after When() - no command was executed")
	}

	if f.result == nil {
		f.t.Fatal("Expected error but got success")
	}

	if !strings.Contains(f.result.Error(), substring) {
		f.t.Errorf("Expected error containing %q, got %q", substring, f.result.Error())
	}
}

// ThenNoEvents asserts that no events were produced.
func (f *TestFixture) ThenNoEvents() {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenNoEvents() must be called after When() - no command was executed")
	}

	if f.result != nil {
		f.t.Fatalf("Expected success but got error: %v", f.result)
	}

	uncommitted := f.aggregate.UncommittedEvents()
	if len(uncommitted) > 0 {
		f.t.Errorf("Expected no events, got %d: %+v", len(uncommitted), uncommitted)
	}
}

func assertEvents(t TB, expected, actual []stoat.Event) {
	t.Helper()

	if len(actual) != len(expected) {
		t.Fatalf("Expected %d events, got %d.\nExpected: %+v\nActual: %+v",
			len(expected), len(actual), expected, actual)
	}

	assertions.AssertEventsEqual(t, expected, actual)
}

// StreamTestFixture runs commands through a stoat.Processor against a real
// event stream and asserts on what was persisted.
type StreamTestFixture struct {
	t           TB
	ctx         context.Context
	stream      stoat.EventStream
	opts        []stoat.Option
	givenEvents map[string][]stoat.Event
	givenOrder  []string
	aggregate   stoat.Aggregate
	err         error
	executed    bool
}

// GivenStream creates a new fixture on stream.
func GivenStream(t TB, stream stoat.EventStream, opts ...stoat.Option) *StreamTestFixture {
	t.Helper()
	return &StreamTestFixture{
		t:           t,
		ctx:         context.Background(),
		stream:      stream,
		opts:        opts,
		givenEvents: make(map[string][]stoat.Event),
	}
}

// WithContext sets a custom context for the command execution.
func (f *StreamTestFixture) WithContext(ctx context.Context) *StreamTestFixture {
	f.ctx = ctx
	return f
}

// WithExistingEvents sets up history in the stream before the command runs.
func (f *StreamTestFixture) WithExistingEvents(streamID string, events ...stoat.Event) *StreamTestFixture {
	if _, ok := f.givenEvents[streamID]; !ok {
		f.givenOrder = append(f.givenOrder, streamID)
	}
	f.givenEvents[streamID] = append(f.givenEvents[streamID], events...)
	return f
}

// When writes the existing events and processes cmd against aggregate.
func (f *StreamTestFixture) When(aggregate stoat.Aggregate, cmd stoat.Command) *StreamTestFixture {
	f.t.Helper()

	for _, streamID := range f.givenOrder {
		sc, err := f.stream.Read(f.ctx, streamID)
		if err != nil {
			f.t.Fatalf("Failed to read stream %q: %v", streamID, err)
		}
		if _, err := f.stream.Append(f.ctx, streamID, f.givenEvents[streamID], sc.Token); err != nil {
			f.t.Fatalf("Failed to store given events: %v", err)
		}
	}

	f.aggregate = aggregate
	f.err = stoat.NewProcessor(f.stream, f.opts...).Process(f.ctx, aggregate, cmd)
	f.executed = true
	return f
}

// ThenSucceeds asserts the command succeeded.
func (f *StreamTestFixture) ThenSucceeds() *StreamTestFixture {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenSucceeds() must be called after When() - no command was processed")
	}

	if f.err != nil {
		f.t.Fatalf("Expected success but got error: %v", f.err)
	}

	return f
}

// ThenFails asserts the command failed with the expected error.
func (f *StreamTestFixture) ThenFails(expectedErr error) {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenFails() must be called after When() - no command was processed")
	}

	if f.err == nil {
		f.t.Fatal("Expected failure but got success")
	}

	if !errors.Is(f.err, expectedErr) {
		f.t.Errorf("Expected error %v, got %v", expectedErr, f.err)
	}
}

// ThenStreamContains asserts the stream holds exactly the expected events.
func (f *StreamTestFixture) ThenStreamContains(streamID string, expectedEvents ...stoat.Event) *StreamTestFixture {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenStreamContains() must be called after When() - no command was processed")
	}

	sc, err := f.stream.Read(f.ctx, streamID)
	if err != nil {
		f.t.Fatalf("Failed to read stream %q: %v", streamID, err)
	}
	assertEvents(f.t, expectedEvents, sc.Events)

	return f
}

// ThenToken asserts the aggregate's concurrency token after processing.
func (f *StreamTestFixture) ThenToken(expected stoat.ConcurrencyToken) *StreamTestFixture {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenToken() must be called after When() - no command was processed")
	}

	if actual := f.aggregate.ConcurrencyToken(); !reflect.DeepEqual(actual, expected) {
		f.t.Errorf("Expected token %v, got %v", expected, actual)
	}

	return f
}
