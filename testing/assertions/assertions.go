// Package assertions provides event assertion utilities for testing event-sourced systems.
// It includes helpers for comparing events, checking event types, and generating event diffs.
package assertions

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/AshkanYarmoradi/go-stoat"
)

// TB is an alias for testing.TB interface to allow mocking in tests
type TB = testing.TB

// AssertEventTypes checks that the events have the expected discriminators in order.
func AssertEventTypes(t TB, events []stoat.Event, types ...string) {
	t.Helper()

	if len(events) != len(types) {
		t.Fatalf("Expected %d events, got %d", len(types), len(events))
	}

	for i, expectedType := range types {
		if actualType := eventType(events[i]); actualType != expectedType {
			t.Errorf("Event %d: expected type %s, got %s", i, expectedType, actualType)
		}
	}
}

// AssertEventData checks that a specific event matches the expected data.
func AssertEventData[E stoat.Event](t TB, event stoat.Event, expected E) {
	t.Helper()

	actual, ok := event.(E)
	if !ok {
		t.Fatalf("Event is not of expected type %T, got %T", expected, event)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("Event data mismatch:\nExpected: %+v\nActual: %+v", expected, actual)
	}
}

// AssertNoEvents checks that no events were produced.
func AssertNoEvents(t TB, events []stoat.Event) {
	t.Helper()

	if len(events) > 0 {
		t.Errorf("Expected no events, got %d: %+v", len(events), events)
	}
}

// AssertContainsEventType checks that the events contain at least one event with the discriminator.
func AssertContainsEventType(t TB, events []stoat.Event, typeName string) {
	t.Helper()

	if CountMatches(events, MatchEventType(typeName)) == 0 {
		t.Errorf("Events do not contain event of type %s", typeName)
	}
}

// EventDiff represents a difference between expected and actual events.
type EventDiff struct {
	Index    int
	Expected stoat.Event
	Actual   stoat.Event
	Type     DiffType
}

// DiffType represents the type of difference.
type DiffType int

const (
	// DiffMissing indicates an expected event was not present.
	DiffMissing DiffType = iota
	// DiffExtra indicates an unexpected event was present.
	DiffExtra
	// DiffMismatch indicates event data did not match.
	DiffMismatch
)

// String returns a human-readable representation of the diff type.
func (d DiffType) String() string {
	switch d {
	case DiffMissing:
		return "missing"
	case DiffExtra:
		return "extra"
	case DiffMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// DiffEvents compares two event sequences position by position.
func DiffEvents(expected, actual []stoat.Event) []EventDiff {
	var diffs []EventDiff

	maxLen := len(expected)
	if len(actual) > maxLen {
		maxLen = len(actual)
	}

	for i := 0; i < maxLen; i++ {
		switch {
		case i >= len(expected):
			diffs = append(diffs, EventDiff{Index: i, Actual: actual[i], Type: DiffExtra})
		case i >= len(actual):
			diffs = append(diffs, EventDiff{Index: i, Expected: expected[i], Type: DiffMissing})
		case !reflect.DeepEqual(expected[i], actual[i]):
			diffs = append(diffs, EventDiff{Index: i, Expected: expected[i], Actual: actual[i], Type: DiffMismatch})
		}
	}

	return diffs
}

// FormatDiffs formats event diffs as a human-readable string.
func FormatDiffs(diffs []EventDiff) string {
	if len(diffs) == 0 {
		return "no differences"
	}

	var buf strings.Builder
	buf.WriteString("Event differences:\n")

	for _, diff := range diffs {
		fmt.Fprintf(&buf, "  Event %d (%s):\n", diff.Index, diff.Type)
		switch diff.Type {
		case DiffExtra:
			fmt.Fprintf(&buf, "    + %s %+v (unexpected)\n", eventType(diff.Actual), diff.Actual)
		case DiffMissing:
			fmt.Fprintf(&buf, "    - %s %+v (missing)\n", eventType(diff.Expected), diff.Expected)
		case DiffMismatch:
			fmt.Fprintf(&buf, "    - %s %+v\n", eventType(diff.Expected), diff.Expected)
			fmt.Fprintf(&buf, "    + %s %+v\n", eventType(diff.Actual), diff.Actual)
		}
	}

	return buf.String()
}

// AssertEventsEqual compares two event sequences and fails with a diff if they differ.
func AssertEventsEqual(t TB, expected, actual []stoat.Event) {
	t.Helper()

	if diffs := DiffEvents(expected, actual); len(diffs) > 0 {
		t.Error(FormatDiffs(diffs))
	}
}

func eventType(e stoat.Event) string {
	if stoat.IsNilEvent(e) {
		return "<nil>"
	}
	return e.EventType()
}

// EventMatcher is a function that checks if an event matches certain criteria.
type EventMatcher func(event stoat.Event) bool

// MatchEventType returns a matcher that checks for a specific discriminator.
func MatchEventType(typeName string) EventMatcher {
	return func(event stoat.Event) bool {
		return eventType(event) == typeName
	}
}

// MatchEvent returns a matcher that checks for exact event equality.
func MatchEvent[E stoat.Event](expected E) EventMatcher {
	return func(event stoat.Event) bool {
		actual, ok := event.(E)
		return ok && reflect.DeepEqual(actual, expected)
	}
}

// CountMatches returns the number of events that match the matcher.
func CountMatches(events []stoat.Event, matcher EventMatcher) int {
	count := 0
	for _, event := range events {
		if matcher(event) {
			count++
		}
	}
	return count
}

// FilterEvents returns events that match the matcher.
func FilterEvents(events []stoat.Event, matcher EventMatcher) []stoat.Event {
	var result []stoat.Event
	for _, event := range events {
		if matcher(event) {
			result = append(result, event)
		}
	}
	return result
}
