package assertions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/examples/bankaccount"
	"github.com/AshkanYarmoradi/go-stoat/testing/testutil"
)

var history = []stoat.Event{
	bankaccount.AccountOpened{AccountID: "acc-1"},
	bankaccount.AccountCredited{Amount: 100},
	bankaccount.AccountDebited{Amount: 40},
	bankaccount.AccountCredited{Amount: 5},
}

func TestAssertEventTypes(t *testing.T) {
	t.Run("passes", func(t *testing.T) {
		AssertEventTypes(t, history, "AccountOpened", "AccountCredited", "AccountDebited", "AccountCredited")
	})

	t.Run("count mismatch is fatal", func(t *testing.T) {
		mt := testutil.RunWithMockT(func(m *testutil.MockT) {
			AssertEventTypes(m, history, "AccountOpened")
		})

		assert.True(t, mt.Fatal_)
		assert.Equal(t, "Expected 1 events, got 4", mt.Message)
	})

	t.Run("type mismatch", func(t *testing.T) {
		mt := testutil.RunWithMockT(func(m *testutil.MockT) {
			AssertEventTypes(m, history[:1], "AccountCredited")
		})

		assert.True(t, mt.Failed())
		assert.Contains(t, mt.Message, "expected type AccountCredited, got AccountOpened")
	})
}

func TestAssertEventData(t *testing.T) {
	t.Run("passes", func(t *testing.T) {
		AssertEventData(t, history[1], bankaccount.AccountCredited{Amount: 100})
	})

	t.Run("wrong type", func(t *testing.T) {
		mt := testutil.RunWithMockT(func(m *testutil.MockT) {
			AssertEventData(m, history[0], bankaccount.AccountCredited{Amount: 100})
		})

		assert.True(t, mt.Fatal_)
		assert.Contains(t, mt.Message, "not of expected type")
	})

	t.Run("wrong data", func(t *testing.T) {
		mt := testutil.RunWithMockT(func(m *testutil.MockT) {
			AssertEventData(m, history[1], bankaccount.AccountCredited{Amount: 1})
		})

		assert.True(t, mt.Failed())
		assert.False(t, mt.Fatal_)
	})
}

func TestAssertNoEvents(t *testing.T) {
	AssertNoEvents(t, nil)

	mt := testutil.RunWithMockT(func(m *testutil.MockT) {
		AssertNoEvents(m, history)
	})
	assert.Contains(t, mt.Message, "Expected no events, got 4")
}

func TestAssertContainsEventType(t *testing.T) {
	AssertContainsEventType(t, history, "AccountDebited")

	mt := testutil.RunWithMockT(func(m *testutil.MockT) {
		AssertContainsEventType(m, history, "AccountClosed")
	})
	assert.Contains(t, mt.Message, "AccountClosed")
}

func TestDiffEvents(t *testing.T) {
	t.Run("equal", func(t *testing.T) {
		assert.Empty(t, DiffEvents(history, history))
		assert.Equal(t, "no differences", FormatDiffs(nil))
	})

	t.Run("mismatch missing extra", func(t *testing.T) {
		expected := []stoat.Event{
			bankaccount.AccountOpened{AccountID: "acc-1"},
			bankaccount.AccountCredited{Amount: 99},
		}
		actual := []stoat.Event{
			bankaccount.AccountOpened{AccountID: "acc-1"},
			bankaccount.AccountCredited{Amount: 100},
			bankaccount.AccountDebited{Amount: 1},
		}

		diffs := DiffEvents(expected, actual)

		assert.Len(t, diffs, 2)
		assert.Equal(t, DiffMismatch, diffs[0].Type)
		assert.Equal(t, 1, diffs[0].Index)
		assert.Equal(t, DiffExtra, diffs[1].Type)

		missing := DiffEvents(actual, expected)
		assert.Equal(t, DiffMissing, missing[1].Type)

		out := FormatDiffs(diffs)
		assert.Contains(t, out, "Event 1 (mismatch)")
		assert.Contains(t, out, "- AccountCredited {Amount:99}")
		assert.Contains(t, out, "+ AccountDebited {Amount:1} (unexpected)")
	})
}

func TestDiffType_String(t *testing.T) {
	assert.Equal(t, "missing", DiffMissing.String())
	assert.Equal(t, "extra", DiffExtra.String())
	assert.Equal(t, "mismatch", DiffMismatch.String())
	assert.Equal(t, "unknown", DiffType(42).String())
}

func TestAssertEventsEqual(t *testing.T) {
	AssertEventsEqual(t, history, history)

	mt := testutil.RunWithMockT(func(m *testutil.MockT) {
		AssertEventsEqual(m, history[:1], history[:2])
	})
	assert.True(t, mt.Failed())
	assert.Contains(t, mt.Message, "Event 1 (extra)")
}

func TestMatchers(t *testing.T) {
	credited := MatchEventType("AccountCredited")

	assert.Equal(t, 2, CountMatches(history, credited))
	assert.Equal(t, []stoat.Event{
		bankaccount.AccountCredited{Amount: 100},
		bankaccount.AccountCredited{Amount: 5},
	}, FilterEvents(history, credited))

	assert.Equal(t, 1, CountMatches(history, MatchEvent(bankaccount.AccountDebited{Amount: 40})))
	assert.Equal(t, 0, CountMatches(history, MatchEvent(bankaccount.AccountDebited{Amount: 41})))
	assert.Nil(t, FilterEvents(nil, credited))
}
