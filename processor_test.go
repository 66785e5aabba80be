package stoat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func credit(amount int64) Command {
	return CommandFor(func(a *testAccount) error {
		return a.Credit(amount)
	})
}

func TestProcessor_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh aggregate credit", func(t *testing.T) {
		stream := newTestStream()
		p := NewProcessor(stream)
		a := newTestAccount("acc-1")

		err := p.Process(ctx, a, credit(100))

		require.NoError(t, err)
		assert.Equal(t, int64(100), a.Balance)
		require.Len(t, stream.appends, 1)
		assert.Equal(t, "acc-1", stream.appends[0].StreamID)
		assert.Equal(t, []Event{testAccountCredited{Amount: 100}}, stream.appends[0].Events)
		assert.Equal(t, ConcurrencyToken(int64(0)), stream.appends[0].Token)
		assert.False(t, a.HasUncommittedEvents())
		assert.Equal(t, []Event{testAccountCredited{Amount: 100}}, a.CommittedEvents())
		assert.Equal(t, ConcurrencyToken(int64(1)), a.ConcurrencyToken())
	})

	t.Run("reusing a processed aggregate does not replay history twice", func(t *testing.T) {
		stream := newTestStream()
		p := NewProcessor(stream)
		a := newTestAccount("acc-1")
		require.NoError(t, p.Process(ctx, a, credit(100)))

		err := p.Process(ctx, a, nil)

		assert.ErrorIs(t, err, ErrAlreadyHydrated)
		assert.Equal(t, int64(100), a.Balance)
		assert.Len(t, a.CommittedEvents(), 1)
		assert.Equal(t, 1, stream.appendCount())

		fresh := newTestAccount("acc-1")
		require.NoError(t, p.Process(ctx, fresh, nil))
		assert.Equal(t, int64(100), fresh.Balance)
	})

	t.Run("rehydrates history", func(t *testing.T) {
		stream := newTestStream()
		stream.seed("acc-1",
			testAccountOpened{AccountID: "acc-1"},
			testAccountCredited{Amount: 50},
			testAccountDebited{Amount: 10},
			testAccountCredited{Amount: 25},
		)
		p := NewProcessor(stream)
		a := newTestAccount("acc-1")

		err := p.Process(ctx, a, nil)

		require.NoError(t, err)
		assert.Equal(t, int64(65), a.Balance)
		assert.Empty(t, a.UncommittedEvents())
		assert.Len(t, a.CommittedEvents(), 4)
		assert.Equal(t, ConcurrencyToken(int64(4)), a.ConcurrencyToken())
	})

	t.Run("nil command does not write", func(t *testing.T) {
		stream := newTestStream()
		stream.seed("acc-1", testAccountCredited{Amount: 5})
		p := NewProcessor(stream)
		a := newTestAccount("acc-1")

		require.NoError(t, p.Process(ctx, a, nil))

		assert.Equal(t, []string{"acc-1"}, stream.reads)
		assert.Equal(t, 0, stream.appendCount())
		assert.Equal(t, int64(5), a.Balance)
	})

	t.Run("command without events does not write", func(t *testing.T) {
		stream := newTestStream()
		p := NewProcessor(stream)
		a := newTestAccount("acc-1")

		err := p.Process(ctx, a, func(Aggregate) error { return nil })

		require.NoError(t, err)
		assert.Equal(t, 0, stream.appendCount())
	})

	t.Run("appends only events from the command", func(t *testing.T) {
		stream := newTestStream()
		stream.seed("acc-1", testAccountCredited{Amount: 50})
		p := NewProcessor(stream)
		a := newTestAccount("acc-1")

		err := p.Process(ctx, a, CommandFor(func(a *testAccount) error {
			if err := a.Debit(20); err != nil {
				return err
			}
			return a.Credit(5)
		}))

		require.NoError(t, err)
		require.Len(t, stream.appends, 1)
		assert.Equal(t, []Event{
			testAccountDebited{Amount: 20},
			testAccountCredited{Amount: 5},
		}, stream.appends[0].Events)
		assert.Equal(t, ConcurrencyToken(int64(1)), stream.appends[0].Token)
		assert.Equal(t, int64(35), a.Balance)
	})

	t.Run("command error aborts", func(t *testing.T) {
		stream := newTestStream()
		p := NewProcessor(stream)
		a := newTestAccount("acc-1")

		err := p.Process(ctx, a, CommandFor(func(a *testAccount) error {
			return a.Debit(10)
		}))

		assert.ErrorIs(t, err, errInsufficientFunds)
		assert.Equal(t, 0, stream.appendCount())
	})

	t.Run("concurrency conflict keeps uncommitted events", func(t *testing.T) {
		stream := newTestStream()
		logger := newTestLogger()
		p := NewProcessor(stream, WithLogger(logger))
		a := newTestAccount("acc-1")
		stream.beforeWrite = func() {
			stream.seed("acc-1", testAccountCredited{Amount: 1})
		}

		err := p.Process(ctx, a, credit(100))

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConcurrencyConflict)
		assert.False(t, errors.Is(err, ErrStore))
		var conflict *ConcurrencyError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, int64(0), conflict.ExpectedVersion)
		assert.Equal(t, int64(1), conflict.ActualVersion)
		assert.Equal(t, []Event{testAccountCredited{Amount: 100}}, a.UncommittedEvents())
		assert.Equal(t, ConcurrencyToken(int64(0)), a.ConcurrencyToken())
		assert.Contains(t, logger.warnLogs, "concurrency conflict")
	})

	t.Run("read failure becomes store error", func(t *testing.T) {
		cause := errors.New("connection refused")
		stream := newTestStream()
		stream.readErr = cause
		p := NewProcessor(stream)

		err := p.Process(ctx, newTestAccount("acc-1"), credit(1))

		assert.ErrorIs(t, err, ErrStore)
		assert.ErrorIs(t, err, cause)
		var storeErr *StoreError
		require.True(t, errors.As(err, &storeErr))
		assert.Equal(t, "read", storeErr.Op)
		assert.Equal(t, "acc-1", storeErr.StreamID)
		assert.Equal(t, 0, stream.appendCount())
	})

	t.Run("append failure becomes store error", func(t *testing.T) {
		cause := errors.New("disk full")
		stream := newTestStream()
		stream.appendErr = cause
		logger := newTestLogger()
		p := NewProcessor(stream, WithLogger(logger))
		a := newTestAccount("acc-1")

		err := p.Process(ctx, a, credit(1))

		assert.ErrorIs(t, err, ErrStore)
		assert.ErrorIs(t, err, cause)
		assert.True(t, a.HasUncommittedEvents())
		assert.Contains(t, logger.errorLogs, "append failed")
	})

	t.Run("cancellation during append is outcome unknown", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		stream := newTestStream()
		stream.beforeWrite = cancel
		stream.appendErr = context.Canceled
		p := NewProcessor(stream)
		a := newTestAccount("acc-1")

		err := p.Process(cctx, a, credit(1))

		assert.ErrorIs(t, err, ErrWriteOutcomeUnknown)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, ErrStore))
		var unknown *WriteOutcomeUnknownError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, 1, unknown.Events)
		assert.True(t, a.HasUncommittedEvents())
	})

	t.Run("cancelled before read", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		stream := newTestStream()
		p := NewProcessor(stream)

		err := p.Process(cctx, newTestAccount("acc-1"), credit(1))

		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, ErrWriteOutcomeUnknown))
		assert.Empty(t, stream.reads)
	})

	t.Run("blank identity", func(t *testing.T) {
		stream := newTestStream()
		p := NewProcessor(stream)

		for _, id := range []string{"", "   "} {
			err := p.Process(ctx, newTestAccount(id), credit(1))
			assert.ErrorIs(t, err, ErrInvalidIdentity)
		}
		assert.Empty(t, stream.reads)
	})

	t.Run("nil aggregate", func(t *testing.T) {
		p := NewProcessor(newTestStream())

		assert.ErrorIs(t, p.Process(ctx, nil, nil), ErrNilAggregate)
	})

	t.Run("strict aggregate rejects unregistered history", func(t *testing.T) {
		stream := newTestStream()
		stream.seed("acc-1", testAccountFrozen{})
		p := NewProcessor(stream)

		err := p.Process(ctx, newTestAccount("acc-1", WithStrictEventRegistration()), credit(1))

		assert.ErrorIs(t, err, ErrUnregisteredEvent)
		assert.Equal(t, 0, stream.appendCount())
	})

	t.Run("passes through opaque tokens", func(t *testing.T) {
		stream := &tokenStream{readToken: "etag-1", appendToken: "etag-2"}
		p := NewProcessor(stream)
		a := newTestAccount("acc-1")

		require.NoError(t, p.Process(ctx, a, credit(1)))

		assert.Equal(t, ConcurrencyToken("etag-1"), stream.gotToken)
		assert.Equal(t, ConcurrencyToken("etag-2"), a.ConcurrencyToken())
	})
}

func TestCommandFor(t *testing.T) {
	t.Run("nil function", func(t *testing.T) {
		assert.Nil(t, CommandFor[*testAccount](nil))
	})

	t.Run("type mismatch", func(t *testing.T) {
		cmd := CommandFor(func(a *testAccount) error { return nil })
		base := NewAggregateBase("x", "Other")

		err := cmd(&base)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "*stoat.testAccount")
	})
}

// tokenStream hands out string tokens to show they are never interpreted.
type tokenStream struct {
	readToken   ConcurrencyToken
	appendToken ConcurrencyToken
	gotToken    ConcurrencyToken
}

func (s *tokenStream) Read(ctx context.Context, streamID string) (StreamContext, error) {
	return StreamContext{Token: s.readToken}, nil
}

func (s *tokenStream) Append(ctx context.Context, streamID string, events []Event, token ConcurrencyToken) (ConcurrencyToken, error) {
	s.gotToken = token
	return s.appendToken, nil
}
