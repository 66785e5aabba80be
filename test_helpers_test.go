package stoat

// test_helpers_test.go contains shared test doubles for stoat package tests.

import (
	"context"
	"errors"
	"sync"
)

// =============================================================================
// Test Domain
// =============================================================================

type testAccountOpened struct {
	AccountID string
}

func (testAccountOpened) EventType() string { return "AccountOpened" }

type testAccountCredited struct {
	Amount int64
}

func (testAccountCredited) EventType() string { return "AccountCredited" }

type testAccountDebited struct {
	Amount int64
}

func (testAccountDebited) EventType() string { return "AccountDebited" }

// testAccountFrozen has no handler on testAccount.
type testAccountFrozen struct{}

func (testAccountFrozen) EventType() string { return "AccountFrozen" }

// impostorCredited reuses the AccountCredited discriminator with another type.
type impostorCredited struct{}

func (impostorCredited) EventType() string { return "AccountCredited" }

var errInsufficientFunds = errors.New("insufficient funds")

type testAccount struct {
	AggregateBase
	Balance int64
	Opened  bool
}

func newTestAccount(id string, opts ...AggregateOption) *testAccount {
	a := &testAccount{AggregateBase: NewAggregateBase(id, "BankAccount", opts...)}
	MustHandle(&a.AggregateBase, a.onOpened)
	MustHandle(&a.AggregateBase, a.onCredited)
	MustHandle(&a.AggregateBase, a.onDebited)
	return a
}

func (a *testAccount) Open() error {
	return a.Apply(testAccountOpened{AccountID: a.AggregateID()})
}

func (a *testAccount) Credit(amount int64) error {
	return a.Apply(testAccountCredited{Amount: amount})
}

func (a *testAccount) Debit(amount int64) error {
	return a.Apply(testAccountDebited{Amount: amount})
}

func (a *testAccount) onOpened(e testAccountOpened) error {
	if err := a.SetID(e.AccountID); err != nil {
		return err
	}
	a.Opened = true
	return nil
}

func (a *testAccount) onCredited(e testAccountCredited) error {
	a.Balance += e.Amount
	return nil
}

func (a *testAccount) onDebited(e testAccountDebited) error {
	if e.Amount > a.Balance {
		return errInsufficientFunds
	}
	a.Balance -= e.Amount
	return nil
}

// =============================================================================
// Shared Test Logger
// =============================================================================

type testLogger struct {
	mu        sync.Mutex
	debugLogs []string
	infoLogs  []string
	warnLogs  []string
	errorLogs []string
}

func newTestLogger() *testLogger {
	return &testLogger{}
}

func (l *testLogger) Debug(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugLogs = append(l.debugLogs, msg)
}

func (l *testLogger) Info(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLogs = append(l.infoLogs, msg)
}

func (l *testLogger) Warn(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnLogs = append(l.warnLogs, msg)
}

func (l *testLogger) Error(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLogs = append(l.errorLogs, msg)
}

// =============================================================================
// Shared Test EventStream
// =============================================================================

type appendCall struct {
	StreamID string
	Events   []Event
	Token    ConcurrencyToken
}

// testStream is an in-memory EventStream that records every call.
// The token is the number of events in the stream.
type testStream struct {
	mu          sync.Mutex
	streams     map[string][]Event
	reads       []string
	appends     []appendCall
	readErr     error
	appendErr   error
	beforeWrite func()
}

func newTestStream() *testStream {
	return &testStream{streams: make(map[string][]Event)}
}

func (s *testStream) seed(streamID string, events ...Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[streamID] = append(s.streams[streamID], events...)
}

func (s *testStream) Read(ctx context.Context, streamID string) (StreamContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads = append(s.reads, streamID)
	if s.readErr != nil {
		return StreamContext{}, s.readErr
	}

	events := s.streams[streamID]
	if len(events) == 0 {
		return StreamContext{Token: int64(0)}, nil
	}
	return StreamContext{
		Events: append([]Event(nil), events...),
		Token:  int64(len(events)),
	}, nil
}

func (s *testStream) Append(ctx context.Context, streamID string, events []Event, token ConcurrencyToken) (ConcurrencyToken, error) {
	if s.beforeWrite != nil {
		s.beforeWrite()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.appends = append(s.appends, appendCall{
		StreamID: streamID,
		Events:   append([]Event(nil), events...),
		Token:    token,
	})
	if s.appendErr != nil {
		return nil, s.appendErr
	}

	current := int64(len(s.streams[streamID]))
	expected, _ := token.(int64)
	if expected != current {
		return nil, NewConcurrencyError(streamID, expected, current)
	}

	s.streams[streamID] = append(s.streams[streamID], events...)
	return int64(len(s.streams[streamID])), nil
}

func (s *testStream) appendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appends)
}
