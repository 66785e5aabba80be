package testutil

import (
	"fmt"
	"runtime"
	"testing"
)

// MockT is a testing.TB that records failures instead of failing the test.
// It lets fixture helpers such as the bdd package be tested for the failures
// they report.
type MockT struct {
	testing.TB // embed to satisfy unexported methods
	Failed_    bool
	Fatal_     bool
	Message    string
	Logs       []string
}

// NewMockT creates a new MockT instance.
func NewMockT() *MockT {
	return &MockT{Logs: make([]string, 0)}
}

// Helper implements testing.TB.
func (m *MockT) Helper() {}

// Log implements testing.TB.
func (m *MockT) Log(args ...any) {
	m.Logs = append(m.Logs, fmt.Sprint(args...))
}

// Logf implements testing.TB.
func (m *MockT) Logf(format string, args ...any) {
	m.Logs = append(m.Logs, fmt.Sprintf(format, args...))
}

// Error implements testing.TB.
func (m *MockT) Error(args ...any) {
	m.Failed_ = true
	m.Message = fmt.Sprint(args...)
}

// Errorf implements testing.TB.
func (m *MockT) Errorf(format string, args ...any) {
	m.Failed_ = true
	m.Message = fmt.Sprintf(format, args...)
}

// Fail implements testing.TB.
func (m *MockT) Fail() { m.Failed_ = true }

// FailNow implements testing.TB.
func (m *MockT) FailNow() {
	m.Failed_ = true
	runtime.Goexit()
}

// Failed implements testing.TB.
func (m *MockT) Failed() bool { return m.Failed_ }

// Fatal implements testing.TB.
func (m *MockT) Fatal(args ...any) {
	m.Fatal_ = true
	m.Error(args...)
	runtime.Goexit()
}

// Fatalf implements testing.TB.
func (m *MockT) Fatalf(format string, args ...any) {
	m.Fatal_ = true
	m.Errorf(format, args...)
	runtime.Goexit()
}

// RunWithMockT runs fn with a MockT on its own goroutine and waits for it.
// Fatal and FailNow end that goroutine through runtime.Goexit.
func RunWithMockT(fn func(m *MockT)) *MockT {
	mt := NewMockT()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(mt)
	}()
	<-done
	return mt
}
