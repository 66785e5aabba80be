// Package stoat provides a small event-sourcing runtime for Go applications.
//
// Aggregates mutate their state only by applying events. A Processor or an
// AggregateRepository reads an aggregate's event history, rehydrates it, runs
// a command against it and appends the newly produced events under an
// optimistic concurrency guard.
//
// # Quick Start
//
// Create a repository on top of the in-memory stream for development:
//
//	import (
//	    "github.com/AshkanYarmoradi/go-stoat"
//	    "github.com/AshkanYarmoradi/go-stoat/adapters/memory"
//	)
//
//	repo := stoat.NewAggregateRepository(memory.NewStream(), NewBankAccount)
//
// # Defining Events
//
// Events are value types that report a stable discriminator:
//
//	type AccountCredited struct {
//	    Amount int64 `json:"amount"`
//	}
//
//	func (AccountCredited) EventType() string { return "AccountCredited" }
//
// # Defining Aggregates
//
// Aggregates embed AggregateBase and register one handler per event type:
//
//	type BankAccount struct {
//	    stoat.AggregateBase
//	    Balance int64
//	}
//
//	func NewBankAccount(id string) *BankAccount {
//	    a := &BankAccount{AggregateBase: stoat.NewAggregateBase(id, "BankAccount")}
//	    stoat.MustHandle(&a.AggregateBase, a.onCredited)
//	    return a
//	}
//
//	func (a *BankAccount) Credit(amount int64) error {
//	    return a.Apply(AccountCredited{Amount: amount})
//	}
//
//	func (a *BankAccount) onCredited(e AccountCredited) error {
//	    a.Balance += e.Amount
//	    return nil
//	}
//
// Events without a handler are skipped unless the aggregate was created with
// WithStrictEventRegistration, in which case Apply and Rehydrate fail with
// ErrUnregisteredEvent.
//
// # Processing Commands
//
// By identity, letting the repository construct the aggregate:
//
//	account, err := repo.Process(ctx, "acc-1", func(a *BankAccount) error {
//	    return a.Credit(100)
//	})
//
// Or on an instance the caller constructed:
//
//	p := stoat.NewProcessor(stream)
//	err := p.Process(ctx, account, stoat.CommandFor(func(a *BankAccount) error {
//	    return a.Debit(10)
//	}))
//
// # Optimistic Concurrency
//
// The stream hands out an opaque ConcurrencyToken on Read and checks it on
// Append. A stale token surfaces as ErrConcurrencyConflict. Nothing retries
// internally; re-run the command with a fresh read:
//
//	for {
//	    _, err := repo.Process(ctx, id, cmd)
//	    if !errors.Is(err, stoat.ErrConcurrencyConflict) {
//	        return err
//	    }
//	}
package stoat

// Version returns the library version string.
func Version() string {
	return "0.1.0"
}
