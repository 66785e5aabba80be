package stoat

import (
	"fmt"
	"sort"
)

// Event is an immutable fact produced by an aggregate.
// EventType returns the discriminator used to pick the handler for the event,
// so it must return the same value for every instance of a concrete type.
// Events are expected to be value types.
type Event interface {
	EventType() string
}

// Aggregate defines the interface for event-sourced aggregates.
// An aggregate is a domain object whose state is derived from a sequence of events.
type Aggregate interface {
	// AggregateID returns the unique identifier for this aggregate instance.
	AggregateID() string

	// AggregateType returns the type/category of this aggregate (e.g., "BankAccount").
	AggregateType() string

	// Apply records a new event as uncommitted and mutates state through its handler.
	Apply(event Event) error

	// Rehydrate replays persisted events without recording them as uncommitted.
	Rehydrate(events []Event) error

	// UncommittedEvents returns events that have been applied but not yet persisted.
	UncommittedEvents() []Event

	// CommittedEvents returns the persisted events the aggregate's state was built from.
	CommittedEvents() []Event

	// HasUncommittedEvents returns true if there are events waiting to be persisted.
	HasUncommittedEvents() bool

	// ClearUncommittedEvents removes all uncommitted events without recording them.
	ClearUncommittedEvents()

	// MarkCommitted moves the uncommitted events into the committed history
	// after they have been persisted.
	MarkCommitted()

	// ConcurrencyToken returns the stream position the aggregate was read at.
	ConcurrencyToken() ConcurrencyToken

	// SetConcurrencyToken records the stream position the aggregate was read at.
	SetConcurrencyToken(token ConcurrencyToken)
}

// EventHandler mutates aggregate state for a single event.
type EventHandler func(event Event) error

// AggregateBase provides the event bookkeeping and dispatch of the Aggregate interface.
// Embed this struct in your aggregate types and register one handler per event
// type with Handle.
type AggregateBase struct {
	id                string
	aggregateType     string
	strict            bool
	handlers          map[string]EventHandler
	uncommittedEvents []Event
	committedEvents   []Event
	token             ConcurrencyToken
}

// AggregateOption configures an AggregateBase.
type AggregateOption func(*AggregateBase)

// WithStrictEventRegistration makes applying an event without a registered
// handler fail with ErrUnregisteredEvent instead of being skipped.
func WithStrictEventRegistration() AggregateOption {
	return func(a *AggregateBase) {
		a.strict = true
	}
}

// NewAggregateBase creates a new AggregateBase with the given ID and type.
// The ID may be empty when a creation event assigns it later.
func NewAggregateBase(id, aggregateType string, opts ...AggregateOption) AggregateBase {
	a := AggregateBase{
		id:            id,
		aggregateType: aggregateType,
		handlers:      make(map[string]EventHandler),
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// Handle registers fn as the handler for events of type E on the aggregate.
// At most one handler may exist per event type; a second registration returns
// ErrDuplicateHandler. Both E and *E values are dispatched to fn.
func Handle[E Event](a *AggregateBase, fn func(E) error) error {
	var zero E
	eventType := zero.EventType()

	if a.handlers == nil {
		a.handlers = make(map[string]EventHandler)
	}
	if _, exists := a.handlers[eventType]; exists {
		return fmt.Errorf("%w: %q already handled by %q", ErrDuplicateHandler, eventType, a.aggregateType)
	}

	a.handlers[eventType] = func(event Event) error {
		if p, ok := any(event).(*E); ok {
			if p == nil {
				return ErrNilEvent
			}
			return fn(*p)
		}
		switch e := event.(type) {
		case E:
			return fn(e)
		default:
			return fmt.Errorf("stoat: event %T reports type %q but is not a %T", event, eventType, zero)
		}
	}
	return nil
}

// MustHandle is like Handle but panics on duplicate registration.
// It is intended for aggregate constructors.
func MustHandle[E Event](a *AggregateBase, fn func(E) error) {
	if err := Handle(a, fn); err != nil {
		panic(err)
	}
}

// AggregateID returns the aggregate's unique identifier.
func (a *AggregateBase) AggregateID() string {
	return a.id
}

// SetID assigns the aggregate's ID.
// Once assigned, the ID can only be set again to the same value.
func (a *AggregateBase) SetID(id string) error {
	if a.id != "" && a.id != id {
		return fmt.Errorf("%w: %q to %q", ErrIdentityChanged, a.id, id)
	}
	a.id = id
	return nil
}

// AggregateType returns the aggregate type.
func (a *AggregateBase) AggregateType() string {
	return a.aggregateType
}

// StrictEventRegistration reports whether unregistered events are rejected.
func (a *AggregateBase) StrictEventRegistration() bool {
	return a.strict
}

// SetStrictEventRegistration toggles strict event registration.
func (a *AggregateBase) SetStrictEventRegistration(strict bool) {
	a.strict = strict
}

// Handles reports whether a handler is registered for the event type.
func (a *AggregateBase) Handles(eventType string) bool {
	_, ok := a.handlers[eventType]
	return ok
}

// HandledEventTypes returns the registered event types in sorted order.
func (a *AggregateBase) HandledEventTypes() []string {
	types := make([]string, 0, len(a.handlers))
	for t := range a.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Apply records event as uncommitted and dispatches it to its handler.
//
// A nil event fails with ErrNilEvent. On a strict aggregate an event without a
// handler fails with an UnregisteredEventError. Both checks run before the
// event is recorded. If the handler returns an error the event is removed from
// the uncommitted buffer again.
func (a *AggregateBase) Apply(event Event) error {
	handler, err := a.resolve(event)
	if err != nil {
		return err
	}

	a.uncommittedEvents = append(a.uncommittedEvents, event)
	if handler == nil {
		return nil
	}

	if err := handler(event); err != nil {
		a.uncommittedEvents = a.uncommittedEvents[:len(a.uncommittedEvents)-1]
		return err
	}
	return nil
}

// Rehydrate replays persisted events through the same handlers as Apply
// without recording them as uncommitted. The given events become the
// aggregate's committed events.
//
// An empty sequence is a no-op. Rehydrating an aggregate that already holds
// committed or uncommitted events fails with ErrAlreadyHydrated. If an event
// fails, the aggregate is left partially rehydrated and should be discarded.
func (a *AggregateBase) Rehydrate(events []Event) error {
	if len(events) == 0 {
		return nil
	}
	if len(a.committedEvents) > 0 || len(a.uncommittedEvents) > 0 {
		return ErrAlreadyHydrated
	}

	for i, event := range events {
		handler, err := a.resolve(event)
		if err != nil {
			return fmt.Errorf("stoat: failed to rehydrate event %d: %w", i, err)
		}
		if handler == nil {
			continue
		}
		if err := handler(event); err != nil {
			return fmt.Errorf("stoat: failed to rehydrate event %d: %w", i, err)
		}
	}

	a.committedEvents = append([]Event(nil), events...)
	return nil
}

// resolve returns the handler for event, or nil when the event is unhandled
// and the aggregate is lenient.
func (a *AggregateBase) resolve(event Event) (EventHandler, error) {
	if IsNilEvent(event) {
		return nil, ErrNilEvent
	}

	eventType := event.EventType()
	handler, ok := a.handlers[eventType]
	if !ok && a.strict {
		return nil, NewUnregisteredEventError(eventType, a.aggregateType)
	}
	return handler, nil
}

// UncommittedEvents returns a copy of the events that haven't been persisted yet.
func (a *AggregateBase) UncommittedEvents() []Event {
	return append([]Event(nil), a.uncommittedEvents...)
}

// CommittedEvents returns a copy of the persisted events the aggregate's state
// was built from: the rehydrated history followed by every event committed
// through MarkCommitted.
func (a *AggregateBase) CommittedEvents() []Event {
	return append([]Event(nil), a.committedEvents...)
}

// HasUncommittedEvents returns true if there are events waiting to be persisted.
func (a *AggregateBase) HasUncommittedEvents() bool {
	return len(a.uncommittedEvents) > 0
}

// ClearUncommittedEvents removes all uncommitted events.
func (a *AggregateBase) ClearUncommittedEvents() {
	a.uncommittedEvents = nil
}

// MarkCommitted appends the uncommitted events to the committed history and
// empties the uncommitted buffer.
func (a *AggregateBase) MarkCommitted() {
	a.committedEvents = append(a.committedEvents, a.uncommittedEvents...)
	a.uncommittedEvents = nil
}

// IsNilEvent reports whether event is absent, including a typed nil pointer
// stored in the interface.
func IsNilEvent(event Event) bool {
	return isNil(event)
}

// ConcurrencyToken returns the token captured when the aggregate was read.
func (a *AggregateBase) ConcurrencyToken() ConcurrencyToken {
	return a.token
}

// SetConcurrencyToken records the token to present on the next append.
func (a *AggregateBase) SetConcurrencyToken(token ConcurrencyToken) {
	a.token = token
}

// AggregateFactory creates new aggregate instances for an identity.
type AggregateFactory[T Aggregate] func(id string) T
