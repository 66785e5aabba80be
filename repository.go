package stoat

import (
	"context"
	"fmt"
)

// AggregateRepository owns the full lifecycle of aggregates of type T: it
// constructs them from an identity, hydrates them from their stream and
// persists their new events. Callers only supply the identity and a command.
type AggregateRepository[T Aggregate] struct {
	stream  EventStream
	factory AggregateFactory[T]
	logger  Logger
}

// NewAggregateRepository creates a repository that builds fresh aggregates with factory.
func NewAggregateRepository[T Aggregate](stream EventStream, factory AggregateFactory[T], opts ...Option) *AggregateRepository[T] {
	o := newOptions(opts)
	return &AggregateRepository[T]{
		stream:  stream,
		factory: factory,
		logger:  o.logger,
	}
}

// Get constructs a new aggregate for id and rehydrates it from its stream.
// A stream without history yields the freshly constructed aggregate.
// The factory must return a non-nil aggregate carrying id.
func (r *AggregateRepository[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if !validIdentity(id) {
		return zero, ErrInvalidIdentity
	}

	agg := r.factory(id)
	if isNil(agg) {
		return zero, ErrNilAggregate
	}
	if got := agg.AggregateID(); got != id {
		return zero, fmt.Errorf("%w: factory built %q for %q", ErrIdentityChanged, got, id)
	}

	if err := loadAggregate(ctx, r.stream, r.logger, id, agg); err != nil {
		return zero, err
	}
	return agg, nil
}

// Save appends the aggregate's uncommitted events using the concurrency
// token it was read with. Nothing is written when there are no new events.
func (r *AggregateRepository[T]) Save(ctx context.Context, agg T) error {
	if isNil(agg) {
		return ErrNilAggregate
	}

	id := agg.AggregateID()
	if !validIdentity(id) {
		return ErrInvalidIdentity
	}
	return saveAggregate(ctx, r.stream, r.logger, id, agg)
}

// Process gets the aggregate for id, runs cmd against it and saves it.
// A nil cmd only loads the aggregate. The aggregate is returned alongside
// command and save errors so callers can inspect what was not persisted.
func (r *AggregateRepository[T]) Process(ctx context.Context, id string, cmd func(T) error) (T, error) {
	agg, err := r.Get(ctx, id)
	if err != nil {
		return agg, err
	}

	if cmd != nil {
		if err := cmd(agg); err != nil {
			return agg, err
		}
	}

	if err := r.Save(ctx, agg); err != nil {
		return agg, err
	}
	return agg, nil
}
