package stoat

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Option configures a Processor or an AggregateRepository.
type Option func(*options)

type options struct {
	logger Logger
}

// WithLogger sets a custom logger.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{logger: &noopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Command mutates a hydrated aggregate by applying events to it.
// A nil Command is a legal no-op.
type Command func(agg Aggregate) error

// CommandFor adapts a command written against a concrete aggregate type.
func CommandFor[T Aggregate](fn func(T) error) Command {
	if fn == nil {
		return nil
	}
	return func(agg Aggregate) error {
		typed, ok := agg.(T)
		if !ok {
			var want T
			return fmt.Errorf("stoat: command expects aggregate %T, got %T", want, agg)
		}
		return fn(typed)
	}
}

// Processor runs commands against aggregate instances owned by the caller.
// For each call it reads the aggregate's stream, rehydrates it, runs the
// command and appends whatever the command produced.
//
// A Processor holds no per-aggregate state and is safe for concurrent use.
// Concurrent writers to the same stream are detected by the stream, not here.
type Processor struct {
	stream EventStream
	logger Logger
}

// NewProcessor creates a Processor on top of stream.
func NewProcessor(stream EventStream, opts ...Option) *Processor {
	o := newOptions(opts)
	return &Processor{
		stream: stream,
		logger: o.logger,
	}
}

// Process loads agg from its stream, runs cmd and appends the new events.
//
// No append is issued when cmd produced no events. A stale concurrency token
// surfaces as an error matching ErrConcurrencyConflict; the aggregate keeps
// its uncommitted events in that case. Process never retries.
func (p *Processor) Process(ctx context.Context, agg Aggregate, cmd Command) error {
	if isNil(agg) {
		return ErrNilAggregate
	}

	streamID := agg.AggregateID()
	if !validIdentity(streamID) {
		return ErrInvalidIdentity
	}

	if err := loadAggregate(ctx, p.stream, p.logger, streamID, agg); err != nil {
		return err
	}

	if cmd != nil {
		if err := cmd(agg); err != nil {
			return err
		}
	}

	return saveAggregate(ctx, p.stream, p.logger, streamID, agg)
}

// isNil also catches typed nil pointers wrapped in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func validIdentity(id string) bool {
	return strings.TrimSpace(id) != ""
}

// loadAggregate reads streamID and rehydrates agg from it. The read token is
// recorded on the aggregate even when the stream has no history.
func loadAggregate(ctx context.Context, stream EventStream, logger Logger, streamID string, agg Aggregate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sc, err := stream.Read(ctx, streamID)
	if err != nil {
		logger.Error("read failed", "stream_id", streamID, "error", err)
		return NewStoreError("read", streamID, err)
	}

	if !sc.IsEmpty() {
		if err := agg.Rehydrate(sc.Events); err != nil {
			return err
		}
	}
	agg.SetConcurrencyToken(sc.Token)

	logger.Debug("aggregate loaded",
		"stream_id", streamID,
		"aggregate_type", agg.AggregateType(),
		"events", len(sc.Events))
	return nil
}

// saveAggregate appends the uncommitted events of agg to streamID using the
// token captured at read time. On success the appended events become part of
// the committed history and the stream's new token is recorded.
func saveAggregate(ctx context.Context, stream EventStream, logger Logger, streamID string, agg Aggregate) error {
	if !agg.HasUncommittedEvents() {
		logger.Debug("nothing to append", "stream_id", streamID)
		return nil
	}

	// Nothing has been sent yet, so a cancellation here is a plain failure.
	if err := ctx.Err(); err != nil {
		return err
	}

	events := agg.UncommittedEvents()
	token, err := stream.Append(ctx, streamID, events, agg.ConcurrencyToken())
	if err != nil {
		switch {
		case errors.Is(err, ErrConcurrencyConflict):
			logger.Warn("concurrency conflict", "stream_id", streamID, "events", len(events))
			return err
		case isContextError(err) || ctx.Err() != nil:
			logger.Warn("append outcome unknown", "stream_id", streamID, "events", len(events), "error", err)
			return NewWriteOutcomeUnknownError(streamID, len(events), err)
		default:
			logger.Error("append failed", "stream_id", streamID, "error", err)
			return NewStoreError("append", streamID, err)
		}
	}

	agg.MarkCommitted()
	agg.SetConcurrencyToken(token)

	logger.Debug("events appended", "stream_id", streamID, "events", len(events))
	return nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
