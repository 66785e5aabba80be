// Package tracing provides OpenTelemetry integration for stoat.
//
// This package traces the reads and appends an event stream performs on
// behalf of processors and repositories.
//
// Basic usage:
//
//	tp := sdktrace.NewTracerProvider(...)
//	otel.SetTracerProvider(tp)
//
//	tracer := tracing.NewTracer(tracing.WithServiceName("accounts"))
//	stream := tracing.WrapEventStream(memory.NewStream(), tracer)
//	repo := stoat.NewAggregateRepository(stream, bankaccount.New)
//
// The spans capture:
//   - Stream ID and the number of events read or appended
//   - Event types on append
//   - Error details when an operation fails
package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AshkanYarmoradi/go-stoat"
)

const (
	// TracerName is the name of the stoat tracer.
	TracerName = "github.com/AshkanYarmoradi/go-stoat"

	// DefaultServiceName is the default service name for spans.
	DefaultServiceName = "stoat"
)

// Span attribute keys.
const (
	AttrService    = attribute.Key("stoat.service")
	AttrStreamID   = attribute.Key("stoat.stream_id")
	AttrEventCount = attribute.Key("stoat.event_count")
	AttrEventTypes = attribute.Key("stoat.event_types")
	AttrConflict   = attribute.Key("stoat.concurrency_conflict")
)

// Tracer wraps OpenTelemetry tracer for stoat operations.
type Tracer struct {
	tracer      trace.Tracer
	serviceName string
}

// TracerOption configures a Tracer.
type TracerOption func(*Tracer)

// WithTracerProvider sets a custom TracerProvider.
func WithTracerProvider(tp trace.TracerProvider) TracerOption {
	return func(t *Tracer) {
		t.tracer = tp.Tracer(TracerName)
	}
}

// WithServiceName sets the service name for spans.
func WithServiceName(name string) TracerOption {
	return func(t *Tracer) {
		t.serviceName = name
	}
}

// NewTracer creates a new Tracer with the global TracerProvider.
func NewTracer(opts ...TracerOption) *Tracer {
	t := &Tracer{
		tracer:      otel.Tracer(TracerName),
		serviceName: DefaultServiceName,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// ServiceName returns the configured service name.
func (t *Tracer) ServiceName() string {
	return t.serviceName
}

// =============================================================================
// Event Stream Middleware
// =============================================================================

// EventStreamMiddleware wraps a stoat.EventStream with tracing.
type EventStreamMiddleware struct {
	stream stoat.EventStream
	tracer *Tracer
}

var _ stoat.EventStream = (*EventStreamMiddleware)(nil)

// WrapEventStream wraps a stream with tracing.
func WrapEventStream(stream stoat.EventStream, tracer *Tracer) *EventStreamMiddleware {
	if tracer == nil {
		tracer = NewTracer()
	}
	return &EventStreamMiddleware{
		stream: stream,
		tracer: tracer,
	}
}

// Unwrap returns the wrapped stream.
func (m *EventStreamMiddleware) Unwrap() stoat.EventStream {
	return m.stream
}

// Read loads a stream with tracing.
func (m *EventStreamMiddleware) Read(ctx context.Context, streamID string) (stoat.StreamContext, error) {
	ctx, span := m.tracer.StartSpan(ctx, "eventstream.read",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(
		AttrService.String(m.tracer.serviceName),
		AttrStreamID.String(streamID),
	)

	sc, err := m.stream.Read(ctx, streamID)

	if err != nil {
		recordError(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(AttrEventCount.Int(len(sc.Events)))
	}

	return sc, err
}

// Append stores events with tracing.
func (m *EventStreamMiddleware) Append(ctx context.Context, streamID string, events []stoat.Event, token stoat.ConcurrencyToken) (stoat.ConcurrencyToken, error) {
	ctx, span := m.tracer.StartSpan(ctx, "eventstream.append",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(
		AttrService.String(m.tracer.serviceName),
		AttrStreamID.String(streamID),
		AttrEventCount.Int(len(events)),
	)

	if len(events) > 0 {
		eventTypes := make([]string, 0, len(events))
		for _, e := range events {
			if !stoat.IsNilEvent(e) {
				eventTypes = append(eventTypes, e.EventType())
			}
		}
		span.SetAttributes(AttrEventTypes.StringSlice(eventTypes))
	}

	next, err := m.stream.Append(ctx, streamID, events, token)

	if err != nil {
		recordError(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return next, err
}

func recordError(span trace.Span, err error) {
	if errors.Is(err, stoat.ErrConcurrencyConflict) {
		span.SetAttributes(AttrConflict.Bool(true))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// =============================================================================
// Span Helpers
// =============================================================================

// SpanFromContext returns the current span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, opts ...trace.EventOption) {
	trace.SpanFromContext(ctx).AddEvent(name, opts...)
}

// SetError sets an error on the current span.
func SetError(ctx context.Context, err error) {
	recordError(trace.SpanFromContext(ctx), err)
}
