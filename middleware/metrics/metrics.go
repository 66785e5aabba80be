// Package metrics provides Prometheus metrics integration for stoat.
//
// Metrics wraps any stoat.EventStream and records the reads and appends
// issued by processors and repositories.
//
// Basic usage:
//
//	m := metrics.New(metrics.WithMetricsServiceName("accounts"))
//	prometheus.MustRegister(m.Collectors()...)
//
//	stream := m.WrapEventStream(memory.NewStream())
//	repo := stoat.NewAggregateRepository(stream, bankaccount.New)
//
// The metrics collected include:
//   - Stream operation counts by status and their durations
//   - Events read and appended, the latter by event type
//   - Concurrency conflicts
//   - Error counts by type
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

// Default metric labels.
const (
	LabelEventType = "event_type"
	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelErrorType = "error_type"
	LabelService   = "service"
)

// Status values.
const (
	StatusSuccess  = "success"
	StatusConflict = "conflict"
	StatusError    = "error"
)

// Operation values.
const (
	OperationRead   = "read"
	OperationAppend = "append"
)

// Metrics holds all Prometheus metrics for stoat.
type Metrics struct {
	namespace   string
	subsystem   string
	serviceName string

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	eventsAppended    *prometheus.CounterVec
	eventsRead        *prometheus.CounterVec
	conflictsTotal    *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
}

// MetricsOption configures Metrics.
type MetricsOption func(*Metrics)

// WithNamespace sets the Prometheus namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(m *Metrics) {
		m.namespace = namespace
	}
}

// WithSubsystem sets the Prometheus subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(m *Metrics) {
		m.subsystem = subsystem
	}
}

// WithMetricsServiceName sets the service name label.
func WithMetricsServiceName(name string) MetricsOption {
	return func(m *Metrics) {
		m.serviceName = name
	}
}

// New creates a new Metrics instance with default settings.
func New(opts ...MetricsOption) *Metrics {
	m := &Metrics{
		namespace:   "stoat",
		serviceName: "unknown",
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initMetrics()
	return m
}

func (m *Metrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "eventstream_operations_total",
			Help:      "Total number of event stream operations.",
		},
		[]string{LabelService, LabelOperation, LabelStatus},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "eventstream_operation_duration_seconds",
			Help:      "Duration of event stream operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelService, LabelOperation},
	)

	m.eventsAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_appended_total",
			Help:      "Total number of events appended to streams.",
		},
		[]string{LabelService, LabelEventType},
	)

	m.eventsRead = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_read_total",
			Help:      "Total number of events read from streams.",
		},
		[]string{LabelService},
	)

	m.conflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "concurrency_conflicts_total",
			Help:      "Total number of appends rejected because the stream moved on.",
		},
		[]string{LabelService},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors by type.",
		},
		[]string{LabelService, LabelErrorType},
	)
}

// Collectors returns all Prometheus collectors for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.eventsAppended,
		m.eventsRead,
		m.conflictsTotal,
		m.errorsTotal,
	}
}

// MustRegister registers all collectors with the default registry.
// Panics if registration fails.
func (m *Metrics) MustRegister() {
	prometheus.MustRegister(m.Collectors()...)
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(registry prometheus.Registerer) error {
	for _, collector := range m.Collectors() {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// errorTypeName maps an error to a low-cardinality label value.
func errorTypeName(err error) string {
	if err == nil {
		return "none"
	}

	switch {
	case errors.Is(err, stoat.ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	case errors.Is(err, stoat.ErrNilEvent):
		return "nil_event"
	case errors.Is(err, adapters.ErrEmptyStreamID):
		return "empty_stream_id"
	case errors.Is(err, adapters.ErrNoEvents):
		return "no_events"
	case errors.Is(err, adapters.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, adapters.ErrAdapterClosed):
		return "adapter_closed"
	default:
		return "unknown"
	}
}

// =============================================================================
// Event Stream Middleware
// =============================================================================

// EventStreamMiddleware wraps a stoat.EventStream with metrics.
type EventStreamMiddleware struct {
	stream  stoat.EventStream
	metrics *Metrics
}

var _ stoat.EventStream = (*EventStreamMiddleware)(nil)

// WrapEventStream wraps a stream with metrics collection.
func (m *Metrics) WrapEventStream(stream stoat.EventStream) *EventStreamMiddleware {
	return &EventStreamMiddleware{
		stream:  stream,
		metrics: m,
	}
}

// Unwrap returns the wrapped stream.
func (em *EventStreamMiddleware) Unwrap() stoat.EventStream {
	return em.stream
}

// Read loads a stream with metrics.
func (em *EventStreamMiddleware) Read(ctx context.Context, streamID string) (stoat.StreamContext, error) {
	start := time.Now()
	sc, err := em.stream.Read(ctx, streamID)
	em.observe(OperationRead, start, err)

	if err == nil {
		em.metrics.eventsRead.WithLabelValues(em.metrics.serviceName).Add(float64(len(sc.Events)))
	}
	return sc, err
}

// Append stores events with metrics.
func (em *EventStreamMiddleware) Append(ctx context.Context, streamID string, events []stoat.Event, token stoat.ConcurrencyToken) (stoat.ConcurrencyToken, error) {
	start := time.Now()
	next, err := em.stream.Append(ctx, streamID, events, token)
	em.observe(OperationAppend, start, err)

	if err == nil {
		for _, e := range events {
			em.metrics.eventsAppended.WithLabelValues(em.metrics.serviceName, e.EventType()).Inc()
		}
	}
	return next, err
}

func (em *EventStreamMiddleware) observe(operation string, start time.Time, err error) {
	m := em.metrics
	m.operationDuration.WithLabelValues(m.serviceName, operation).Observe(time.Since(start).Seconds())

	status := StatusSuccess
	switch {
	case err == nil:
	case errors.Is(err, stoat.ErrConcurrencyConflict):
		status = StatusConflict
		m.conflictsTotal.WithLabelValues(m.serviceName).Inc()
	default:
		status = StatusError
		m.errorsTotal.WithLabelValues(m.serviceName, errorTypeName(err)).Inc()
	}

	m.operationsTotal.WithLabelValues(m.serviceName, operation, status).Inc()
}
