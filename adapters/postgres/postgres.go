// Package postgres provides a PostgreSQL implementation of stoat.EventStream.
//
// Events are stored one row per event with a UNIQUE(stream_id, version)
// constraint. The concurrency token is the stream version (an int64), which
// equals the number of events in the stream.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/adapters"
	"github.com/AshkanYarmoradi/go-stoat/serializer"
)

// DefaultSchema is the schema used when WithSchema is not given.
const DefaultSchema = "stoat"

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Ensure PostgresStream implements required interfaces.
var (
	_ stoat.EventStream      = (*PostgresStream)(nil)
	_ adapters.HealthChecker = (*PostgresStream)(nil)
	_ adapters.Migrator      = (*PostgresStream)(nil)
)

// PostgresStream is a PostgreSQL implementation of stoat.EventStream.
type PostgresStream struct {
	db         *sqlx.DB
	schema     string
	serializer serializer.Serializer
	q          queries
	closed     bool
}

// Option configures a PostgresStream.
type Option func(*PostgresStream)

// WithSchema sets the database schema name.
func WithSchema(schema string) Option {
	return func(s *PostgresStream) {
		s.schema = schema
	}
}

// WithSerializer sets the serializer used for event payloads.
// The default is a JSON serializer with an empty registry, which reads every
// event back as a serializer.RawEvent.
func WithSerializer(ser serializer.Serializer) Option {
	return func(s *PostgresStream) {
		if ser != nil {
			s.serializer = ser
		}
	}
}

// WithMaxConnections sets the maximum number of open connections.
func WithMaxConnections(n int) Option {
	return func(s *PostgresStream) {
		s.db.SetMaxOpenConns(n)
	}
}

// WithMaxIdleConnections sets the maximum number of idle connections.
func WithMaxIdleConnections(n int) Option {
	return func(s *PostgresStream) {
		s.db.SetMaxIdleConns(n)
	}
}

// WithConnectionMaxLifetime sets the maximum connection lifetime.
func WithConnectionMaxLifetime(d time.Duration) Option {
	return func(s *PostgresStream) {
		s.db.SetConnMaxLifetime(d)
	}
}

// NewStream opens a connection pool with the pgx driver.
func NewStream(connStr string, opts ...Option) (*PostgresStream, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("stoat/postgres: failed to open database: %w", err)
	}
	return NewStreamWithDB(db, opts...), nil
}

// NewStreamWithDB creates a stream on an existing database connection.
// Both the pgx stdlib driver and lib/pq are supported.
func NewStreamWithDB(db *sql.DB, opts ...Option) *PostgresStream {
	return NewStreamWithSQLX(sqlx.NewDb(db, "pgx"), opts...)
}

// NewStreamWithSQLX creates a stream on an existing sqlx connection.
func NewStreamWithSQLX(db *sqlx.DB, opts ...Option) *PostgresStream {
	s := &PostgresStream{
		db:         db,
		schema:     DefaultSchema,
		serializer: serializer.NewJSON(nil),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.q = newQueries(s.schema)
	return s
}

// Schema returns the schema the stream's tables live in.
func (s *PostgresStream) Schema() string {
	return s.schema
}

type eventRow struct {
	EventID   string    `db:"event_id"`
	Version   int64     `db:"version"`
	EventType string    `db:"event_type"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
}

// Read loads all events of a stream ordered by version.
func (s *PostgresStream) Read(ctx context.Context, streamID string) (stoat.StreamContext, error) {
	if s.closed {
		return stoat.StreamContext{}, ErrAdapterClosed
	}

	if streamID == "" {
		return stoat.StreamContext{}, ErrEmptyStreamID
	}

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, s.q.selectEvents, streamID); err != nil {
		return stoat.StreamContext{}, fmt.Errorf("stoat/postgres: failed to load events: %w", err)
	}

	if len(rows) == 0 {
		return stoat.StreamContext{Token: adapters.NoHistory}, nil
	}

	events := make([]stoat.Event, len(rows))
	for i, row := range rows {
		event, err := s.serializer.Deserialize(row.Data, row.EventType)
		if err != nil {
			return stoat.StreamContext{}, fmt.Errorf("stoat/postgres: event %d of stream %q: %w", row.Version, streamID, err)
		}
		events[i] = event
	}

	return stoat.StreamContext{
		Events: events,
		Token:  rows[len(rows)-1].Version,
	}, nil
}

// Append inserts events in a single transaction. The stream row is locked
// with SELECT ... FOR UPDATE while the token is checked; a concurrent writer
// that slips past the lock trips the unique constraint instead, and both
// paths surface as a concurrency conflict.
func (s *PostgresStream) Append(ctx context.Context, streamID string, events []stoat.Event, token stoat.ConcurrencyToken) (stoat.ConcurrencyToken, error) {
	if s.closed {
		return nil, ErrAdapterClosed
	}

	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	expected, err := adapters.VersionFromToken(token)
	if err != nil {
		return nil, err
	}

	payloads := make([][]byte, len(events))
	for i, event := range events {
		data, err := s.serializer.Serialize(event)
		if err != nil {
			return nil, err
		}
		payloads[i] = data
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("stoat/postgres: failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	exists := true
	err = tx.QueryRowContext(ctx, s.q.lockStream, streamID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
		current = adapters.NoHistory
	} else if err != nil {
		return nil, fmt.Errorf("stoat/postgres: failed to get stream version: %w", err)
	}

	if err := adapters.CheckVersion(streamID, expected, current); err != nil {
		return nil, err
	}

	if !exists {
		if _, err := tx.ExecContext(ctx, s.q.insertStream, streamID); err != nil {
			return nil, s.writeError(streamID, expected, "create stream", err)
		}
	}

	for i, event := range events {
		current++
		_, err := tx.ExecContext(ctx, s.q.insertEvent,
			uuid.New().String(), streamID, current, event.EventType(), payloads[i])
		if err != nil {
			return nil, s.writeError(streamID, expected, "insert event", err)
		}
	}

	if _, err := tx.ExecContext(ctx, s.q.updateStream, current, streamID); err != nil {
		return nil, fmt.Errorf("stoat/postgres: failed to update stream version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("stoat/postgres: failed to commit transaction: %w", err)
	}

	return current, nil
}

// writeError maps unique violations to a concurrency conflict.
func (s *PostgresStream) writeError(streamID string, expected int64, op string, err error) error {
	if isUniqueViolation(err) {
		// Another writer got there first; it advanced the stream by at least one.
		return adapters.NewConcurrencyError(streamID, expected, expected+1)
	}
	return fmt.Errorf("stoat/postgres: failed to %s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

// StreamVersion returns the current version of a stream, or NoHistory.
func (s *PostgresStream) StreamVersion(ctx context.Context, streamID string) (int64, error) {
	if s.closed {
		return 0, ErrAdapterClosed
	}

	var version int64
	err := s.db.GetContext(ctx, &version, s.q.selectVersion, streamID)
	if errors.Is(err, sql.ErrNoRows) {
		return adapters.NoHistory, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stoat/postgres: failed to get stream version: %w", err)
	}
	return version, nil
}

// Ping checks database connectivity.
func (s *PostgresStream) Ping(ctx context.Context) error {
	if s.closed {
		return ErrAdapterClosed
	}
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStream) Close() error {
	s.closed = true
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *PostgresStream) DB() *sql.DB {
	return s.db.DB
}
