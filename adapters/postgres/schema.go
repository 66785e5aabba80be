package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

type queries struct {
	selectEvents  string
	selectVersion string
	lockStream    string
	insertStream  string
	insertEvent   string
	updateStream  string
	migrations    []migration
}

type migration struct {
	name string
	sql  string
}

func newQueries(schema string) queries {
	s := pq.QuoteIdentifier(schema)
	return queries{
		selectEvents: fmt.Sprintf(
			`SELECT event_id, version, event_type, data, created_at FROM %s.events WHERE stream_id = $1 ORDER BY version`, s),
		selectVersion: fmt.Sprintf(
			`SELECT version FROM %s.streams WHERE stream_id = $1`, s),
		lockStream: fmt.Sprintf(
			`SELECT version FROM %s.streams WHERE stream_id = $1 FOR UPDATE`, s),
		insertStream: fmt.Sprintf(
			`INSERT INTO %s.streams (stream_id, version) VALUES ($1, 0)`, s),
		insertEvent: fmt.Sprintf(
			`INSERT INTO %s.events (event_id, stream_id, version, event_type, data) VALUES ($1, $2, $3, $4, $5)`, s),
		updateStream: fmt.Sprintf(
			`UPDATE %s.streams SET version = $1, updated_at = NOW() WHERE stream_id = $2`, s),
		migrations: []migration{
			{"schema", fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s)},
			{"streams table", fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.streams (
				stream_id  VARCHAR(500) PRIMARY KEY,
				version    BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, s)},
			{"events table", fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.events (
				global_position BIGSERIAL PRIMARY KEY,
				event_id        UUID NOT NULL,
				stream_id       VARCHAR(500) NOT NULL,
				version         BIGINT NOT NULL,
				event_type      VARCHAR(500) NOT NULL,
				data            BYTEA NOT NULL,
				created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE(stream_id, version)
			)`, s)},
			{"event type index", fmt.Sprintf(
				`CREATE INDEX IF NOT EXISTS idx_events_type ON %s.events(event_type)`, s)},
		},
	}
}

// Migrate creates the schema, tables and indexes. It is idempotent.
func (s *PostgresStream) Migrate(ctx context.Context) error {
	if s.closed {
		return ErrAdapterClosed
	}

	for _, m := range s.q.migrations {
		if _, err := s.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("stoat/postgres: failed to create %s: %w", m.name, err)
		}
	}
	return nil
}

// MigrationSQL returns the statements Migrate runs for schema as one script.
func MigrationSQL(schema string) string {
	var b strings.Builder
	for _, m := range newQueries(schema).migrations {
		fmt.Fprintf(&b, "-- %s\n%s;\n\n", m.name, m.sql)
	}
	return b.String()
}
