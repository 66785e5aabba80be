// Package redis provides a Redis implementation of stoat.EventStream.
//
// Each stream is a Redis list of encoded event envelopes. The concurrency
// token is the list length. Appends are guarded with WATCH and applied in a
// MULTI/EXEC transaction, so a writer that changes the list between the
// length check and the push aborts the transaction.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/adapters"
	"github.com/AshkanYarmoradi/go-stoat/serializer"
)

// DefaultKeyPrefix namespaces the keys written by the stream.
const DefaultKeyPrefix = "stoat"

// Sentinel errors for the redis stream.
// These are aliases to the adapters package errors for compatibility with errors.Is().
var (
	ErrAdapterClosed       = adapters.ErrAdapterClosed
	ErrEmptyStreamID       = adapters.ErrEmptyStreamID
	ErrNoEvents            = adapters.ErrNoEvents
	ErrConcurrencyConflict = adapters.ErrConcurrencyConflict
	ErrInvalidToken        = adapters.ErrInvalidToken
)

// Ensure RedisStream implements required interfaces.
var (
	_ stoat.EventStream      = (*RedisStream)(nil)
	_ adapters.HealthChecker = (*RedisStream)(nil)
)

// RedisStream is a Redis implementation of stoat.EventStream.
type RedisStream struct {
	client     goredis.UniversalClient
	prefix     string
	serializer serializer.Serializer
	now        func() time.Time
	closed     atomic.Bool
}

// Option configures a RedisStream.
type Option func(*RedisStream)

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(s *RedisStream) {
		s.prefix = prefix
	}
}

// WithSerializer sets the serializer used for event payloads.
func WithSerializer(ser serializer.Serializer) Option {
	return func(s *RedisStream) {
		if ser != nil {
			s.serializer = ser
		}
	}
}

// NewStream creates a stream on an existing client.
func NewStream(client goredis.UniversalClient, opts ...Option) *RedisStream {
	s := &RedisStream{
		client:     client,
		prefix:     DefaultKeyPrefix,
		serializer: serializer.NewJSON(nil),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewStreamWithAddr connects to a single Redis node.
func NewStreamWithAddr(addr, password string, db int, opts ...Option) *RedisStream {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewStream(client, opts...)
}

// envelope is the stored form of one event.
type envelope struct {
	ID        string    `msgpack:"id"`
	Type      string    `msgpack:"type"`
	Data      []byte    `msgpack:"data"`
	Timestamp time.Time `msgpack:"ts"`
}

func (s *RedisStream) key(streamID string) string {
	return fmt.Sprintf("%s:stream:%s", s.prefix, streamID)
}

// Read returns all events of a stream in append order.
func (s *RedisStream) Read(ctx context.Context, streamID string) (stoat.StreamContext, error) {
	if s.closed.Load() {
		return stoat.StreamContext{}, ErrAdapterClosed
	}

	if streamID == "" {
		return stoat.StreamContext{}, ErrEmptyStreamID
	}

	values, err := s.client.LRange(ctx, s.key(streamID), 0, -1).Result()
	if err != nil {
		return stoat.StreamContext{}, fmt.Errorf("stoat/redis: failed to load events: %w", err)
	}

	if len(values) == 0 {
		return stoat.StreamContext{Token: adapters.NoHistory}, nil
	}

	events := make([]stoat.Event, len(values))
	for i, value := range values {
		event, err := s.decode([]byte(value))
		if err != nil {
			return stoat.StreamContext{}, fmt.Errorf("stoat/redis: event %d of stream %q: %w", i+1, streamID, err)
		}
		events[i] = event
	}

	return stoat.StreamContext{
		Events: events,
		Token:  int64(len(values)),
	}, nil
}

// Append pushes events if the list length still equals the token.
func (s *RedisStream) Append(ctx context.Context, streamID string, events []stoat.Event, token stoat.ConcurrencyToken) (stoat.ConcurrencyToken, error) {
	if s.closed.Load() {
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

	values, err := s.encodeAll(events)
	if err != nil {
		return nil, err
	}

	key := s.key(streamID)
	var version int64
	err = s.client.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := tx.LLen(ctx, key).Result()
		if err != nil {
			return err
		}
		if err := adapters.CheckVersion(streamID, expected, current); err != nil {
			return err
		}

		var push *goredis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			push = pipe.RPush(ctx, key, values...)
			return nil
		})
		if err != nil {
			return err
		}
		version = push.Val()
		return nil
	}, key)

	switch {
	case err == nil:
		return version, nil
	case errors.Is(err, ErrConcurrencyConflict):
		return nil, err
	case errors.Is(err, goredis.TxFailedErr):
		// The list changed after WATCH; another writer appended at least one event.
		return nil, adapters.NewConcurrencyError(streamID, expected, expected+1)
	default:
		return nil, fmt.Errorf("stoat/redis: failed to append events: %w", err)
	}
}

func (s *RedisStream) encodeAll(events []stoat.Event) ([]interface{}, error) {
	now := s.now()
	values := make([]interface{}, len(events))
	for i, event := range events {
		data, err := s.serializer.Serialize(event)
		if err != nil {
			return nil, err
		}
		encoded, err := msgpack.Marshal(envelope{
			ID:        uuid.New().String(),
			Type:      event.EventType(),
			Data:      data,
			Timestamp: now,
		})
		if err != nil {
			return nil, fmt.Errorf("stoat/redis: failed to encode envelope: %w", err)
		}
		values[i] = encoded
	}
	return values, nil
}

func (s *RedisStream) decode(value []byte) (stoat.Event, error) {
	var env envelope
	if err := msgpack.Unmarshal(value, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return s.serializer.Deserialize(env.Data, env.Type)
}

// StreamVersion returns the number of events in a stream.
func (s *RedisStream) StreamVersion(ctx context.Context, streamID string) (int64, error) {
	if s.closed.Load() {
		return 0, ErrAdapterClosed
	}
	return s.client.LLen(ctx, s.key(streamID)).Result()
}

// Ping checks connectivity to Redis.
func (s *RedisStream) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrAdapterClosed
	}
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client. Calling it again is a no-op.
func (s *RedisStream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.client.Close()
}
