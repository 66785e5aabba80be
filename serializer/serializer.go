// Package serializer converts events to and from bytes for backends that
// persist payloads outside the process.
//
// Event types are made known to a Registry with the generic Register
// function. The discriminator is taken from the event's EventType method,
// so no reflection is involved in resolving types:
//
//	reg := serializer.NewRegistry()
//	serializer.MustRegister[AccountOpened](reg)
//	serializer.MustRegister[AccountCredited](reg)
//
//	s := serializer.NewJSON(reg)
//	data, err := s.Serialize(AccountCredited{Amount: 100})
//	event, err := s.Deserialize(data, "AccountCredited")
package serializer

import (
	"errors"
	"fmt"

	"github.com/AshkanYarmoradi/go-stoat"
)

// Serializer handles event payload serialization and deserialization.
type Serializer interface {
	// Name identifies the encoding, e.g. "json" or "msgpack".
	Name() string

	// Serialize converts an event to bytes.
	Serialize(event stoat.Event) ([]byte, error)

	// Deserialize converts bytes back to an event of the given type.
	// Types missing from the registry come back as RawEvent.
	Deserialize(data []byte, eventType string) (stoat.Event, error)
}

// MarshalFunc encodes a value.
type MarshalFunc func(v any) ([]byte, error)

// UnmarshalFunc decodes data into the value v points to.
type UnmarshalFunc func(data []byte, v any) error

// Codec is a Serializer built from a Registry and a pair of encoding functions.
type Codec struct {
	name      string
	registry  *Registry
	marshal   MarshalFunc
	unmarshal UnmarshalFunc
}

// New creates a Codec. A nil registry is replaced by an empty one.
func New(name string, registry *Registry, marshal MarshalFunc, unmarshal UnmarshalFunc) *Codec {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Codec{
		name:      name,
		registry:  registry,
		marshal:   marshal,
		unmarshal: unmarshal,
	}
}

// Name returns the encoding name.
func (c *Codec) Name() string {
	return c.name
}

// Registry returns the underlying Registry.
func (c *Codec) Registry() *Registry {
	return c.registry
}

// Serialize converts an event to bytes. A RawEvent is written back unchanged.
func (c *Codec) Serialize(event stoat.Event) ([]byte, error) {
	if stoat.IsNilEvent(event) {
		return nil, NewSerializationError("nil", "serialize", stoat.ErrNilEvent)
	}

	if raw, ok := event.(RawEvent); ok {
		return raw.Data, nil
	}

	data, err := c.marshal(event)
	if err != nil {
		return nil, NewSerializationError(event.EventType(), "serialize", err)
	}
	return data, nil
}

// Deserialize converts bytes back to an event.
func (c *Codec) Deserialize(data []byte, eventType string) (stoat.Event, error) {
	if len(data) == 0 {
		return nil, NewSerializationError(eventType, "deserialize", errors.New("data cannot be empty"))
	}

	decode, ok := c.registry.lookup(eventType)
	if !ok {
		return RawEvent{Type: eventType, Data: append([]byte(nil), data...)}, nil
	}

	event, err := decode(data, c.unmarshal)
	if err != nil {
		return nil, NewSerializationError(eventType, "deserialize", err)
	}
	return event, nil
}

// RawEvent carries the payload of an event type this process does not know.
// Lenient aggregates skip it; strict aggregates reject it as unregistered.
type RawEvent struct {
	Type string
	Data []byte
}

// EventType returns the stored discriminator.
func (e RawEvent) EventType() string {
	return e.Type
}

// SerializationError represents a serialization or deserialization error.
type SerializationError struct {
	EventType string
	Operation string // "serialize" or "deserialize"
	Err       error
}

// NewSerializationError creates a new SerializationError.
func NewSerializationError(eventType, operation string, err error) *SerializationError {
	return &SerializationError{EventType: eventType, Operation: operation, Err: err}
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("stoat/serializer: failed to %s event %s: %v", e.Operation, e.EventType, e.Err)
}

// Unwrap returns the underlying error.
func (e *SerializationError) Unwrap() error {
	return e.Err
}
