// Package msgpack provides a MessagePack serializer for stoat events.
//
// MessagePack is a binary serialization format that produces smaller payloads
// than JSON while maintaining similar flexibility. Struct fields are named by
// their `json` tags, so the same event types serialize sensibly with either
// encoding.
//
// Basic usage:
//
//	reg := serializer.NewRegistry()
//	serializer.MustRegister[AccountCredited](reg)
//
//	s := msgpack.NewSerializer(reg)
//	data, err := s.Serialize(AccountCredited{Amount: 100})
//	event, err := s.Deserialize(data, "AccountCredited")
package msgpack

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/AshkanYarmoradi/go-stoat/serializer"
)

// Name is the encoding name reported by the serializer.
const Name = "msgpack"

// NewSerializer creates a MessagePack serializer backed by registry.
func NewSerializer(registry *serializer.Registry) *serializer.Codec {
	return serializer.New(Name, registry, marshal, unmarshal)
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
