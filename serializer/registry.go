package serializer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/AshkanYarmoradi/go-stoat"
)

// ErrDuplicateType is returned when an event type is registered twice.
var ErrDuplicateType = errors.New("stoat/serializer: event type already registered")

type decodeFunc func(data []byte, unmarshal UnmarshalFunc) (stoat.Event, error)

// Registry maps event type discriminators to decoders.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]decodeFunc
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]decodeFunc),
	}
}

// Register makes E decodable under the discriminator its zero value reports.
// Decoded events are returned as E values.
func Register[E stoat.Event](r *Registry) error {
	var zero E
	eventType := zero.EventType()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.decoders[eventType]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateType, eventType)
	}

	r.decoders[eventType] = func(data []byte, unmarshal UnmarshalFunc) (stoat.Event, error) {
		var e E
		if err := unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister[E stoat.Event](r *Registry) {
	if err := Register[E](r); err != nil {
		panic(err)
	}
}

// IsRegistered reports whether eventType has a decoder.
func (r *Registry) IsRegistered(eventType string) bool {
	_, ok := r.lookup(eventType)
	return ok
}

// RegisteredTypes returns all registered event types in sorted order.
func (r *Registry) RegisteredTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.decoders))
	for t := range r.decoders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Count returns the number of registered event types.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.decoders)
}

func (r *Registry) lookup(eventType string) (decodeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.decoders[eventType]
	return d, ok
}
