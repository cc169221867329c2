package params

import (
	"fmt"
	"sync"
)

// Store is a concurrency-safe mapping from parameter name to Value.
//
// It is shared between the message dispatch path (remote reconfiguration)
// and the hosting application's own goroutines. A sync.RWMutex serializes
// writers against readers, so there are no torn reads of a single value.
//
// Entries are created only through NewStore or Add; Set never creates.
//
// All public methods are thread-safe.
type Store struct {
	mu     sync.RWMutex
	values map[string]Value
}

// NewStore creates a store pre-populated with the given parameters.
// The initial map is copied; later mutation of it does not affect the store.
func NewStore(initial map[string]Value) *Store {
	values := make(map[string]Value, len(initial))
	for name, v := range initial {
		values[name] = v
	}
	return &Store{values: values}
}

// NewStoreFromAny creates a store from dynamically-typed initial values,
// as decoded from the component.params config section.
//
// Returns ErrUnsupportedType if any value falls outside the supported
// kinds, and ErrInvalidName for an empty parameter name.
func NewStoreFromAny(initial map[string]any) (*Store, error) {
	values := make(map[string]Value, len(initial))
	for name, raw := range initial {
		if name == "" {
			return nil, ErrInvalidName
		}
		v, err := FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		values[name] = v
	}
	return &Store{values: values}, nil
}

// Get returns the current value of a parameter.
// Returns ErrNotFound if the name is absent.
func (s *Store) Get(name string) (Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return v, nil
}

// Set replaces the value of an existing parameter.
// Returns ErrNotFound if the name is absent; Set never creates entries.
func (s *Store) Set(name string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	s.values[name] = v
	return nil
}

// Add inserts a new parameter.
// Returns ErrAlreadyExists if the name is already present, and
// ErrInvalidName for an empty name.
func (s *Store) Add(name string, v Value) error {
	if name == "" {
		return ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	s.values[name] = v
	return nil
}

// Has reports whether a parameter exists.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.values[name]
	return ok
}

// Len returns the number of parameters in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Snapshot returns an independent point-in-time copy of all parameters.
// The copy is safe to hand to a publisher without further synchronization;
// later mutation of the store cannot affect it.
func (s *Store) Snapshot() map[string]Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]Value, len(s.values))
	for name, v := range s.values {
		snapshot[name] = v
	}
	return snapshot
}
