// Package registry is a typed key/value store for handing long-lived
// singletons between components that are constructed at different times.
// It exists for late binding only (the voice session is created after the
// message handlers are installed); everything else is wired explicitly.
package registry

import (
	"fmt"
	"sync"
)

// Key identifies a registry slot. The type parameter is checked at
// compile time on Set and at read time on Get.
type Key[T any] struct {
	name string
}

func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

func (k Key[T]) String() string {
	return k.name
}

// LookupError indicates a Get against an absent or differently-typed slot.
type LookupError struct {
	Key string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("registry: no value of the requested type under key %q", e.Key)
}

var _ error = (*LookupError)(nil)

type Registry struct {
	mu     sync.RWMutex
	values map[string]any
}

func New() *Registry {
	return &Registry{values: make(map[string]any)}
}

// Set stores value under key. Last write wins.
func Set[T any](r *Registry, key Key[T], value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key.name] = value
}

// Get returns the value stored under key, or a LookupError if the slot
// is empty or holds a value of another type.
func Get[T any](r *Registry, key Key[T]) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	raw, ok := r.values[key.name]
	if !ok {
		return zero, &LookupError{Key: key.name}
	}

	value, ok := raw.(T)
	if !ok {
		return zero, &LookupError{Key: key.name}
	}
	return value, nil
}
