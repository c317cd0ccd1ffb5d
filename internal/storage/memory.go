// internal/storage/memory.go
// Package storage provides the client-local durable key/value store that
// backs persisted session state such as the order history.
// Values are JSON documents; both backends reject anything else.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
)

// Standard errors returned by the storage layer
var (
	ErrNotFound     = errors.New("not found")          // Returned when a key has no value
	ErrInvalidValue = errors.New("value is not JSON") // Returned when SetItem receives a non-JSON value
)

// Store is a browser-localStorage-like key/value store.
// Each value is read and replaced wholesale; there is no partial update.
type Store interface {
	GetItem(ctx context.Context, key string) ([]byte, error) // ErrNotFound when absent
	SetItem(ctx context.Context, key string, value []byte) error
	RemoveItem(ctx context.Context, key string) error // No-op when absent
	Keys(ctx context.Context) ([]string, error)       // Sorted
	Close() error
}

// memory implements the Store interface using in-memory storage.
// It's intended for development and testing purposes.
type memory struct {
	mu    sync.RWMutex      // Protects concurrent access to items
	items map[string][]byte // Map of key to JSON document
}

// NewMemory creates a new in-memory storage implementation.
func NewMemory() Store {
	return &memory{items: make(map[string][]byte)}
}

func (m *memory) GetItem(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *memory) SetItem(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return ErrInvalidValue
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.items[key] = stored
	return nil
}

func (m *memory) RemoveItem(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

func (m *memory) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memory) Close() error { return nil }
