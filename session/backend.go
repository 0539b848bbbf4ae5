package session

import (
	"context"
	"errors"
	"sync"
)

// ErrBackendUnavailable wraps storage failures reported by a [Backend].
var ErrBackendUnavailable = errors.New("session backend unavailable")

// Batch is a set of writes and deletes applied atomically by a [Backend].
type Batch struct {
	Set    map[string]string
	Delete []string
}

// Backend is the key-value storage behind a [Store].
//
// Apply must make either every write of the batch visible or none of them.
type Backend interface {
	Read(ctx context.Context, keys []string) (map[string]string, error)
	Apply(ctx context.Context, batch Batch) error
}

// MemoryBackend keeps persisted keys in process memory. It is the default
// backend and the one used by tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	values  map[string]string
	applied int
}

// NewMemoryBackend returns an empty [MemoryBackend].
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Read returns the present values among keys.
func (m *MemoryBackend) Read(ctx context.Context, keys []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := m.values[key]; ok {
			out[key] = v
		}
	}
	return out, nil
}

// Apply writes batch under a single lock.
func (m *MemoryBackend) Apply(ctx context.Context, batch Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range batch.Delete {
		delete(m.values, key)
	}
	for key, v := range batch.Set {
		m.values[key] = v
	}
	m.applied++
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// Applied returns how many batches have been applied.
func (m *MemoryBackend) Applied() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.applied
}
