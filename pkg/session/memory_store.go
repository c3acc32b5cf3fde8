package session

import (
	"context"
	"sync"
)

// MemoryStore implements Store with an in-process map. It is intended for
// tests and single-node development; nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	logs   map[string][]Message
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]Message)}
}

// Load retrieves the ordered message log for a key.
func (m *MemoryStore) Load(ctx context.Context, key string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	out := make([]Message, len(m.logs[key]))
	copy(out, m.logs[key])
	return out, nil
}

// Append adds a message to the end of the log and returns the new list.
func (m *MemoryStore) Append(ctx context.Context, key string, msg Message) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	m.logs[key] = append(m.logs[key], msg)
	out := make([]Message, len(m.logs[key]))
	copy(out, m.logs[key])
	return out, nil
}

// Save replaces the full log for a key.
func (m *MemoryStore) Save(ctx context.Context, key string, msgs []Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return err
	}

	cp := make([]Message, len(msgs))
	copy(cp, msgs)
	m.logs[key] = cp
	return nil
}

// Close releases the store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
