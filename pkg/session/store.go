// Package session provides durable, append-only conversation storage for
// atelier. Each session is an ordered message log keyed by a project slug;
// stores are namespaced so the visitor chat and the ops assistant chat for
// the same slug never share context.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Common errors for storage operations.
var (
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("session store is closed")
	// ErrInvalidKey is returned when a key contains unsafe characters.
	ErrInvalidKey = errors.New("invalid session key")
)

// Message is a single entry in a session log.
// Messages are immutable once appended.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Store abstracts session persistence.
// Implementations must be safe for concurrent use and must serialize
// appends to the same key so concurrent requests never lose writes.
type Store interface {
	// Load retrieves the ordered message log for a key.
	// A missing key is indistinguishable from an empty history: both
	// return an empty list, never an error.
	Load(ctx context.Context, key string) ([]Message, error)

	// Append adds a message to the end of the log and returns the new
	// ordered list. The session is created implicitly on first append.
	Append(ctx context.Context, key string, msg Message) ([]Message, error)

	// Save replaces the full log for a key.
	Save(ctx context.Context, key string, msgs []Message) error

	// Close releases any resources held by the store.
	Close() error
}

// validateKey checks that a key is safe to use as a path or storage
// component. It rejects empty strings, path separators, and traversal
// sequences.
func validateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

// keyLocks provides per-key mutual exclusion. Appends to the same session
// key serialize; different keys proceed independently.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyLocks) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if l, ok := k.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	k.locks[key] = l
	return l
}
