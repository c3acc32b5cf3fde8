package session

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements Store using JSONL files, one file per session key.
// Storage layout:
//
//	<base-dir>/
//	  └── <namespace>/
//	      └── <key>.jsonl
type FileStore struct {
	dir    string
	keys   *keyLocks
	mu     sync.RWMutex
	closed bool
}

// NewFileStore creates a file-based store rooted at baseDir/namespace.
func NewFileStore(baseDir, namespace string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".atelier", "sessions")
	}
	if err := validateKey(namespace); err != nil {
		return nil, fmt.Errorf("invalid namespace: %w", err)
	}

	dir := filepath.Join(baseDir, namespace)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	return &FileStore{
		dir:  dir,
		keys: newKeyLocks(),
	}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, key+".jsonl")
}

// Load retrieves the ordered message log for a key.
func (f *FileStore) Load(ctx context.Context, key string) ([]Message, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	return f.readAll(key)
}

// Append adds a message to the end of the log and returns the new list.
func (f *FileStore) Append(ctx context.Context, key string, msg Message) ([]Message, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	lock := f.keys.get(key)
	lock.Lock()
	defer lock.Unlock()

	msgs, err := f.readAll(key)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(f.path(key), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // #nosec G304 - key validated to prevent traversal
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("write message: %w", err)
	}

	return append(msgs, msg), nil
}

// Save replaces the full log for a key.
func (f *FileStore) Save(ctx context.Context, key string, msgs []Message) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return err
	}

	lock := f.keys.get(key)
	lock.Lock()
	defer lock.Unlock()

	var buf []byte
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}

	if err := os.WriteFile(f.path(key), buf, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Close releases any resources held by the store.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

// readAll reads every message line for a key. A missing file yields an
// empty list.
func (f *FileStore) readAll(key string) ([]Message, error) {
	file, err := os.Open(f.path(key)) // #nosec G304 - key validated to prevent traversal
	if err != nil {
		if os.IsNotExist(err) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer func() { _ = file.Close() }()

	msgs := []Message{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			return nil, fmt.Errorf("parse message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan session file: %w", err)
	}

	return msgs, nil
}
