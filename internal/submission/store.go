// Package submission persists completed configuration submissions and
// notifies the operator when one arrives.
package submission

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrStoreClosed is returned when operating on a closed store.
var ErrStoreClosed = errors.New("submission store is closed")

// Submission is one completed configuration flow.
type Submission struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Steps       json.RawMessage `json:"steps,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	ClientIP    string          `json:"client_ip,omitempty"`
	UserAgent   string          `json:"user_agent,omitempty"`
}

// Store is an append-only submission log backed by a JSONL file. Records
// are written in arrival order; List returns them newest first.
type Store struct {
	path   string
	mu     sync.Mutex
	closed bool
}

// NewStore creates the store, creating the parent directory if needed.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, ".atelier", "submissions.jsonl")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create submissions dir: %w", err)
	}
	return &Store{path: path}, nil
}

// Add assigns an ID and timestamp when absent and appends the record.
func (s *Store) Add(sub *Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	// #nosec G304 -- path is operator configuration, not request input
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open submissions file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write submission: %w", err)
	}
	return nil
}

// List returns all submissions, newest first. A missing file is an empty
// list, never an error.
func (s *Store) List() ([]Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.readAll()
}

// Since returns submissions recorded at or after the cutoff, newest first.
func (s *Store) Since(cutoff time.Time) ([]Submission, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	recent := make([]Submission, 0, len(all))
	for _, sub := range all {
		if !sub.SubmittedAt.Before(cutoff) {
			recent = append(recent, sub)
		}
	}
	return recent, nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) readAll() ([]Submission, error) {
	// #nosec G304 -- path is operator configuration, not request input
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Submission{}, nil
		}
		return nil, fmt.Errorf("open submissions file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var subs []Submission
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var sub Submission
		if err := json.Unmarshal(line, &sub); err != nil {
			return nil, fmt.Errorf("parse submission record: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read submissions file: %w", err)
	}

	// Reverse to newest first.
	for i, j := 0, len(subs)-1; i < j; i, j = i+1, j-1 {
		subs[i], subs[j] = subs[j], subs[i]
	}
	if subs == nil {
		subs = []Submission{}
	}
	return subs, nil
}
