// Package upload stores files attached during the configuration flow.
// Stored names are generated, never derived from the client filename, so
// uploads cannot collide or overwrite each other.
package upload

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrStoreClosed is returned when operating on a closed store.
var ErrStoreClosed = errors.New("upload store is closed")

// maxUploadSize bounds a single upload.
const maxUploadSize = 25 << 20

// Record is the stored metadata for one upload.
type Record struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	StepLabel  string    `json:"step_label,omitempty"`
	FileName   string    `json:"file_name"`
	StoredAs   string    `json:"stored_as"`
	Size       int64     `json:"size"`
	Type       string    `json:"type,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Store writes upload blobs under a base directory and records metadata
// in a JSONL index.
type Store struct {
	dir    string
	index  string
	mu     sync.Mutex
	closed bool
}

// NewStore creates the store rooted at baseDir.
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".atelier", "uploads")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Store{
		dir:   baseDir,
		index: filepath.Join(baseDir, "uploads.jsonl"),
	}, nil
}

// Put stores the blob and records its metadata. The stored name is a
// generated identifier with the original extension; the client filename
// and declared content type are kept only as metadata.
func (s *Store) Put(slug, stepLabel, fileName, contentType string, r io.Reader) (Record, error) {
	if strings.TrimSpace(slug) == "" {
		return Record{}, fmt.Errorf("missing required field: slug")
	}
	if fileName == "" {
		return Record{}, fmt.Errorf("missing required field: file")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Record{}, ErrStoreClosed
	}

	id := uuid.NewString()
	storedAs := id + sanitizeExt(fileName)
	dest := filepath.Join(s.dir, storedAs)

	// #nosec G304 -- stored name is generated, not client input
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Record{}, fmt.Errorf("create upload file: %w", err)
	}

	size, err := io.Copy(f, io.LimitReader(r, maxUploadSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return Record{}, fmt.Errorf("write upload: %w", err)
	}
	if size > maxUploadSize {
		_ = os.Remove(dest)
		return Record{}, fmt.Errorf("upload exceeds %d bytes", int64(maxUploadSize))
	}

	rec := Record{
		ID:         id,
		Slug:       slug,
		StepLabel:  stepLabel,
		FileName:   filepath.Base(fileName),
		StoredAs:   storedAs,
		Size:       size,
		Type:       contentType,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.appendIndex(rec); err != nil {
		_ = os.Remove(dest)
		return Record{}, err
	}
	return rec, nil
}

// List returns the metadata records for a slug, in upload order.
func (s *Store) List(slug string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	all, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	recs := make([]Record, 0, len(all))
	for _, rec := range all {
		if rec.Slug == slug {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// Open returns a reader for a stored blob by its generated name.
func (s *Store) Open(storedAs string) (io.ReadCloser, error) {
	if storedAs != filepath.Base(storedAs) || strings.Contains(storedAs, "..") {
		return nil, fmt.Errorf("invalid stored name")
	}
	// #nosec G304 -- name validated against traversal above
	return os.Open(filepath.Join(s.dir, storedAs))
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) appendIndex(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal upload record: %w", err)
	}
	// #nosec G304 -- index path is operator configuration
	f, err := os.OpenFile(s.index, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open upload index: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write upload index: %w", err)
	}
	return nil
}

func (s *Store) readIndex() ([]Record, error) {
	// #nosec G304 -- index path is operator configuration
	f, err := os.Open(s.index)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("open upload index: %w", err)
	}
	defer func() { _ = f.Close() }()

	var recs []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parse upload record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read upload index: %w", err)
	}
	return recs, nil
}

// sanitizeExt keeps a short, safe extension from the client filename.
func sanitizeExt(fileName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	for _, r := range ext[min(1, len(ext)):] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}
