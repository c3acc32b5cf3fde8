package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Cloud Firestore. Each session key maps
// to a document whose "messages" subcollection holds the ordered log; a
// monotonically increasing sequence field preserves append order.
type FirestoreStore struct {
	client    *firestore.Client
	namespace string
	keys      *keyLocks
	mu        sync.RWMutex
	closed    bool
}

// NewFirestoreStore creates a Firestore-backed store for the given project
// and namespace.
func NewFirestoreStore(ctx context.Context, projectID, namespace string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	if namespace == "" {
		namespace = "default"
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &FirestoreStore{
		client:    client,
		namespace: namespace,
		keys:      newKeyLocks(),
	}, nil
}

type firestoreMessage struct {
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	Timestamp time.Time `firestore:"timestamp"`
	Seq       int       `firestore:"seq"`
}

func (s *FirestoreStore) sessionDoc(key string) *firestore.DocumentRef {
	return s.client.Collection("sessions-" + s.namespace).Doc(key)
}

func (s *FirestoreStore) messagesCol(key string) *firestore.CollectionRef {
	return s.sessionDoc(key).Collection("messages")
}

// Load retrieves the ordered message log for a key.
func (s *FirestoreStore) Load(ctx context.Context, key string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	return s.readAll(ctx, key)
}

// Append adds a message to the end of the log and returns the new list.
func (s *FirestoreStore) Append(ctx context.Context, key string, msg Message) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	lock := s.keys.get(key)
	lock.Lock()
	defer lock.Unlock()

	msgs, err := s.readAll(ctx, key)
	if err != nil {
		return nil, err
	}

	doc := firestoreMessage{
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
		Seq:       len(msgs),
	}
	if _, _, err := s.messagesCol(key).Add(ctx, doc); err != nil {
		return nil, fmt.Errorf("firestore append message: %w", err)
	}

	return append(msgs, msg), nil
}

// Save replaces the full log for a key.
func (s *FirestoreStore) Save(ctx context.Context, key string, msgs []Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return err
	}

	lock := s.keys.get(key)
	lock.Lock()
	defer lock.Unlock()

	// Drop the existing log first; Save is a full replacement.
	iter := s.messagesCol(key).Documents(ctx)
	defer iter.Stop()
	bw := s.client.BulkWriter(ctx)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("firestore list messages: %w", err)
		}
		if _, err := bw.Delete(snap.Ref); err != nil {
			return fmt.Errorf("firestore delete message: %w", err)
		}
	}

	for i, msg := range msgs {
		doc := firestoreMessage{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
			Seq:       i,
		}
		if _, err := bw.Create(s.messagesCol(key).NewDoc(), doc); err != nil {
			return fmt.Errorf("firestore write message: %w", err)
		}
	}
	bw.End()
	return nil
}

// Close releases the underlying Firestore client.
func (s *FirestoreStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

func (s *FirestoreStore) readAll(ctx context.Context, key string) ([]Message, error) {
	iter := s.messagesCol(key).OrderBy("seq", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	msgs := []Message{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return []Message{}, nil
			}
			return nil, fmt.Errorf("firestore load session: %w", err)
		}

		var doc firestoreMessage
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, Message{
			Role:      doc.Role,
			Content:   doc.Content,
			Timestamp: doc.Timestamp,
		})
	}
	return msgs, nil
}
