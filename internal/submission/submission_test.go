package submission

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/atelierhq/atelier/internal/notify"
)

// recordingNotifier captures sent messages for assertions.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "submissions.jsonl"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreListMissingFileIsEmpty(t *testing.T) {
	store := newTestStore(t)

	subs, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expected empty list, got %d", len(subs))
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		sub := Submission{Slug: "proj", SubmittedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.Add(&sub); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	subs, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3, got %d", len(subs))
	}
	if !subs[0].SubmittedAt.After(subs[1].SubmittedAt) || !subs[1].SubmittedAt.After(subs[2].SubmittedAt) {
		t.Errorf("not newest first: %v %v %v", subs[0].SubmittedAt, subs[1].SubmittedAt, subs[2].SubmittedAt)
	}
}

func TestStoreAssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)

	sub := Submission{Slug: "proj"}
	if err := store.Add(&sub); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sub.ID == "" {
		t.Error("expected generated ID")
	}
	if sub.SubmittedAt.IsZero() {
		t.Error("expected timestamp")
	}
}

func TestServiceCreateNotifies(t *testing.T) {
	store := newTestStore(t)
	notifier := &recordingNotifier{}
	svc := NewService(store, notifier)

	steps, _ := json.Marshal(map[string]any{"brand": "PawPath"})
	sub, err := svc.Create(context.Background(), Submission{
		Slug:      "proj-1",
		Steps:     steps,
		Notes:     "rush job",
		ClientIP:  "10.0.0.1",
		UserAgent: "test-agent",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sub.ID == "" {
		t.Error("expected assigned ID")
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	if notifier.sent[0].Subject != "New submission: proj-1" {
		t.Errorf("unexpected subject: %q", notifier.sent[0].Subject)
	}
}

func TestServiceCreateMissingSlug(t *testing.T) {
	store := newTestStore(t)
	notifier := &recordingNotifier{}
	svc := NewService(store, notifier)

	if _, err := svc.Create(context.Background(), Submission{}); err == nil {
		t.Fatal("expected error for missing slug")
	}
	if len(notifier.sent) != 0 {
		t.Errorf("rejected submission must not notify, got %d", len(notifier.sent))
	}

	subs, _ := store.List()
	if len(subs) != 0 {
		t.Errorf("rejected submission must not persist, got %d", len(subs))
	}
}

func TestServiceCreateSurvivesNotifierFailure(t *testing.T) {
	store := newTestStore(t)
	notifier := &recordingNotifier{err: context.DeadlineExceeded}
	svc := NewService(store, notifier)

	if _, err := svc.Create(context.Background(), Submission{Slug: "proj-2"}); err != nil {
		t.Fatalf("notification failure must not fail the submission: %v", err)
	}

	subs, _ := store.List()
	if len(subs) != 1 {
		t.Errorf("expected persisted submission, got %d", len(subs))
	}
}

func TestDigestSkipsEmptyDay(t *testing.T) {
	store := newTestStore(t)
	notifier := &recordingNotifier{}
	digest := NewDigest(store, notifier)

	if err := digest.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Errorf("empty day must send nothing, got %d", len(notifier.sent))
	}
}

func TestDigestCoversLast24Hours(t *testing.T) {
	store := newTestStore(t)
	notifier := &recordingNotifier{}
	digest := NewDigest(store, notifier)

	old := Submission{Slug: "stale", SubmittedAt: time.Now().UTC().Add(-48 * time.Hour)}
	recent := Submission{Slug: "fresh", SubmittedAt: time.Now().UTC().Add(-1 * time.Hour)}
	if err := store.Add(&old); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add(&recent); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := digest.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 digest, got %d", len(notifier.sent))
	}
	if notifier.sent[0].Subject != "Daily digest: 1 new submission(s)" {
		t.Errorf("unexpected subject: %q", notifier.sent[0].Subject)
	}
}
