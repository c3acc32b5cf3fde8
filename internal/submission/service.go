package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/atelierhq/atelier/internal/notify"
)

// Service records submissions and notifies the operator about each one.
// Notification failure never fails the submission.
type Service struct {
	store    *Store
	notifier notify.Notifier
}

// NewService wires the store and notifier.
func NewService(store *Store, notifier notify.Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Create validates and persists a submission, then sends a best-effort
// notification. The stored record, with its assigned ID, is returned.
func (s *Service) Create(ctx context.Context, sub Submission) (Submission, error) {
	if strings.TrimSpace(sub.Slug) == "" {
		return Submission{}, fmt.Errorf("missing required field: slug")
	}

	if err := s.store.Add(&sub); err != nil {
		return Submission{}, err
	}

	if err := s.notifier.Send(ctx, notify.Message{
		Subject: fmt.Sprintf("New submission: %s", sub.Slug),
		Body:    formatNotification(sub),
	}); err != nil {
		log.Printf("submission %s recorded but notification failed: %v", sub.ID, err)
	}

	return sub, nil
}

// List returns all recorded submissions, newest first.
func (s *Service) List(_ context.Context) ([]Submission, error) {
	return s.store.List()
}

func formatNotification(sub Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", sub.Slug)
	fmt.Fprintf(&b, "Submitted: %s\n", sub.SubmittedAt.Format("2006-01-02 15:04:05 MST"))
	if sub.ClientIP != "" {
		fmt.Fprintf(&b, "Client: %s\n", sub.ClientIP)
	}
	if sub.Notes != "" {
		fmt.Fprintf(&b, "\nNotes:\n%s\n", sub.Notes)
	}
	if len(sub.Steps) > 0 {
		var pretty map[string]any
		if err := json.Unmarshal(sub.Steps, &pretty); err == nil {
			if out, err := json.MarshalIndent(pretty, "", "  "); err == nil {
				fmt.Fprintf(&b, "\nConfiguration:\n%s\n", out)
			}
		}
	}
	return b.String()
}
