package submission

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/atelierhq/atelier/internal/notify"
)

// Digest sends the operator a daily summary of new submissions. Days with
// no submissions send nothing.
type Digest struct {
	store    *Store
	notifier notify.Notifier
	cron     *cron.Cron
}

// NewDigest creates the digest scheduler. Start must be called to arm it.
func NewDigest(store *Store, notifier notify.Notifier) *Digest {
	return &Digest{
		store:    store,
		notifier: notifier,
		cron:     cron.New(),
	}
}

// Start schedules the digest at the given cron expression, for example
// "0 8 * * *" for 08:00 daily.
func (d *Digest) Start(schedule string) error {
	_, err := d.cron.AddFunc(schedule, func() {
		if err := d.Run(context.Background()); err != nil {
			log.Printf("submission digest failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}
	d.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running digest to finish.
func (d *Digest) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

// Run sends one digest covering the last 24 hours.
func (d *Digest) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	recent, err := d.store.Since(cutoff)
	if err != nil {
		return fmt.Errorf("collect recent submissions: %w", err)
	}
	if len(recent) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d submission(s) in the last 24 hours:\n\n", len(recent))
	for _, sub := range recent {
		fmt.Fprintf(&b, "- %s at %s (%s)\n", sub.Slug, sub.SubmittedAt.Format("15:04 MST"), sub.ID)
	}

	return d.notifier.Send(ctx, notify.Message{
		Subject: fmt.Sprintf("Daily digest: %d new submission(s)", len(recent)),
		Body:    b.String(),
	})
}
