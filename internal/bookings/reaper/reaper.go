// Package reaper returns abandoned holds to AVAILABLE.
package reaper

import (
	"context"
	"errors"
	"time"

	bookingserrors "slotbook/internal/bookings/errors"
	"slotbook/internal/bookings/events"
	"slotbook/internal/bookings/repository"
	"slotbook/pkg/config"
	"slotbook/pkg/metrics"
	"slotbook/pkg/model"
)

type Reaper struct {
	store     repository.Store
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func New(store repository.Store, publisher events.Publisher, cfg *config.Config) *Reaper {
	if publisher == nil {
		publisher = events.NopPublisher()
	}
	return &Reaper{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run sweeps every ReaperInterval until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	r.cfg.Log.Info("Lock reaper started",
		"interval", r.cfg.ReaperInterval,
		"lock_ttl", r.cfg.LockTTL,
	)

	ticker := time.NewTicker(r.cfg.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				r.cfg.Log.Error("Lock reaper sweep failed", "error", err)
			}
		case <-ctx.Done():
			r.cfg.Log.Info("Lock reaper stopped")
			return
		}
	}
}

// Sweep reclaims up to ReaperBatchSize holds older than LockTTL and reports
// how many it returned to AVAILABLE. A hold that is confirmed or released
// while the sweep runs is left alone.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	cutoff := r.now().UTC().Add(-r.cfg.LockTTL)

	stale, err := r.store.FindStaleLocks(ctx, cutoff, r.cfg.ReaperBatchSize)
	if err != nil {
		metrics.ReaperSweepsTotal.WithLabelValues("failure").Inc()
		return 0, err
	}

	reclaimed := 0
	for _, slot := range stale {
		err := r.reclaim(ctx, slot, cutoff)
		if err == nil {
			reclaimed++
			continue
		}
		if errors.Is(err, bookingserrors.ErrConflict) {
			continue
		}
		metrics.ReaperSweepsTotal.WithLabelValues("failure").Inc()
		return reclaimed, err
	}

	metrics.ReaperSweepsTotal.WithLabelValues("success").Inc()
	if reclaimed > 0 {
		r.cfg.Log.Info("Reclaimed stale holds", "count", reclaimed, "cutoff", cutoff)
	}
	return reclaimed, nil
}

func (r *Reaper) reclaim(ctx context.Context, slot model.Slot, cutoff time.Time) error {
	err := r.store.Transition(ctx, repository.Transition{
		SlotID:       slot.ID,
		From:         model.SlotLocked,
		To:           model.SlotAvailable,
		LockToken:    slot.LockToken,
		LockedBefore: &cutoff,
	})
	if err != nil {
		return err
	}

	metrics.LocksReclaimedTotal.Inc()
	if err := r.publisher.SlotReleased(ctx, slot.ID, events.ReasonExpired, r.now().UTC().Truncate(time.Millisecond)); err != nil {
		r.cfg.Log.Warn("Failed to publish slot released event", "slot_id", slot.ID, "error", err)
	}
	return nil
}
