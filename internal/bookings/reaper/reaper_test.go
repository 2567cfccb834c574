package reaper

import (
	"context"
	"errors"
	"testing"
	"time"

	"slotbook/internal/bookings/repository"
	"slotbook/pkg/config"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type releaseRecorder struct {
	reasons map[string]string
}

func (r *releaseRecorder) BookingConfirmed(context.Context, *model.Booking) error { return nil }

func (r *releaseRecorder) SlotReleased(ctx context.Context, slotID, reason string, at time.Time) error {
	r.reasons[slotID] = reason
	return nil
}

func newReaper(store repository.Store, pub *releaseRecorder, now time.Time) *Reaper {
	r := New(store, pub, &config.Config{
		Log:             logger.Discard(),
		LockTTL:         2 * time.Minute,
		ReaperInterval:  10 * time.Millisecond,
		ReaperBatchSize: 100,
	})
	r.now = func() time.Time { return now }
	return r
}

func lockSlot(t *testing.T, store repository.Store, id string, lockedAt time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateSlot(ctx, &model.Slot{ID: id, DoctorID: "doc", StartTime: base, Status: model.SlotAvailable}))
	require.NoError(t, store.Transition(ctx, repository.Transition{
		SlotID: id, From: model.SlotAvailable, To: model.SlotLocked,
		LockToken: "tok-" + id, LockedAt: lockedAt,
	}))
}

func TestSweep_ReclaimsOnlyStaleLocks(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	pub := &releaseRecorder{reasons: map[string]string{}}
	now := base.Add(10 * time.Minute)

	lockSlot(t, store, "stale", now.Add(-5*time.Minute))
	lockSlot(t, store, "fresh", now.Add(-30*time.Second))

	reclaimed, err := newReaper(store, pub, now).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	stale, err := store.FetchSlot(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, model.SlotAvailable, stale.Status)
	assert.True(t, stale.Consistent())

	fresh, err := store.FetchSlot(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, model.SlotLocked, fresh.Status)

	assert.Equal(t, map[string]string{"stale": "expired"}, pub.reasons)
}

func TestSweep_ReclaimedSlotCanBeBookedAgain(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	now := base.Add(10 * time.Minute)
	lockSlot(t, store, "s1", base)

	_, err := newReaper(store, &releaseRecorder{reasons: map[string]string{}}, now).Sweep(ctx)
	require.NoError(t, err)

	err = store.Transition(ctx, repository.Transition{
		SlotID: "s1", From: model.SlotAvailable, To: model.SlotBooked,
		Booking: &model.Booking{ID: "b1", SlotID: "s1", PatientName: "Jane", Status: model.BookingConfirmed, CreatedAt: now},
	})
	assert.NoError(t, err)
}

func TestSweep_SkipsHoldConfirmedMeanwhile(t *testing.T) {
	ctx := context.Background()
	inner := repository.NewMemoryStore()
	lockSlot(t, inner, "s1", base)

	// The hold is confirmed between the scan and the reclaim.
	store := &racingStore{Store: inner, before: func() {
		require.NoError(t, inner.Transition(ctx, repository.Transition{
			SlotID: "s1", From: model.SlotLocked, To: model.SlotBooked, LockToken: "tok-s1",
			Booking: &model.Booking{ID: "b1", SlotID: "s1", PatientName: "Jane", Status: model.BookingConfirmed, CreatedAt: base},
		}))
	}}

	reclaimed, err := newReaper(store, &releaseRecorder{reasons: map[string]string{}}, base.Add(time.Hour)).Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, reclaimed)

	slot, err := inner.FetchSlot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SlotBooked, slot.Status)
}

func TestSweep_StoreError(t *testing.T) {
	down := errors.New("connection refused")
	store := &racingStore{Store: repository.NewMemoryStore(), findErr: down}

	_, err := newReaper(store, &releaseRecorder{reasons: map[string]string{}}, base).Sweep(context.Background())
	assert.ErrorIs(t, err, down)
}

func TestRun_StopsOnCancel(t *testing.T) {
	store := repository.NewMemoryStore()
	lockSlot(t, store, "s1", base)
	r := newReaper(store, &releaseRecorder{reasons: map[string]string{}}, base.Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		slot, err := store.FetchSlot(context.Background(), "s1")
		return err == nil && slot.Status == model.SlotAvailable
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}

type racingStore struct {
	repository.Store
	before  func()
	findErr error
}

func (s *racingStore) FindStaleLocks(ctx context.Context, cutoff time.Time, limit int) ([]model.Slot, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	slots, err := s.Store.FindStaleLocks(ctx, cutoff, limit)
	if s.before != nil {
		s.before()
	}
	return slots, err
}
