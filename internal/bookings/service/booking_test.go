package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	bookingserrors "slotbook/internal/bookings/errors"
	"slotbook/internal/bookings/events"
	"slotbook/internal/bookings/repository"
	"slotbook/internal/bookings/validator"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []string
	released  []string
	err       error
}

func (p *recordingPublisher) BookingConfirmed(ctx context.Context, booking *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, booking.SlotID)
	return p.err
}

func (p *recordingPublisher) SlotReleased(ctx context.Context, slotID, reason string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = append(p.released, slotID+":"+reason)
	return p.err
}

// mockStore overrides the calls a test cares about and panics on the rest.
type mockStore struct {
	repository.Store
	fetchSlotFunc  func(ctx context.Context, id string) (*model.Slot, error)
	transitionFunc func(ctx context.Context, t repository.Transition) error
}

func (m *mockStore) FetchSlot(ctx context.Context, id string) (*model.Slot, error) {
	return m.fetchSlotFunc(ctx, id)
}

func (m *mockStore) Transition(ctx context.Context, t repository.Transition) error {
	return m.transitionFunc(ctx, t)
}

func testConfig() *config.Config {
	return &config.Config{
		Log:     logger.Discard(),
		LockTTL: 2 * time.Minute,
	}
}

func newTestService(store repository.Store, pub events.Publisher) *bookingService {
	cfg := testConfig()
	svc := NewBookingService(store, validator.NewBookingValidator(cfg.Log), pub, cfg).(*bookingService)
	svc.now = func() time.Time { return start }
	return svc
}

func seedSlot(t *testing.T, store repository.Store) string {
	t.Helper()
	id := uuid.New().String()
	require.NoError(t, store.CreateSlot(context.Background(), &model.Slot{
		ID:        id,
		DoctorID:  uuid.New().String(),
		StartTime: start.Add(24 * time.Hour),
		Status:    model.SlotAvailable,
		CreatedAt: start,
	}))
	return id
}

func claim(slotID, name string) *model.ClaimRequest {
	return &model.ClaimRequest{SlotID: slotID, PatientName: name}
}

func TestClaim_Success(t *testing.T) {
	store := repository.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := newTestService(store, pub)
	slotID := seedSlot(t, store)

	booking, err := svc.Claim(context.Background(), &model.ClaimRequest{
		SlotID:       slotID,
		PatientName:  "  Jane   Doe ",
		PatientEmail: "Jane@Example.COM",
	})
	require.NoError(t, err)

	assert.Equal(t, slotID, booking.SlotID)
	assert.Equal(t, "Jane Doe", booking.PatientName)
	assert.Equal(t, "jane@example.com", booking.PatientEmail)
	assert.Equal(t, model.BookingConfirmed, booking.Status)
	assert.True(t, booking.CreatedAt.Equal(start))
	_, err = uuid.Parse(booking.ID)
	assert.NoError(t, err)

	slot, err := store.FetchSlot(context.Background(), slotID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotBooked, slot.Status)
	assert.Equal(t, []string{slotID}, pub.confirmed)
}

func TestClaim_ExactlyOneWinner(t *testing.T) {
	for _, callers := range []int{2, 10, 100} {
		t.Run(fmt.Sprintf("%d callers", callers), func(t *testing.T) {
			store := repository.NewMemoryStore()
			svc := newTestService(store, nil)
			slotID := seedSlot(t, store)

			var wg sync.WaitGroup
			results := make([]error, callers)
			gate := make(chan struct{})
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-gate
					_, results[i] = svc.Claim(context.Background(), claim(slotID, fmt.Sprintf("Patient %d", i)))
				}(i)
			}
			close(gate)
			wg.Wait()

			var wins, lost int
			for _, err := range results {
				switch {
				case err == nil:
					wins++
				case errors.Is(err, bookingserrors.ErrAlreadyClaimed):
					lost++
					assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyClaimed))
					assert.Equal(t, http.StatusConflict, apperrors.AsAppError(err).StatusCode())
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}
			assert.Equal(t, 1, wins)
			assert.Equal(t, callers-1, lost)

			count, err := store.CountBookingsForSlot(context.Background(), slotID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})
	}
}

// Twenty patients race for the same appointment: one gets it, nineteen are
// told it is taken.
func TestClaim_TwentyPatientsOneSlot(t *testing.T) {
	store := repository.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := newTestService(store, pub)
	slotID := seedSlot(t, store)

	type result struct {
		booking *model.Booking
		err     error
	}
	results := make(chan result, 20)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := svc.Claim(context.Background(), claim(slotID, fmt.Sprintf("Patient %02d", i)))
			results <- result{b, err}
		}(i)
	}
	wg.Wait()
	close(results)

	var winner *model.Booking
	failures := 0
	for r := range results {
		if r.err == nil {
			require.Nil(t, winner, "two claims succeeded")
			winner = r.booking
			continue
		}
		failures++
		assert.ErrorIs(t, r.err, bookingserrors.ErrAlreadyClaimed)
	}
	require.NotNil(t, winner)
	assert.Equal(t, 19, failures)

	stored, err := store.FindBookingBySlot(context.Background(), slotID)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, stored.ID)
	assert.Equal(t, winner.PatientName, stored.PatientName)
	assert.Len(t, pub.confirmed, 1)
}

func TestClaim_RepeatedFailureIsStable(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(store, nil)
	slotID := seedSlot(t, store)

	_, err := svc.Claim(context.Background(), claim(slotID, "First Patient"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Claim(context.Background(), claim(slotID, "Late Patient"))
		assert.ErrorIs(t, err, bookingserrors.ErrAlreadyClaimed)
	}

	count, err := store.CountBookingsForSlot(context.Background(), slotID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestClaim_ConflictMessageReflectsSlotState(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newTestService(store, nil)
	heldID := seedSlot(t, store)

	res, err := svc.Reserve(ctx, heldID)
	require.NoError(t, err)

	_, err = svc.Claim(ctx, claim(heldID, "Jane Doe"))
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeAlreadyClaimed, appErr.Code)
	assert.Equal(t, "Slot is held by another request", appErr.Message)

	_, err = svc.Reserve(ctx, heldID)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Slot is held by another request", appErr.Message)

	_, err = svc.Confirm(ctx, &model.ConfirmRequest{SlotID: heldID, HoldToken: res.HoldToken, PatientName: "Jane Doe"})
	require.NoError(t, err)

	_, err = svc.Claim(ctx, claim(heldID, "Late Patient"))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeAlreadyClaimed, appErr.Code)
	assert.Equal(t, "Slot already booked", appErr.Message)
}

func TestClaim_ValidationHappensBeforeAnyWrite(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(store, nil)
	slotID := seedSlot(t, store)

	tests := []struct {
		name string
		req  *model.ClaimRequest
	}{
		{"missing name", &model.ClaimRequest{SlotID: slotID}},
		{"name too short", &model.ClaimRequest{SlotID: slotID, PatientName: "J"}},
		{"bad email", &model.ClaimRequest{SlotID: slotID, PatientName: "Jane Doe", PatientEmail: "nope"}},
		{"slot id not a uuid", &model.ClaimRequest{SlotID: "slot-1", PatientName: "Jane Doe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Claim(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, bookingserrors.ErrInvalidClaim)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
			assert.Equal(t, http.StatusBadRequest, apperrors.AsAppError(err).StatusCode())
		})
	}

	slot, err := store.FetchSlot(context.Background(), slotID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotAvailable, slot.Status)
}

func TestClaim_UnknownSlot(t *testing.T) {
	svc := newTestService(repository.NewMemoryStore(), nil)

	_, err := svc.Claim(context.Background(), claim(uuid.New().String(), "Jane Doe"))
	require.Error(t, err)
	assert.ErrorIs(t, err, bookingserrors.ErrSlotNotFound)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Equal(t, http.StatusBadRequest, apperrors.AsAppError(err).StatusCode())
}

func TestClaim_StoreUnavailable(t *testing.T) {
	slotID := uuid.New().String()
	down := errors.New("connection refused")

	tests := []struct {
		name  string
		store *mockStore
	}{
		{
			name: "fetch fails",
			store: &mockStore{
				fetchSlotFunc: func(ctx context.Context, id string) (*model.Slot, error) { return nil, down },
			},
		},
		{
			name: "transition fails",
			store: &mockStore{
				fetchSlotFunc: func(ctx context.Context, id string) (*model.Slot, error) {
					return &model.Slot{ID: id, Status: model.SlotAvailable}, nil
				},
				transitionFunc: func(ctx context.Context, t repository.Transition) error { return down },
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			svc := newTestService(tt.store, pub)

			_, err := svc.Claim(context.Background(), claim(slotID, "Jane Doe"))
			require.Error(t, err)
			assert.ErrorIs(t, err, bookingserrors.ErrStoreUnavailable)
			assert.ErrorIs(t, err, down)
			assert.Equal(t, http.StatusServiceUnavailable, apperrors.AsAppError(err).StatusCode())
			assert.Empty(t, pub.confirmed)
		})
	}
}

func TestClaim_ConflictIsNotRetried(t *testing.T) {
	slotID := uuid.New().String()
	transitions := 0
	store := &mockStore{
		fetchSlotFunc: func(ctx context.Context, id string) (*model.Slot, error) {
			// The winner already let the slot go again by the time we look.
			return &model.Slot{ID: id, Status: model.SlotAvailable}, nil
		},
		transitionFunc: func(ctx context.Context, t repository.Transition) error {
			transitions++
			return bookingserrors.ErrConflict
		},
	}
	svc := newTestService(store, nil)

	_, err := svc.Claim(context.Background(), claim(slotID, "Jane Doe"))
	assert.ErrorIs(t, err, bookingserrors.ErrAlreadyClaimed)
	assert.Equal(t, 1, transitions)
}

func TestClaim_PublishFailureDoesNotFailBooking(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(store, &recordingPublisher{err: errors.New("broker down")})
	slotID := seedSlot(t, store)

	_, err := svc.Claim(context.Background(), claim(slotID, "Jane Doe"))
	require.NoError(t, err)
}

func TestReserveAndConfirm(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := newTestService(store, pub)
	slotID := seedSlot(t, store)

	res, err := svc.Reserve(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, slotID, res.SlotID)
	assert.True(t, res.ExpiresAt.Equal(start.Add(2*time.Minute)))

	slot, err := store.FetchSlot(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotLocked, slot.Status)

	t.Run("second hold loses", func(t *testing.T) {
		_, err := svc.Reserve(ctx, slotID)
		assert.ErrorIs(t, err, bookingserrors.ErrAlreadyClaimed)
	})

	t.Run("direct claim loses", func(t *testing.T) {
		_, err := svc.Claim(ctx, claim(slotID, "Jane Doe"))
		assert.ErrorIs(t, err, bookingserrors.ErrAlreadyClaimed)
	})

	t.Run("wrong token", func(t *testing.T) {
		_, err := svc.Confirm(ctx, &model.ConfirmRequest{SlotID: slotID, HoldToken: uuid.New().String(), PatientName: "Jane Doe"})
		assert.ErrorIs(t, err, bookingserrors.ErrHoldMismatch)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyClaimed))
	})

	booking, err := svc.Confirm(ctx, &model.ConfirmRequest{SlotID: slotID, HoldToken: res.HoldToken, PatientName: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, slotID, booking.SlotID)

	slot, err = store.FetchSlot(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotBooked, slot.Status)
	assert.True(t, slot.Consistent())
	assert.Equal(t, []string{slotID}, pub.confirmed)

	t.Run("confirm twice", func(t *testing.T) {
		_, err := svc.Confirm(ctx, &model.ConfirmRequest{SlotID: slotID, HoldToken: res.HoldToken, PatientName: "Jane Doe"})
		assert.ErrorIs(t, err, bookingserrors.ErrAlreadyClaimed)
	})
}

func TestConfirm_ExpiredHold(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newTestService(store, nil)
	slotID := seedSlot(t, store)

	res, err := svc.Reserve(ctx, slotID)
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(3 * time.Minute) }

	_, err = svc.Confirm(ctx, &model.ConfirmRequest{SlotID: slotID, HoldToken: res.HoldToken, PatientName: "Jane Doe"})
	require.Error(t, err)
	assert.ErrorIs(t, err, bookingserrors.ErrHoldExpired)
	assert.Equal(t, http.StatusGone, apperrors.AsAppError(err).StatusCode())

	count, err := store.CountBookingsForSlot(ctx, slotID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestConfirm_HoldAlreadyReclaimed(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newTestService(store, nil)
	slotID := seedSlot(t, store)

	res, err := svc.Reserve(ctx, slotID)
	require.NoError(t, err)
	require.NoError(t, svc.Release(ctx, slotID, res.HoldToken))

	_, err = svc.Confirm(ctx, &model.ConfirmRequest{SlotID: slotID, HoldToken: res.HoldToken, PatientName: "Jane Doe"})
	assert.ErrorIs(t, err, bookingserrors.ErrHoldExpired)
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := newTestService(store, pub)
	slotID := seedSlot(t, store)

	res, err := svc.Reserve(ctx, slotID)
	require.NoError(t, err)

	err = svc.Release(ctx, slotID, uuid.New().String())
	assert.ErrorIs(t, err, bookingserrors.ErrHoldMismatch)

	require.NoError(t, svc.Release(ctx, slotID, res.HoldToken))
	require.NoError(t, svc.Release(ctx, slotID, res.HoldToken), "release is idempotent")
	assert.Equal(t, []string{slotID + ":" + events.ReasonReleased}, pub.released)

	slot, err := store.FetchSlot(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotAvailable, slot.Status)

	_, err = svc.Claim(ctx, claim(slotID, "Jane Doe"))
	require.NoError(t, err)

	err = svc.Release(ctx, slotID, res.HoldToken)
	assert.ErrorIs(t, err, bookingserrors.ErrAlreadyClaimed)

	err = svc.Release(ctx, uuid.New().String(), res.HoldToken)
	assert.ErrorIs(t, err, bookingserrors.ErrSlotNotFound)
	assert.Equal(t, http.StatusNotFound, apperrors.AsAppError(err).StatusCode())
}

func TestReserve_ConcurrentHoldsExactlyOneWinner(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(store, nil)
	slotID := seedSlot(t, store)

	const callers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	var tokens []string
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Reserve(context.Background(), slotID)
			if err == nil {
				mu.Lock()
				tokens = append(tokens, res.HoldToken)
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, bookingserrors.ErrAlreadyClaimed)
		}()
	}
	wg.Wait()

	assert.Len(t, tokens, 1)
}

func TestGetBooking(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newTestService(store, nil)
	slotID := seedSlot(t, store)

	booking, err := svc.Claim(ctx, claim(slotID, "Jane Doe"))
	require.NoError(t, err)

	found, err := svc.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, found.ID)

	_, err = svc.GetBooking(ctx, uuid.New().String())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = svc.GetBooking(ctx, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}
