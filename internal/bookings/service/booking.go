package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	bookingserrors "slotbook/internal/bookings/errors"
	"slotbook/internal/bookings/events"
	"slotbook/internal/bookings/repository"
	"slotbook/internal/bookings/validator"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/metrics"
	"slotbook/pkg/model"
	"slotbook/pkg/validation"

	"github.com/google/uuid"
)

const (
	opClaim   = "claim"
	opReserve = "reserve"
	opConfirm = "confirm"
	opRelease = "release"
)

// BookingService decides who gets a slot. Every operation is a single
// compare-and-swap on the slot's status; losers are told so and are never
// retried on the server side.
type BookingService interface {
	Claim(ctx context.Context, req *model.ClaimRequest) (*model.Booking, error)
	Reserve(ctx context.Context, slotID string) (*model.Reservation, error)
	Confirm(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error)
	Release(ctx context.Context, slotID, holdToken string) error
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
}

type bookingService struct {
	store     repository.Store
	validator *validator.BookingValidator
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	store repository.Store,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	if publisher == nil {
		publisher = events.NopPublisher()
	}
	return &bookingService{
		store:     store,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Claim books an AVAILABLE slot in one step.
func (s *bookingService) Claim(ctx context.Context, req *model.ClaimRequest) (booking *model.Booking, err error) {
	defer s.observe(opClaim, time.Now(), &err)

	validator.SanitizeClaim(req)
	if err := s.validator.ValidateClaim(req); err != nil {
		s.cfg.Log.Warn("Claim validation failed", "error", err)
		return nil, validation.AsAppError(err, bookingserrors.ErrInvalidClaim)
	}

	// An unknown slot on /book is a bad request, not a missing resource.
	if _, err := s.store.FetchSlot(ctx, req.SlotID); err != nil {
		appErr := s.fetchError(req.SlotID, err)
		if errors.Is(err, bookingserrors.ErrSlotNotFound) {
			appErr = appErr.WithStatus(http.StatusBadRequest)
		}
		return nil, appErr
	}

	booking = s.newBooking(req.SlotID, req.PatientName, req.PatientEmail)
	err = s.store.Transition(ctx, repository.Transition{
		SlotID:  req.SlotID,
		From:    model.SlotAvailable,
		To:      model.SlotBooked,
		Booking: booking,
	})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrConflict) {
			return nil, s.claimConflict(ctx, req.SlotID)
		}
		return nil, s.storeError("Failed to claim slot", req.SlotID, err)
	}

	s.cfg.Log.Info("Slot booked",
		"slot_id", booking.SlotID,
		"booking_id", booking.ID,
	)
	s.announceBooking(ctx, booking)
	return booking, nil
}

// Reserve moves an AVAILABLE slot to LOCKED and hands back the hold token the
// caller must present to Confirm or Release.
func (s *bookingService) Reserve(ctx context.Context, slotID string) (res *model.Reservation, err error) {
	defer s.observe(opReserve, time.Now(), &err)

	if err := s.validator.ValidateSlotID(slotID); err != nil {
		return nil, validation.AsAppError(err, bookingserrors.ErrInvalidClaim)
	}

	if _, err := s.store.FetchSlot(ctx, slotID); err != nil {
		return nil, s.fetchError(slotID, err)
	}

	lockedAt := s.timestamp()
	token := uuid.New().String()
	err = s.store.Transition(ctx, repository.Transition{
		SlotID:    slotID,
		From:      model.SlotAvailable,
		To:        model.SlotLocked,
		LockToken: token,
		LockedAt:  lockedAt,
	})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrConflict) {
			return nil, s.claimConflict(ctx, slotID)
		}
		return nil, s.storeError("Failed to hold slot", slotID, err)
	}

	s.cfg.Log.Info("Slot held", "slot_id", slotID, "locked_at", lockedAt)
	return &model.Reservation{
		SlotID:    slotID,
		HoldToken: token,
		LockedAt:  lockedAt,
		ExpiresAt: lockedAt.Add(s.cfg.LockTTL),
	}, nil
}

// Confirm turns a live hold into a booking. The hold must carry the same
// token and must be younger than the lock TTL.
func (s *bookingService) Confirm(ctx context.Context, req *model.ConfirmRequest) (booking *model.Booking, err error) {
	defer s.observe(opConfirm, time.Now(), &err)

	validator.SanitizeConfirm(req)
	if err := s.validator.ValidateConfirm(req); err != nil {
		s.cfg.Log.Warn("Confirm validation failed", "error", err)
		return nil, validation.AsAppError(err, bookingserrors.ErrInvalidClaim)
	}

	booking = s.newBooking(req.SlotID, req.PatientName, req.PatientEmail)
	notBefore := booking.CreatedAt.Add(-s.cfg.LockTTL)
	err = s.store.Transition(ctx, repository.Transition{
		SlotID:          req.SlotID,
		From:            model.SlotLocked,
		To:              model.SlotBooked,
		LockToken:       req.HoldToken,
		LockedNotBefore: &notBefore,
		Booking:         booking,
	})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrConflict) {
			return nil, s.confirmConflict(ctx, req.SlotID, req.HoldToken)
		}
		return nil, s.storeError("Failed to confirm hold", req.SlotID, err)
	}

	s.cfg.Log.Info("Hold confirmed",
		"slot_id", booking.SlotID,
		"booking_id", booking.ID,
	)
	s.announceBooking(ctx, booking)
	return booking, nil
}

// Release gives a held slot back. Releasing a slot that is already
// AVAILABLE succeeds, so a client may retry it freely.
func (s *bookingService) Release(ctx context.Context, slotID, holdToken string) (err error) {
	defer s.observe(opRelease, time.Now(), &err)

	if err := s.validator.ValidateHold(slotID, holdToken); err != nil {
		return validation.AsAppError(err, bookingserrors.ErrInvalidClaim)
	}

	err = s.store.Transition(ctx, repository.Transition{
		SlotID:    slotID,
		From:      model.SlotLocked,
		To:        model.SlotAvailable,
		LockToken: holdToken,
	})
	if err == nil {
		s.cfg.Log.Info("Hold released", "slot_id", slotID)
		if pubErr := s.publisher.SlotReleased(ctx, slotID, events.ReasonReleased, s.timestamp()); pubErr != nil {
			s.cfg.Log.Warn("Failed to publish slot released event", "slot_id", slotID, "error", pubErr)
		}
		return nil
	}
	if !errors.Is(err, bookingserrors.ErrConflict) {
		return s.storeError("Failed to release hold", slotID, err)
	}

	slot, fetchErr := s.store.FetchSlot(ctx, slotID)
	if fetchErr != nil {
		return s.fetchError(slotID, fetchErr)
	}
	if slot.Status == model.SlotAvailable {
		return nil
	}
	if slot.Status == model.SlotLocked {
		return apperrors.AlreadyClaimed("Slot is held by another request", bookingserrors.ErrHoldMismatch)
	}
	return apperrors.AlreadyClaimed("Slot already booked", bookingserrors.ErrAlreadyClaimed)
}

func (s *bookingService) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.store.FindBooking(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrBookingNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		return nil, s.storeError("Failed to retrieve booking", id, err)
	}
	return booking, nil
}

// claimConflict classifies a lost AVAILABLE→X swap by re-reading the slot.
// The slot may have been freed again in between, but the caller still lost
// the race it entered.
func (s *bookingService) claimConflict(ctx context.Context, slotID string) error {
	slot, err := s.store.FetchSlot(ctx, slotID)
	if err != nil {
		return s.fetchError(slotID, err)
	}

	s.cfg.Log.Debug("Slot claim lost", "slot_id", slotID, "status", slot.Status)
	if slot.Status == model.SlotLocked {
		return apperrors.AlreadyClaimed("Slot is held by another request", bookingserrors.ErrAlreadyClaimed)
	}
	return apperrors.AlreadyClaimed("Slot already booked", bookingserrors.ErrAlreadyClaimed)
}

func (s *bookingService) confirmConflict(ctx context.Context, slotID, token string) error {
	slot, err := s.store.FetchSlot(ctx, slotID)
	if err != nil {
		return s.fetchError(slotID, err)
	}

	switch slot.Status {
	case model.SlotBooked:
		return apperrors.AlreadyClaimed("Slot already booked", bookingserrors.ErrAlreadyClaimed)
	case model.SlotLocked:
		if slot.LockToken == token {
			return apperrors.HoldExpired("Hold has expired", bookingserrors.ErrHoldExpired)
		}
		return apperrors.AlreadyClaimed("Slot is held by another request", bookingserrors.ErrHoldMismatch)
	default:
		return apperrors.HoldExpired("Hold has expired", bookingserrors.ErrHoldExpired)
	}
}

func (s *bookingService) fetchError(slotID string, err error) *apperrors.AppError {
	if errors.Is(err, bookingserrors.ErrSlotNotFound) {
		appErr := apperrors.NotFoundWithID("Slot", slotID)
		appErr.Err = bookingserrors.ErrSlotNotFound
		return appErr
	}
	return s.storeError("Failed to read slot", slotID, err)
}

// storeError maps anything the store could not answer to a 503, except a
// transition the state machine forbids, which is a programming error.
func (s *bookingService) storeError(msg, id string, err error) *apperrors.AppError {
	s.cfg.Log.Error(msg, "id", id, "error", err)
	if errors.Is(err, bookingserrors.ErrInvalidTransition) {
		return apperrors.Internal(msg, err)
	}
	return apperrors.StoreUnavailable(errors.Join(bookingserrors.ErrStoreUnavailable, err))
}

func (s *bookingService) newBooking(slotID, name, email string) *model.Booking {
	return &model.Booking{
		ID:           uuid.New().String(),
		SlotID:       slotID,
		PatientName:  name,
		PatientEmail: email,
		Status:       model.BookingConfirmed,
		CreatedAt:    s.timestamp(),
	}
}

// timestamp is truncated to milliseconds, the precision mongo keeps.
func (s *bookingService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *bookingService) announceBooking(ctx context.Context, booking *model.Booking) {
	if err := s.publisher.BookingConfirmed(ctx, booking); err != nil {
		s.cfg.Log.Warn("Failed to publish booking confirmed event",
			"booking_id", booking.ID,
			"slot_id", booking.SlotID,
			"error", err,
		)
	}
}

func (s *bookingService) observe(operation string, start time.Time, err *error) {
	metrics.ObserveClaim(operation, outcome(operation, *err), time.Since(start))
}

func outcome(operation string, err error) string {
	switch {
	case err == nil && operation == opReserve:
		return metrics.OutcomeHeld
	case err == nil && operation == opRelease:
		return metrics.OutcomeReleased
	case err == nil:
		return metrics.OutcomeBooked
	case errors.Is(err, bookingserrors.ErrAlreadyClaimed), errors.Is(err, bookingserrors.ErrHoldMismatch):
		return metrics.OutcomeAlreadyClaimed
	case errors.Is(err, bookingserrors.ErrHoldExpired):
		return metrics.OutcomeHoldExpired
	case errors.Is(err, bookingserrors.ErrSlotNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, bookingserrors.ErrInvalidClaim):
		return metrics.OutcomeInvalid
	case errors.Is(err, bookingserrors.ErrStoreUnavailable):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeError
	}
}
