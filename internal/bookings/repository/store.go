package repository

import (
	"context"
	"fmt"
	bookingserrors "slotbook/internal/bookings/errors"
	"slotbook/pkg/config"
	"slotbook/pkg/model"
	"time"
)

const (
	DoctorsCollection  = "Doctors"
	SlotsCollection    = "Slots"
	BookingsCollection = "Bookings"
)

// Store is the durable home of doctors, slots and bookings. Slot status only
// changes through Transition.
type Store interface {
	FetchSlot(ctx context.Context, id string) (*model.Slot, error)
	Transition(ctx context.Context, t Transition) error

	CreateDoctor(ctx context.Context, doctor *model.Doctor) error
	FindDoctor(ctx context.Context, id string) (*model.Doctor, error)
	ListDoctors(ctx context.Context) ([]model.DoctorSummary, error)
	CreateSlot(ctx context.Context, slot *model.Slot) error
	ListSlotsForDoctor(ctx context.Context, doctorID string) ([]model.Slot, error)

	FindStaleLocks(ctx context.Context, cutoff time.Time, limit int) ([]model.Slot, error)
	FindBooking(ctx context.Context, id string) (*model.Booking, error)
	FindBookingBySlot(ctx context.Context, slotID string) (*model.Booking, error)
	CountBookingsForSlot(ctx context.Context, slotID string) (int64, error)

	Ping(ctx context.Context) error
}

// Transition is a compare-and-swap on one slot's status.
//
// The precondition is status == From. When From is LOCKED, a non-empty
// LockToken must also match, and LockedBefore / LockedNotBefore bound the
// slot's lock timestamp. When To is LOCKED, LockToken and LockedAt are
// written. Any other target clears both. When To is BOOKED, Booking is
// inserted in the same atomic unit.
type Transition struct {
	SlotID string
	From   model.SlotStatus
	To     model.SlotStatus

	LockToken       string
	LockedBefore    *time.Time
	LockedNotBefore *time.Time
	LockedAt        time.Time

	Booking *model.Booking
}

var allowedEdges = map[model.SlotStatus][]model.SlotStatus{
	model.SlotAvailable: {model.SlotBooked, model.SlotLocked},
	model.SlotLocked:    {model.SlotBooked, model.SlotAvailable},
}

func (t Transition) Validate() error {
	if t.SlotID == "" {
		return fmt.Errorf("%w: missing slot id", bookingserrors.ErrInvalidTransition)
	}

	allowed := false
	for _, to := range allowedEdges[t.From] {
		if to == t.To {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", bookingserrors.ErrInvalidTransition, t.From, t.To)
	}

	if t.To == model.SlotLocked && (t.LockToken == "" || t.LockedAt.IsZero()) {
		return fmt.Errorf("%w: lock requires a token and timestamp", bookingserrors.ErrInvalidTransition)
	}
	if t.To == model.SlotBooked && t.Booking == nil {
		return fmt.Errorf("%w: booking required", bookingserrors.ErrInvalidTransition)
	}
	if t.Booking != nil && t.Booking.SlotID != t.SlotID {
		return fmt.Errorf("%w: booking references slot %s", bookingserrors.ErrInvalidTransition, t.Booking.SlotID)
	}
	return nil
}

// matches reports whether slot satisfies the transition precondition.
func (t Transition) matches(slot *model.Slot) bool {
	if slot.Status != t.From {
		return false
	}
	if t.From != model.SlotLocked {
		return true
	}
	if t.LockToken != "" && slot.LockToken != t.LockToken {
		return false
	}
	if slot.LockedAt == nil {
		return t.LockedBefore == nil && t.LockedNotBefore == nil
	}
	if t.LockedBefore != nil && !slot.LockedAt.Before(*t.LockedBefore) {
		return false
	}
	if t.LockedNotBefore != nil && slot.LockedAt.Before(*t.LockedNotBefore) {
		return false
	}
	return true
}

// apply mutates slot into its post-transition state.
func (t Transition) apply(slot *model.Slot) {
	slot.Status = t.To
	if t.To == model.SlotLocked {
		lockedAt := t.LockedAt
		slot.LockedAt = &lockedAt
		slot.LockToken = t.LockToken
		return
	}
	slot.LockedAt = nil
	slot.LockToken = ""
}

// Open returns the store selected by STORE_BACKEND, connecting to MongoDB
// when needed.
func Open(cfg *config.Config) Store {
	if cfg.UsesMemoryStore() {
		cfg.Log.Warn("Using in-memory store, data is lost on restart")
		return NewMemoryStore()
	}
	cfg.SetMongo()
	return NewMongoStore(cfg)
}
