package repository

import (
	"context"
	"fmt"
	bookingserrors "slotbook/internal/bookings/errors"
	"slotbook/pkg/model"
	"sort"
	"sync"
	"time"
)

// memoryStore keeps everything in process. A single mutex serializes
// transitions, which gives the same exclusivity as the conditional update in
// the mongo store.
type memoryStore struct {
	mu            sync.RWMutex
	doctors       map[string]model.Doctor
	slots         map[string]model.Slot
	bookings      map[string]model.Booking
	bookingBySlot map[string]string
}

func NewMemoryStore() Store {
	return &memoryStore{
		doctors:       make(map[string]model.Doctor),
		slots:         make(map[string]model.Slot),
		bookings:      make(map[string]model.Booking),
		bookingBySlot: make(map[string]string),
	}
}

func (s *memoryStore) FetchSlot(ctx context.Context, id string) (*model.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[id]
	if !ok {
		return nil, bookingserrors.ErrSlotNotFound
	}
	return cloneSlot(slot), nil
}

func (s *memoryStore) Transition(ctx context.Context, t Transition) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[t.SlotID]
	if !ok || !t.matches(&slot) {
		return bookingserrors.ErrConflict
	}

	if t.To == model.SlotBooked {
		if _, exists := s.bookingBySlot[t.SlotID]; exists {
			return bookingserrors.ErrConflict
		}
		if _, exists := s.bookings[t.Booking.ID]; exists {
			return fmt.Errorf("%w: booking id %s", bookingserrors.ErrDuplicateBooking, t.Booking.ID)
		}
		s.bookings[t.Booking.ID] = *t.Booking
		s.bookingBySlot[t.SlotID] = t.Booking.ID
	}

	t.apply(&slot)
	s.slots[t.SlotID] = slot
	return nil
}

func (s *memoryStore) CreateDoctor(ctx context.Context, doctor *model.Doctor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.doctors[doctor.ID]; exists {
		return fmt.Errorf("failed to create doctor: duplicate id %s", doctor.ID)
	}
	s.doctors[doctor.ID] = *doctor
	return nil
}

func (s *memoryStore) FindDoctor(ctx context.Context, id string) (*model.Doctor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doctor, ok := s.doctors[id]
	if !ok {
		return nil, bookingserrors.ErrDoctorNotFound
	}
	return &doctor, nil
}

func (s *memoryStore) ListDoctors(ctx context.Context) ([]model.DoctorSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	available := make(map[string]int)
	for _, slot := range s.slots {
		if slot.Status == model.SlotAvailable {
			available[slot.DoctorID]++
		}
	}

	doctors := make([]model.DoctorSummary, 0, len(s.doctors))
	for _, d := range s.doctors {
		doctors = append(doctors, model.DoctorSummary{Doctor: d, AvailableSlots: available[d.ID]})
	}
	sort.Slice(doctors, func(i, j int) bool {
		if doctors[i].Name != doctors[j].Name {
			return doctors[i].Name < doctors[j].Name
		}
		return doctors[i].ID < doctors[j].ID
	})
	return doctors, nil
}

func (s *memoryStore) CreateSlot(ctx context.Context, slot *model.Slot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.slots[slot.ID]; exists {
		return fmt.Errorf("failed to create slot: duplicate id %s", slot.ID)
	}
	s.slots[slot.ID] = *cloneSlot(*slot)
	return nil
}

func (s *memoryStore) ListSlotsForDoctor(ctx context.Context, doctorID string) ([]model.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := []model.Slot{}
	for _, slot := range s.slots {
		if slot.DoctorID == doctorID {
			slots = append(slots, *cloneSlot(slot))
		}
	}
	sortSlots(slots, func(s model.Slot) time.Time { return s.StartTime })
	return slots, nil
}

func (s *memoryStore) FindStaleLocks(ctx context.Context, cutoff time.Time, limit int) ([]model.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []model.Slot
	for _, slot := range s.slots {
		if slot.Status == model.SlotLocked && slot.LockedAt != nil && slot.LockedAt.Before(cutoff) {
			stale = append(stale, *cloneSlot(slot))
		}
	}
	sortSlots(stale, func(s model.Slot) time.Time { return *s.LockedAt })

	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (s *memoryStore) FindBooking(ctx context.Context, id string) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrBookingNotFound
	}
	return &booking, nil
}

func (s *memoryStore) FindBookingBySlot(ctx context.Context, slotID string) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bookingBySlot[slotID]
	if !ok {
		return nil, bookingserrors.ErrBookingNotFound
	}
	booking := s.bookings[id]
	return &booking, nil
}

func (s *memoryStore) CountBookingsForSlot(ctx context.Context, slotID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, b := range s.bookings {
		if b.SlotID == slotID {
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func cloneSlot(slot model.Slot) *model.Slot {
	if slot.LockedAt != nil {
		lockedAt := *slot.LockedAt
		slot.LockedAt = &lockedAt
	}
	return &slot
}

func sortSlots(slots []model.Slot, key func(model.Slot) time.Time) {
	sort.Slice(slots, func(i, j int) bool {
		ki, kj := key(slots[i]), key(slots[j])
		if !ki.Equal(kj) {
			return ki.Before(kj)
		}
		return slots[i].ID < slots[j].ID
	})
}
