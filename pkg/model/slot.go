package model

import "time"

type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotLocked    SlotStatus = "LOCKED"
	SlotBooked    SlotStatus = "BOOKED"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotAvailable, SlotLocked, SlotBooked:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves this status.
func (s SlotStatus) Terminal() bool {
	return s == SlotBooked
}

// Slot is one bookable time window of one doctor. LockedAt and LockToken are
// set only while the slot is LOCKED.
type Slot struct {
	ID        string     `json:"id" bson:"_id"`
	DoctorID  string     `json:"doctorId" bson:"doctor_id"`
	StartTime time.Time  `json:"startTime" bson:"start_time"`
	Status    SlotStatus `json:"status" bson:"status"`
	LockedAt  *time.Time `json:"lockedAt,omitempty" bson:"locked_at,omitempty"`
	LockToken string     `json:"-" bson:"lock_token,omitempty"`
	CreatedAt time.Time  `json:"createdAt" bson:"created_at"`
}

// Consistent checks the lock fields against the status.
func (s *Slot) Consistent() bool {
	if !s.Status.Valid() {
		return false
	}
	locked := s.Status == SlotLocked
	return locked == (s.LockedAt != nil) && locked == (s.LockToken != "")
}

type CreateSlotRequest struct {
	DoctorID  string `json:"doctorId" validate:"required,uuid"`
	StartTime string `json:"startTime" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}
