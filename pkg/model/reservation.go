package model

import "time"

// Reservation is a temporary hold on a slot. It must be confirmed with the
// same HoldToken before ExpiresAt or the slot is returned to AVAILABLE.
type Reservation struct {
	SlotID    string    `json:"slotId"`
	HoldToken string    `json:"holdToken"`
	LockedAt  time.Time `json:"lockedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
