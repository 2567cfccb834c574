package errors

import "errors"

var (
	ErrSlotNotFound = errors.New("slot not found")

	ErrBookingNotFound = errors.New("booking not found")

	ErrDoctorNotFound = errors.New("doctor not found")

	ErrInvalidClaim = errors.New("invalid claim")

	// ErrConflict is returned by the store when a transition precondition did
	// not hold. Nothing was written.
	ErrConflict = errors.New("slot transition conflict")

	ErrAlreadyClaimed = errors.New("slot is already booked")

	ErrHoldMismatch = errors.New("hold token does not match")

	ErrHoldExpired = errors.New("hold has expired")

	ErrStoreUnavailable = errors.New("slot store unavailable")

	ErrDuplicateBooking = errors.New("slot already has a booking")
)

// ErrInvalidTransition marks a transition request outside the slot state
// machine, such as any edge leaving BOOKED.
var ErrInvalidTransition = errors.New("invalid slot transition")
