package model

import "time"

const BookingConfirmed = "CONFIRMED"

// Booking records a successful claim. At most one exists per slot.
type Booking struct {
	ID           string    `json:"id" bson:"_id"`
	SlotID       string    `json:"slotId" bson:"slot_id"`
	PatientName  string    `json:"patientName" bson:"patient_name"`
	PatientEmail string    `json:"patientEmail,omitempty" bson:"patient_email,omitempty"`
	Status       string    `json:"status" bson:"status"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

type ClaimRequest struct {
	SlotID       string `json:"slotId" validate:"required,uuid"`
	PatientName  string `json:"patientName" validate:"required,min=2,max=100"`
	PatientEmail string `json:"patientEmail,omitempty" validate:"omitempty,email,max=254"`
}

type ConfirmRequest struct {
	SlotID       string `json:"slotId" validate:"required,uuid"`
	HoldToken    string `json:"holdToken" validate:"required,uuid"`
	PatientName  string `json:"patientName" validate:"required,min=2,max=100"`
	PatientEmail string `json:"patientEmail,omitempty" validate:"omitempty,email,max=254"`
}

// ClaimResponse is the body of a successful POST /book.
type ClaimResponse struct {
	Success bool     `json:"success"`
	Booking *Booking `json:"booking"`
}
