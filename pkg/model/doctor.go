package model

import "time"

type Doctor struct {
	ID             string    `json:"id" bson:"_id"`
	Name           string    `json:"name" bson:"name"`
	Specialization string    `json:"specialization" bson:"specialization"`
	Bio            string    `json:"bio,omitempty" bson:"bio,omitempty"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
}

// DoctorSummary is a doctor as listed publicly, with the number of slots
// still open for booking.
type DoctorSummary struct {
	Doctor         `bson:",inline"`
	AvailableSlots int `json:"availableSlots" bson:"available_slots"`
}

type CreateDoctorRequest struct {
	Name           string `json:"name" validate:"required,min=2,max=100"`
	Specialization string `json:"specialization" validate:"required,min=2,max=100"`
	Bio            string `json:"bio,omitempty" validate:"omitempty,max=500"`
}
