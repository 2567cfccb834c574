package validator

import (
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"slotbook/pkg/sanitizer"
	"slotbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: validation.New(),
		logger:   log,
	}
}

// SanitizeClaim normalizes a claim in place.
func SanitizeClaim(req *model.ClaimRequest) {
	req.SlotID = sanitizer.NormalizeID(req.SlotID)
	req.PatientName = sanitizer.NormalizeName(req.PatientName)
	req.PatientEmail = sanitizer.NormalizeEmail(req.PatientEmail)
}

func SanitizeConfirm(req *model.ConfirmRequest) {
	req.SlotID = sanitizer.NormalizeID(req.SlotID)
	req.HoldToken = sanitizer.NormalizeID(req.HoldToken)
	req.PatientName = sanitizer.NormalizeName(req.PatientName)
	req.PatientEmail = sanitizer.NormalizeEmail(req.PatientEmail)
}

func (v *BookingValidator) ValidateClaim(req *model.ClaimRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *BookingValidator) ValidateConfirm(req *model.ConfirmRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *BookingValidator) ValidateSlotID(slotID string) error {
	return validation.Struct(v.validate, &struct {
		SlotID string `json:"slotId" validate:"required,uuid"`
	}{SlotID: slotID})
}

func (v *BookingValidator) ValidateHold(slotID, holdToken string) error {
	return validation.Struct(v.validate, &struct {
		SlotID    string `json:"slotId" validate:"required,uuid"`
		HoldToken string `json:"holdToken" validate:"required,uuid"`
	}{SlotID: slotID, HoldToken: holdToken})
}
