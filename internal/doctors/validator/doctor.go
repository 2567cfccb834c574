package validator

import (
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"slotbook/pkg/sanitizer"
	"slotbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type DoctorValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewDoctorValidator(log *logger.Logger) *DoctorValidator {
	log.Info("Doctor validator initialized successfully")

	return &DoctorValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func SanitizeDoctor(req *model.CreateDoctorRequest) {
	req.Name = sanitizer.NormalizeName(req.Name)
	req.Specialization = sanitizer.NormalizeText(req.Specialization)
	req.Bio = sanitizer.NormalizeText(req.Bio)
}

func SanitizeSlot(req *model.CreateSlotRequest) {
	req.DoctorID = sanitizer.NormalizeID(req.DoctorID)
	req.StartTime = sanitizer.NormalizeTimestamp(req.StartTime)
}

func (v *DoctorValidator) ValidateDoctor(req *model.CreateDoctorRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *DoctorValidator) ValidateSlot(req *model.CreateSlotRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *DoctorValidator) ValidateDoctorID(id string) error {
	return validation.Struct(v.validate, &struct {
		DoctorID string `json:"doctorId" validate:"required,uuid"`
	}{DoctorID: id})
}
