package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	bookingserrors "slotbook/internal/bookings/errors"
	"slotbook/internal/bookings/repository"
	doctorserrors "slotbook/internal/doctors/errors"
	"slotbook/internal/doctors/validator"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/model"
	"slotbook/pkg/validation"

	"github.com/google/uuid"
)

// DoctorService manages the catalog of doctors and their slots. Slots are
// always created AVAILABLE; every later status change goes through the
// booking service.
type DoctorService interface {
	CreateDoctor(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error)
	ListDoctors(ctx context.Context) ([]model.DoctorSummary, error)
	CreateSlot(ctx context.Context, req *model.CreateSlotRequest) (*model.Slot, error)
	ListSlots(ctx context.Context, doctorID string) ([]model.Slot, error)
}

type doctorService struct {
	store     repository.Store
	validator *validator.DoctorValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewDoctorService(store repository.Store, validator *validator.DoctorValidator, cfg *config.Config) DoctorService {
	return &doctorService{
		store:     store,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *doctorService) CreateDoctor(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	validator.SanitizeDoctor(req)
	if err := s.validator.ValidateDoctor(req); err != nil {
		s.cfg.Log.Warn("Doctor validation failed", "error", err)
		return nil, validation.AsAppError(err, doctorserrors.ErrInvalidDoctor)
	}

	doctor := &model.Doctor{
		ID:             uuid.New().String(),
		Name:           req.Name,
		Specialization: req.Specialization,
		Bio:            req.Bio,
		CreatedAt:      s.timestamp(),
	}
	if err := s.store.CreateDoctor(ctx, doctor); err != nil {
		s.cfg.Log.Error("Failed to create doctor", "error", err)
		return nil, apperrors.Internal("Failed to create doctor", err)
	}

	s.cfg.Log.Info("Doctor created successfully",
		"id", doctor.ID,
		"specialization", doctor.Specialization,
	)
	return doctor, nil
}

func (s *doctorService) ListDoctors(ctx context.Context) ([]model.DoctorSummary, error) {
	doctors, err := s.store.ListDoctors(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list doctors", "error", err)
		return nil, apperrors.Internal("Failed to retrieve doctors", err)
	}
	return doctors, nil
}

// CreateSlot adds an AVAILABLE slot for an existing doctor. An unknown doctor
// is reported as a bad request.
func (s *doctorService) CreateSlot(ctx context.Context, req *model.CreateSlotRequest) (*model.Slot, error) {
	validator.SanitizeSlot(req)
	if err := s.validator.ValidateSlot(req); err != nil {
		s.cfg.Log.Warn("Slot validation failed", "error", err)
		return nil, validation.AsAppError(err, doctorserrors.ErrInvalidSlot)
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, apperrors.Validation("startTime must be an RFC3339 timestamp", map[string]any{"startTime": req.StartTime})
	}

	if _, err := s.store.FindDoctor(ctx, req.DoctorID); err != nil {
		if errors.Is(err, bookingserrors.ErrDoctorNotFound) {
			appErr := apperrors.NotFoundWithID("Doctor", req.DoctorID).WithStatus(http.StatusBadRequest)
			appErr.Err = bookingserrors.ErrDoctorNotFound
			return nil, appErr
		}
		s.cfg.Log.Error("Failed to check doctor existence", "doctor_id", req.DoctorID, "error", err)
		return nil, apperrors.Internal("Failed to check doctor existence", err)
	}

	slot := &model.Slot{
		ID:        uuid.New().String(),
		DoctorID:  req.DoctorID,
		StartTime: startTime.UTC().Truncate(time.Millisecond),
		Status:    model.SlotAvailable,
		CreatedAt: s.timestamp(),
	}
	if err := s.store.CreateSlot(ctx, slot); err != nil {
		s.cfg.Log.Error("Failed to create slot", "doctor_id", req.DoctorID, "error", err)
		return nil, apperrors.Internal("Failed to create slot", err)
	}

	s.cfg.Log.Info("Slot created successfully",
		"id", slot.ID,
		"doctor_id", slot.DoctorID,
		"start_time", slot.StartTime,
	)
	return slot, nil
}

// ListSlots returns the doctor's slots in start time order. An unknown doctor
// simply has none.
func (s *doctorService) ListSlots(ctx context.Context, doctorID string) ([]model.Slot, error) {
	if doctorID == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	slots, err := s.store.ListSlotsForDoctor(ctx, doctorID)
	if err != nil {
		s.cfg.Log.Error("Failed to list slots", "doctor_id", doctorID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve slots", err)
	}

	s.cfg.Log.Debug("Slot listing completed", "doctor_id", doctorID, "count", len(slots))
	return slots, nil
}

func (s *doctorService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}
