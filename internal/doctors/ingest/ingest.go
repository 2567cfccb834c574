// Package ingest creates slots from commands published on the slot
// commands topic, so bulk schedule imports do not go through the admin API.
package ingest

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "slotbook/internal/bookings/errors"
	doctorserrors "slotbook/internal/doctors/errors"
	"slotbook/internal/doctors/service"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/kafka"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
)

const EventCreateSlot = "slot.create"

type SlotIngest struct {
	service service.DoctorService
	log     *logger.Logger
}

func NewSlotIngest(service service.DoctorService, log *logger.Logger) *SlotIngest {
	return &SlotIngest{
		service: service,
		log:     log,
	}
}

// Handle is a kafka.MessageHandler. Bad commands come back as permanent
// errors and are dead-lettered; store failures are transient and retried by
// the consumer.
func (i *SlotIngest) Handle(ctx context.Context, msg kafka.Message) error {
	if eventType := msg.GetEventType(); eventType != EventCreateSlot {
		return kafka.NewPermanentError(fmt.Sprintf("event type %q", eventType), doctorserrors.ErrUnknownCommand)
	}

	var req model.CreateSlotRequest
	if err := msg.DecodeValue(&req); err != nil {
		return kafka.NewPermanentError("failed to decode slot command", err)
	}

	slot, err := i.service.CreateSlot(ctx, &req)
	if err != nil {
		if rejected(err) {
			return kafka.NewPermanentError("slot command rejected", err)
		}
		return kafka.NewTransientError("failed to create slot", err)
	}

	i.log.Info("Slot ingested",
		"slot_id", slot.ID,
		"doctor_id", slot.DoctorID,
		"correlation_id", msg.GetCorrelationID(),
	)
	return nil
}

func rejected(err error) bool {
	return errors.Is(err, doctorserrors.ErrInvalidSlot) ||
		errors.Is(err, bookingserrors.ErrDoctorNotFound) ||
		apperrors.HasCode(err, apperrors.CodeValidation)
}
