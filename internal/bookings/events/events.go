package events

import (
	"context"
	"fmt"
	"time"

	"slotbook/pkg/kafka"
	"slotbook/pkg/middleware"
	"slotbook/pkg/model"
)

const (
	EventBookingConfirmed = "booking.confirmed"
	EventSlotReleased     = "slot.released"

	SchemaVersion = "1"
)

// Reasons a held slot went back to AVAILABLE.
const (
	ReasonReleased = "released"
	ReasonExpired  = "expired"
)

type BookingConfirmed struct {
	BookingID    string    `json:"bookingId"`
	SlotID       string    `json:"slotId"`
	PatientName  string    `json:"patientName"`
	PatientEmail string    `json:"patientEmail,omitempty"`
	ConfirmedAt  time.Time `json:"confirmedAt"`
}

type SlotReleased struct {
	SlotID     string    `json:"slotId"`
	Reason     string    `json:"reason"`
	ReleasedAt time.Time `json:"releasedAt"`
}

// Publisher announces slot lifecycle changes after they commit. Delivery is
// best effort: a failed publish never undoes a committed transition.
type Publisher interface {
	BookingConfirmed(ctx context.Context, booking *model.Booking) error
	SlotReleased(ctx context.Context, slotID, reason string, at time.Time) error
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaPublisher struct {
	producer messagePublisher
	source   string
}

func NewKafkaPublisher(producer messagePublisher, source string) Publisher {
	return &kafkaPublisher{producer: producer, source: source}
}

func (p *kafkaPublisher) BookingConfirmed(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, booking.SlotID, EventBookingConfirmed, BookingConfirmed{
		BookingID:    booking.ID,
		SlotID:       booking.SlotID,
		PatientName:  booking.PatientName,
		PatientEmail: booking.PatientEmail,
		ConfirmedAt:  booking.CreatedAt,
	}, booking.CreatedAt)
}

func (p *kafkaPublisher) SlotReleased(ctx context.Context, slotID, reason string, at time.Time) error {
	return p.publish(ctx, slotID, EventSlotReleased, SlotReleased{
		SlotID:     slotID,
		Reason:     reason,
		ReleasedAt: at,
	}, at)
}

// publish keys every event by slot id so one slot's history stays ordered
// within a partition.
func (p *kafkaPublisher) publish(ctx context.Context, slotID, eventType string, payload any, at time.Time) error {
	msg, err := kafka.NewMessage().
		WithKey(slotID).
		WithValue(payload).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		WithTimestamp(at).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", eventType, err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

type nopPublisher struct{}

// NopPublisher drops every event. Used when EVENTS_ENABLED is false.
func NopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) BookingConfirmed(context.Context, *model.Booking) error { return nil }

func (nopPublisher) SlotReleased(context.Context, string, string, time.Time) error { return nil }
