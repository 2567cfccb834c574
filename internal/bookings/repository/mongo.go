package repository

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "slotbook/internal/bookings/errors"
	"slotbook/pkg/config"
	mongotx "slotbook/pkg/db/mongo"
	"slotbook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mongoStore struct {
	cfg       *config.Config
	db        *mongo.Database
	doctors   *mongo.Collection
	slots     *mongo.Collection
	bookings  *mongo.Collection
	txManager mongotx.TransactionManager
}

func NewMongoStore(cfg *config.Config) Store {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoStore{
		cfg:       cfg,
		db:        db,
		doctors:   db.Collection(DoctorsCollection),
		slots:     db.Collection(SlotsCollection),
		bookings:  db.Collection(BookingsCollection),
		txManager: mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext is returned unchanged with a no-op cancel, since wrapping it
// would detach the operation from the transaction.
func (s *mongoStore) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}

	return context.WithTimeout(ctx, timeout)
}

func (s *mongoStore) FetchSlot(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var slot model.Slot
	err := s.slots.FindOne(ctx, bson.M{"_id": id}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

func transitionFilter(t Transition) bson.D {
	filter := bson.D{
		{Key: "_id", Value: t.SlotID},
		{Key: "status", Value: t.From},
	}
	if t.From != model.SlotLocked {
		return filter
	}

	if t.LockToken != "" {
		filter = append(filter, bson.E{Key: "lock_token", Value: t.LockToken})
	}

	var lockedAt bson.D
	if t.LockedBefore != nil {
		lockedAt = append(lockedAt, bson.E{Key: "$lt", Value: *t.LockedBefore})
	}
	if t.LockedNotBefore != nil {
		lockedAt = append(lockedAt, bson.E{Key: "$gte", Value: *t.LockedNotBefore})
	}
	if len(lockedAt) > 0 {
		filter = append(filter, bson.E{Key: "locked_at", Value: lockedAt})
	}
	return filter
}

func transitionUpdate(t Transition) bson.D {
	if t.To == model.SlotLocked {
		return bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: t.To},
			{Key: "locked_at", Value: t.LockedAt},
			{Key: "lock_token", Value: t.LockToken},
		}}}
	}

	return bson.D{
		{Key: "$set", Value: bson.D{{Key: "status", Value: t.To}}},
		{Key: "$unset", Value: bson.D{
			{Key: "locked_at", Value: ""},
			{Key: "lock_token", Value: ""},
		}},
	}
}

// Transition applies a conditional update on the slot document. Moves that
// create a booking run the update and the insert in one transaction; a lost
// race shows up as zero matched documents or a duplicate slot_id key.
func (s *mongoStore) Transition(ctx context.Context, t Transition) error {
	if err := t.Validate(); err != nil {
		return err
	}

	filter := transitionFilter(t)
	update := transitionUpdate(t)

	if t.To != model.SlotBooked {
		ctx, cancel := s.withTimeout(ctx, s.cfg.WriteTimeout)
		defer cancel()

		result, err := s.slots.UpdateOne(ctx, filter, update)
		if err != nil {
			return fmt.Errorf("failed to update slot: %w", err)
		}
		if result.MatchedCount == 0 {
			return bookingserrors.ErrConflict
		}
		return nil
	}

	ctx, cancel := s.withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	return s.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		result, err := s.slots.UpdateOne(sessCtx, filter, update)
		if err != nil {
			return fmt.Errorf("failed to update slot: %w", err)
		}
		if result.MatchedCount == 0 {
			return bookingserrors.ErrConflict
		}

		if _, err := s.bookings.InsertOne(sessCtx, t.Booking); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return bookingserrors.ErrConflict
			}
			return fmt.Errorf("failed to insert booking: %w", err)
		}
		return nil
	})
}

func (s *mongoStore) CreateDoctor(ctx context.Context, doctor *model.Doctor) error {
	ctx, cancel := s.withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	if _, err := s.doctors.InsertOne(ctx, doctor); err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (s *mongoStore) FindDoctor(ctx context.Context, id string) (*model.Doctor, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var doctor model.Doctor
	err := s.doctors.FindOne(ctx, bson.M{"_id": id}).Decode(&doctor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("failed to find doctor: %w", err)
	}
	return &doctor, nil
}

// ListDoctors returns every doctor ordered by name, each with a count of its
// AVAILABLE slots.
func (s *mongoStore) ListDoctors(ctx context.Context) ([]model.DoctorSummary, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: SlotsCollection},
			{Key: "let", Value: bson.D{{Key: "doctorId", Value: "$_id"}}},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$and", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$doctor_id", "$$doctorId"}}},
					bson.D{{Key: "$eq", Value: bson.A{"$status", string(model.SlotAvailable)}}},
				}}}}}}},
				bson.D{{Key: "$count", Value: "n"}},
			}},
			{Key: "as", Value: "available"},
		}}},
		{{Key: "$addFields", Value: bson.D{{Key: "available_slots", Value: bson.D{{Key: "$ifNull", Value: bson.A{
			bson.D{{Key: "$arrayElemAt", Value: bson.A{"$available.n", 0}}},
			0,
		}}}}}}},
		{{Key: "$project", Value: bson.D{{Key: "available", Value: 0}}}},
		{{Key: "$sort", Value: bson.D{{Key: "name", Value: 1}}}},
	}

	cursor, err := s.doctors.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	defer cursor.Close(ctx)

	doctors := []model.DoctorSummary{}
	if err := cursor.All(ctx, &doctors); err != nil {
		return nil, fmt.Errorf("failed to decode doctors: %w", err)
	}
	return doctors, nil
}

func (s *mongoStore) CreateSlot(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := s.withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	if _, err := s.slots.InsertOne(ctx, slot); err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

func (s *mongoStore) ListSlotsForDoctor(ctx context.Context, doctorID string) ([]model.Slot, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.slots.Find(ctx, bson.M{"doctor_id": doctorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := []model.Slot{}
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return slots, nil
}

func (s *mongoStore) FindStaleLocks(ctx context.Context, cutoff time.Time, limit int) ([]model.Slot, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	filter := bson.D{
		{Key: "status", Value: model.SlotLocked},
		{Key: "locked_at", Value: bson.D{{Key: "$lt", Value: cutoff}}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "locked_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.slots.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale locks: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []model.Slot
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode stale locks: %w", err)
	}
	return slots, nil
}

func (s *mongoStore) FindBooking(ctx context.Context, id string) (*model.Booking, error) {
	return s.findBooking(ctx, bson.M{"_id": id})
}

func (s *mongoStore) FindBookingBySlot(ctx context.Context, slotID string) (*model.Booking, error) {
	return s.findBooking(ctx, bson.M{"slot_id": slotID})
}

func (s *mongoStore) findBooking(ctx context.Context, filter bson.M) (*model.Booking, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := s.bookings.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (s *mongoStore) CountBookingsForSlot(ctx context.Context, slotID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	count, err := s.bookings.CountDocuments(ctx, bson.M{"slot_id": slotID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	if err := s.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping mongo: %w", err)
	}
	return nil
}
