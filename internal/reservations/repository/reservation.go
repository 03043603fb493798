package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reserrors "stayloft/internal/reservations/errors"
	"stayloft/pkg/config"
	mongotx "stayloft/pkg/db/mongo"
	"stayloft/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Reservations"
)

type mongoReservationRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type ReservationRepository interface {
	Create(ctx context.Context, res *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindByCheckoutSessionID(ctx context.Context, sessionID string) (*model.Reservation, error)
	FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Reservation, error)
	Count(ctx context.Context, status string) (int64, error)
	FindOverlapping(ctx context.Context, roomID string, checkIn, checkOut time.Time, statuses []string) ([]*model.Reservation, error)
	Update(ctx context.Context, id string, version int64, updates *model.ReservationUpdate) (*model.Reservation, error)
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoReservationRepository) Create(ctx context.Context, res *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, res)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		res.ID = oid.Hex()
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reserrors.ErrInvalidID, id)
	}

	var res model.Reservation
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	return &res, nil
}

func (r *mongoReservationRepository) FindByCheckoutSessionID(ctx context.Context, sessionID string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var res model.Reservation
	err := r.collection.FindOne(ctx, bson.M{"checkout_session_id": sessionID}).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation by checkout session: %w", err)
	}

	return &res, nil
}

func (r *mongoReservationRepository) FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "check_in", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) Count(ctx context.Context, status string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	return count, nil
}

// FindOverlapping returns reservations on the room whose half-open
// stay window intersects [checkIn, checkOut) and whose status is in
// the given set. Two half-open windows intersect exactly when each
// starts before the other ends.
func (r *mongoReservationRepository) FindOverlapping(ctx context.Context, roomID string, checkIn, checkOut time.Time, statuses []string) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"room_id":   roomID,
		"status":    bson.M{"$in": statuses},
		"check_in":  bson.M{"$lt": checkOut},
		"check_out": bson.M{"$gt": checkIn},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode overlapping reservations: %w", err)
	}

	return reservations, nil
}

// Update applies the partial update if and only if the stored version
// still matches; a mismatch reports ErrVersionConflict so the caller
// can reload and re-check its guard instead of blindly overwriting a
// concurrent transition.
func (r *mongoReservationRepository) Update(ctx context.Context, id string, version int64, updates *model.ReservationUpdate) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reserrors.ErrInvalidID, id)
	}

	set := bson.M{}
	if updates.Status != nil {
		set["status"] = *updates.Status
	}
	if updates.PaymentStatus != nil {
		set["payment_status"] = *updates.PaymentStatus
	}
	if updates.CheckoutSessionID != nil {
		set["checkout_session_id"] = *updates.CheckoutSessionID
	}
	if updates.PaymentIntentID != nil {
		set["payment_intent_id"] = *updates.PaymentIntentID
	}
	if updates.PaymentMethod != nil {
		set["payment_method"] = *updates.PaymentMethod
	}
	if updates.PaymentApprovedAt != nil {
		set["payment_approved_at"] = *updates.PaymentApprovedAt
	}
	if updates.Notes != nil {
		set["notes"] = *updates.Notes
	}

	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}
	if updates.ClearApprovedAt {
		delete(set, "payment_approved_at")
		update["$unset"] = bson.M{"payment_approved_at": ""}
	}
	if len(set) == 0 {
		delete(update, "$set")
	}

	filter := bson.M{"_id": objectID, "version": version}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Reservation
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}

	// Distinguish a missing document from a version mismatch.
	count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
	if countErr != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", countErr)
	}
	if count == 0 {
		return nil, reserrors.ErrNotFound
	}
	return nil, reserrors.ErrVersionConflict
}

func (r *mongoReservationRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	if result.DeletedCount == 0 {
		return reserrors.ErrNotFound
	}

	return nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
