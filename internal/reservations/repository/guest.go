package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reserrors "stayloft/internal/reservations/errors"
	"stayloft/pkg/config"
	"stayloft/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const GuestCollectionName = "Guests"

type GuestRepository interface {
	UpsertByEmail(ctx context.Context, guest *model.Guest) (*model.Guest, error)
	FindByID(ctx context.Context, id string) (*model.Guest, error)
}

type mongoGuestRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoGuestRepository(cfg *config.Config) GuestRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoGuestRepository{
		cfg:        cfg,
		collection: db.Collection(GuestCollectionName),
	}
}

// UpsertByEmail creates or refreshes the guest keyed by email, so
// repeat bookings from the same address never create duplicates. The
// unique index on email is the backstop against concurrent inserts.
func (r *mongoGuestRepository) UpsertByEmail(ctx context.Context, guest *model.Guest) (*model.Guest, error) {
	if _, ok := ctx.(mongo.SessionContext); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.WriteTimeout)
		defer cancel()
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	set := bson.M{
		"full_name":  guest.FullName,
		"updated_at": now,
	}
	if guest.Phone != "" {
		set["phone"] = guest.Phone
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var updated model.Guest
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"email": guest.Email}, update, opts).Decode(&updated)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert guest: %w", err)
	}

	return &updated, nil
}

func (r *mongoGuestRepository) FindByID(ctx context.Context, id string) (*model.Guest, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reserrors.ErrGuestNotFound, id)
	}

	var guest model.Guest
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&guest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reserrors.ErrGuestNotFound
		}
		return nil, fmt.Errorf("failed to find guest: %w", err)
	}

	return &guest, nil
}
