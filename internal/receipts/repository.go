package receipts

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrDuplicateReceipt = errors.New("receipt for this order already exists")

// ReceiptRepository is the read-side receipt store fed by the consumer.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *domain.Receipt) error
	ListByUser(ctx context.Context, tagID string) ([]*domain.Receipt, error)
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) ReceiptRepository {
	return &mongoRepository{
		collection: db.Collection("receipts"),
	}
}

// Create inserts a receipt keyed by order id, so redelivered events
// collide on the key instead of duplicating.
func (m mongoRepository) Create(ctx context.Context, receipt *domain.Receipt) error {
	_, err := m.collection.InsertOne(ctx, receipt)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateReceipt
		}
		return fmt.Errorf("failed to insert receipt: %w", err)
	}
	return nil
}

func (m mongoRepository) ListByUser(ctx context.Context, tagID string) ([]*domain.Receipt, error) {
	filter := bson.M{"user_id": tagID}
	opts := options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}})

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*domain.Receipt
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to decode receipts: %w", err)
	}
	return result, nil
}
