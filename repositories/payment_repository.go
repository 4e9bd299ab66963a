package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sooqna/sooqna_backend/models"
)

// PaymentRepository reads the payments collection. Payments are written by
// the payment gateway collaborator; the only write here is the idempotent
// recording of a success event.
type PaymentRepository struct {
	collection *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{collection: db.Collection("payments")}
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.collection.FindOne(ctx, bson.M{"paymentId": paymentID}).Decode(&payment)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// RecordSuccess upserts the payment keyed by its gateway paymentId. Amount
// and paidAt are only written on insert: a successful payment is immutable,
// so a replayed webhook never rewrites it.
func (r *PaymentRepository) RecordSuccess(ctx context.Context, p models.Payment) error {
	filter := bson.M{"paymentId": p.PaymentID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"paymentId": p.PaymentID,
			"shopId":    p.ShopID,
			"amount":    p.Amount,
			"status":    models.PaymentStatusSuccess,
			"paidAt":    p.PaidAt,
			"createdAt": time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// ForEachSuccess streams successful payments most recent first through fn.
func (r *PaymentRepository) ForEachSuccess(ctx context.Context, fn func(models.Payment) error) error {
	cursor, err := r.collection.Find(ctx,
		bson.M{"status": models.PaymentStatusSuccess},
		options.Find().SetSort(bson.D{{Key: "paidAt", Value: -1}}),
	)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var payment models.Payment
		if err := cursor.Decode(&payment); err != nil {
			return err
		}
		if err := fn(payment); err != nil {
			return err
		}
	}
	return cursor.Err()
}
