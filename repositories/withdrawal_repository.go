package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sooqna/sooqna_backend/models"
)

type WithdrawalRepository struct {
	collection *mongo.Collection
}

func NewWithdrawalRepository(db *mongo.Database) *WithdrawalRepository {
	return &WithdrawalRepository{collection: db.Collection("withdrawals")}
}

func (r *WithdrawalRepository) Insert(ctx context.Context, w *models.Withdrawal) error {
	result, err := r.collection.InsertOne(ctx, w)
	if err != nil {
		return err
	}
	w.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *WithdrawalRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&withdrawal)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string, update *models.Withdrawal) (bool, error) {
	set := bson.M{"status": to}
	if update != nil {
		if update.AdminID != nil {
			set["adminId"] = *update.AdminID
		}
		if update.AdminNote != "" {
			set["adminNote"] = update.AdminNote
		}
		if update.RejectionReason != "" {
			set["rejectionReason"] = update.RejectionReason
		}
		if update.ProcessedAt != nil {
			set["processedAt"] = *update.ProcessedAt
		}
	}

	filter := bson.M{"_id": id, "status": from}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (r *WithdrawalRepository) SumByUserAndStatuses(ctx context.Context, userID primitive.ObjectID, statuses []string) (int64, error) {
	pipeline := []bson.M{
		{"$match": bson.M{
			"userId": userID,
			"status": bson.M{"$in": statuses},
		}},
		{"$group": bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func (r *WithdrawalRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Withdrawal, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var withdrawals []models.Withdrawal
	if err := cursor.All(ctx, &withdrawals); err != nil {
		return nil, err
	}
	return withdrawals, nil
}
