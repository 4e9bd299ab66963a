package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sooqna/sooqna_backend/models"
)

// CommissionRepository is the Mongo-backed commission store. The unique
// paymentId index created at startup is what serializes concurrent inserts
// for the same payment.
type CommissionRepository struct {
	collection *mongo.Collection
}

func NewCommissionRepository(db *mongo.Database) *CommissionRepository {
	return &CommissionRepository{collection: db.Collection("commissions")}
}

func (r *CommissionRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Commission, error) {
	var commission models.Commission
	err := r.collection.FindOne(ctx, bson.M{"paymentId": paymentID}).Decode(&commission)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *CommissionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	var commission models.Commission
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&commission)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *CommissionRepository) Insert(ctx context.Context, c *models.Commission) error {
	result, err := r.collection.InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("commission for payment %s already exists: %w", c.PaymentID, models.ErrPersistenceConflict)
	}
	if err != nil {
		return err
	}
	c.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *CommissionRepository) ReplacePending(ctx context.Context, id primitive.ObjectID, c *models.Commission) (bool, error) {
	filter := bson.M{"_id": id, "status": models.CommissionStatusPending}
	update := bson.M{
		"$set": bson.M{
			"agentId":         c.AgentID,
			"operatorId":      c.OperatorID,
			"agentAmount":     c.AgentAmount,
			"operatorAmount":  c.OperatorAmount,
			"companyAmount":   c.CompanyAmount,
			"totalAmount":     c.TotalAmount,
			"agentPercent":    c.AgentPercent,
			"operatorPercent": c.OperatorPercent,
			"updatedAt":       c.UpdatedAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (r *CommissionRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from []string, to string) (bool, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"status": to}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (r *CommissionRepository) FindByBeneficiary(ctx context.Context, userID primitive.ObjectID, statuses []string) ([]models.Commission, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"agentId": userID},
			{"operatorId": userID},
		},
	}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var commissions []models.Commission
	if err := cursor.All(ctx, &commissions); err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *CommissionRepository) SumPendingByBeneficiary(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	pipeline := []bson.M{
		{"$match": bson.M{
			"status": models.CommissionStatusPending,
			"$or": []bson.M{
				{"agentId": userID},
				{"operatorId": userID},
			},
		}},
		{"$group": bson.M{
			"_id": nil,
			"total": bson.M{"$sum": bson.M{"$add": []interface{}{
				bson.M{"$cond": []interface{}{bson.M{"$eq": []interface{}{"$agentId", userID}}, "$agentAmount", 0}},
				bson.M{"$cond": []interface{}{bson.M{"$eq": []interface{}{"$operatorId", userID}}, "$operatorAmount", 0}},
			}}},
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

// Breakdown aggregates commission totals for a dashboard dimension
// ("shopId", "agentId" or "operatorId") over an optional date range on the
// payment date.
func (r *CommissionRepository) Breakdown(ctx context.Context, field string, id primitive.ObjectID, from, to *primitive.DateTime) (*models.CommissionBreakdown, error) {
	match := bson.M{field: id}
	if from != nil || to != nil {
		dateRange := bson.M{}
		if from != nil {
			dateRange["$gte"] = *from
		}
		if to != nil {
			dateRange["$lte"] = *to
		}
		match["paidAt"] = dateRange
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":            nil,
			"count":          bson.M{"$sum": 1},
			"totalAmount":    bson.M{"$sum": "$totalAmount"},
			"agentAmount":    bson.M{"$sum": "$agentAmount"},
			"operatorAmount": bson.M{"$sum": "$operatorAmount"},
			"companyAmount":  bson.M{"$sum": "$companyAmount"},
		}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []models.CommissionBreakdown
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &models.CommissionBreakdown{}, nil
	}
	return &results[0], nil
}

// ListByField returns the raw commission records behind a breakdown,
// newest payment first.
func (r *CommissionRepository) ListByField(ctx context.Context, field string, id primitive.ObjectID, from, to *primitive.DateTime) ([]models.Commission, error) {
	filter := bson.M{field: id}
	if from != nil || to != nil {
		dateRange := bson.M{}
		if from != nil {
			dateRange["$gte"] = *from
		}
		if to != nil {
			dateRange["$lte"] = *to
		}
		filter["paidAt"] = dateRange
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "paidAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var commissions []models.Commission
	if err := cursor.All(ctx, &commissions); err != nil {
		return nil, err
	}
	return commissions, nil
}
