package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sooqna/sooqna_backend/models"
)

type ShopRepository struct {
	collection *mongo.Collection
}

func NewShopRepository(db *mongo.Database) *ShopRepository {
	return &ShopRepository{collection: db.Collection("shops")}
}

func (r *ShopRepository) GetShop(ctx context.Context, id primitive.ObjectID) (*models.Shop, error) {
	var shop models.Shop
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&shop)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

// FixRelationships sets or clears the shop's denormalized agent/operator
// attribution. This is the Shop collaborator's write, exposed for the admin
// fix workflow; it is expected to be followed by a resync.
func (r *ShopRepository) FixRelationships(ctx context.Context, id primitive.ObjectID, agentID, operatorID *primitive.ObjectID, setAgent, setOperator bool) error {
	set := bson.M{"updatedAt": time.Now()}
	unset := bson.M{}

	if setAgent {
		if agentID != nil {
			set["agentId"] = *agentID
		} else {
			unset["agentId"] = ""
		}
	}
	if setOperator {
		if operatorID != nil {
			set["operatorId"] = *operatorID
		} else {
			unset["operatorId"] = ""
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
