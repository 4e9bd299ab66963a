package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sooqna/sooqna_backend/models"
)

type AgentRequestRepository struct {
	collection *mongo.Collection
}

func NewAgentRequestRepository(db *mongo.Database) *AgentRequestRepository {
	return &AgentRequestRepository{collection: db.Collection("agentRequests")}
}

// LatestApprovedByAgent returns the agent's most recently approved request.
// When several approved requests exist for the same agent, the newest
// processedAt wins, so resolution stays deterministic.
func (r *AgentRequestRepository) LatestApprovedByAgent(ctx context.Context, agentID primitive.ObjectID) (*models.AgentRequest, error) {
	filter := bson.M{
		"agentId": agentID,
		"status":  models.AgentRequestStatusApproved,
	}
	opts := options.FindOne().SetSort(bson.D{
		{Key: "processedAt", Value: -1},
		{Key: "requestedAt", Value: -1},
	})

	var req models.AgentRequest
	err := r.collection.FindOne(ctx, filter, opts).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}
