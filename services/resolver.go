// services/resolver.go
package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sooqna/sooqna_backend/models"
)

// ShopStore loads shop documents for the resolver.
type ShopStore interface {
	// GetShop returns the shop, or (nil, nil) when no such shop exists.
	GetShop(ctx context.Context, id primitive.ObjectID) (*models.Shop, error)
}

// AgentRequestStore looks up supervisory links between operators and agents.
type AgentRequestStore interface {
	// LatestApprovedByAgent returns the most recently approved request for
	// the agent, or (nil, nil) when the agent has no approved request.
	LatestApprovedByAgent(ctx context.Context, agentID primitive.ObjectID) (*models.AgentRequest, error)
}

// RelationshipResolver determines the effective agent and operator
// responsible for a shop at reconciliation time. It is a pure read; it
// never fabricates a relationship.
type RelationshipResolver struct {
	shops    ShopStore
	requests AgentRequestStore
}

func NewRelationshipResolver(shops ShopStore, requests AgentRequestStore) *RelationshipResolver {
	return &RelationshipResolver{shops: shops, requests: requests}
}

// Resolve loads the shop and returns its effective (agentID, operatorID).
// The agent is always the shop's stored agentId. An explicit operatorId on
// the shop wins; otherwise the operator comes from the agent's most
// recently approved agent request, if any.
func (r *RelationshipResolver) Resolve(ctx context.Context, shopID primitive.ObjectID) (agentID, operatorID *primitive.ObjectID, err error) {
	shop, err := r.shops.GetShop(ctx, shopID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load shop %s: %w", shopID.Hex(), err)
	}
	if shop == nil {
		return nil, nil, fmt.Errorf("shop %s: %w", shopID.Hex(), models.ErrNotFound)
	}

	agentID = shop.AgentID

	if shop.OperatorID != nil {
		return agentID, shop.OperatorID, nil
	}

	if agentID == nil {
		return nil, nil, nil
	}

	req, err := r.requests.LatestApprovedByAgent(ctx, *agentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up agent requests for %s: %w", agentID.Hex(), err)
	}
	if req == nil {
		return agentID, nil, nil
	}

	operatorID = &req.OperatorID
	return agentID, operatorID, nil
}
