package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Shop is the paying customer entity. AgentID (who onboarded the shop) and
// OperatorID (who supervises that agent) are denormalized and optional;
// an admin fix may set or change them after creation.
type Shop struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name       string              `bson:"name" json:"name"`
	Phone      string              `bson:"phone,omitempty" json:"phone,omitempty"`
	AgentID    *primitive.ObjectID `bson:"agentId,omitempty" json:"agentId,omitempty"`
	OperatorID *primitive.ObjectID `bson:"operatorId,omitempty" json:"operatorId,omitempty"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// FixShopRelationshipsRequest is the admin request that repairs a shop's
// agent/operator attribution. Empty strings clear the field.
type FixShopRelationshipsRequest struct {
	AgentID    *string `json:"agentId"`
	OperatorID *string `json:"operatorId"`
}
