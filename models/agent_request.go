package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AgentRequest statuses
const (
	AgentRequestStatusPending  = "pending"
	AgentRequestStatusApproved = "approved"
	AgentRequestStatusRejected = "rejected"
)

// AgentRequest is the supervisory link between an operator and an agent.
// Only an approved request makes the operator eligible to earn a cut from
// the agent's shops.
type AgentRequest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OperatorID  primitive.ObjectID `bson:"operatorId" json:"operatorId"`
	AgentID     primitive.ObjectID `bson:"agentId" json:"agentId"`
	Status      string             `bson:"status" json:"status"`
	RequestedAt time.Time          `bson:"requestedAt" json:"requestedAt"`
	ProcessedAt *time.Time         `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
}
