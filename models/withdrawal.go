package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Withdrawal statuses
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
	WithdrawalStatusPaid     = "paid"
)

// Withdrawal is a request by an agent or operator to cash out accumulated
// pending commission. Amount is in minor currency units.
type Withdrawal struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID  `bson:"userId" json:"userId"`
	Amount          int64               `bson:"amount" json:"amount"`
	Status          string              `bson:"status" json:"status"`
	UserNote        string              `bson:"userNote,omitempty" json:"userNote,omitempty"`
	AdminID         *primitive.ObjectID `bson:"adminId,omitempty" json:"adminId,omitempty"`
	AdminNote       string              `bson:"adminNote,omitempty" json:"adminNote,omitempty"`
	RejectionReason string              `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	ProcessedAt     *time.Time          `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
}

// WithdrawalRequest is the request body for creating a withdrawal.
type WithdrawalRequest struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	UserNote string `json:"userNote,omitempty"`
}
