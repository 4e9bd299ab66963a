package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment statuses
const (
	PaymentStatusPending  = "pending"
	PaymentStatusSuccess  = "success"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Payment is a single plan payment for a shop, created by the payment
// gateway collaborator. Amount is in minor currency units and is never
// mutated after the payment reaches success status.
type Payment struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PaymentID   string              `bson:"paymentId" json:"paymentId"`
	ShopID      primitive.ObjectID  `bson:"shopId" json:"shopId"`
	PlanID      primitive.ObjectID  `bson:"planId,omitempty" json:"planId,omitempty"`
	PayerUserID *primitive.ObjectID `bson:"payerUserId,omitempty" json:"payerUserId,omitempty"`
	Amount      int64               `bson:"amount" json:"amount"`
	Status      string              `bson:"status" json:"status"`
	PaidAt      time.Time           `bson:"paidAt" json:"paidAt"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}

// PaymentSuccessEvent is the webhook payload posted by the payment gateway
// once a payment has been captured.
type PaymentSuccessEvent struct {
	PaymentID  string    `json:"paymentId" validate:"required"`
	ShopID     string    `json:"shopId" validate:"required"`
	Amount     int64     `json:"amount" validate:"required,gte=0"`
	OccurredAt time.Time `json:"occurredAt"`
}
