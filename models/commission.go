package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Commission statuses
const (
	CommissionStatusPending   = "pending"
	CommissionStatusPaid      = "paid"
	CommissionStatusWithdrawn = "withdrawn"
)

// Commission is the ledger entry for one successful payment: the three-way
// split between agent, operator and company. PaymentID is unique across the
// collection. Invariant: AgentAmount + OperatorAmount + CompanyAmount ==
// TotalAmount, always, with TotalAmount equal to the source payment's amount.
type Commission struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PaymentID       string              `bson:"paymentId" json:"paymentId"`
	ShopID          primitive.ObjectID  `bson:"shopId" json:"shopId"`
	AgentID         *primitive.ObjectID `bson:"agentId,omitempty" json:"agentId,omitempty"`
	OperatorID      *primitive.ObjectID `bson:"operatorId,omitempty" json:"operatorId,omitempty"`
	AgentAmount     int64               `bson:"agentAmount" json:"agentAmount"`
	OperatorAmount  int64               `bson:"operatorAmount" json:"operatorAmount"`
	CompanyAmount   int64               `bson:"companyAmount" json:"companyAmount"`
	TotalAmount     int64               `bson:"totalAmount" json:"totalAmount"`
	AgentPercent    int64               `bson:"agentPercent" json:"agentPercent"`
	OperatorPercent int64               `bson:"operatorPercent" json:"operatorPercent"`
	Status          string              `bson:"status" json:"status"`
	PaidAt          time.Time           `bson:"paidAt" json:"paidAt"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// CommissionSplit holds the computed amounts for one payment before they
// are written to the ledger.
type CommissionSplit struct {
	AgentID        *primitive.ObjectID `json:"agentId,omitempty"`
	OperatorID     *primitive.ObjectID `json:"operatorId,omitempty"`
	AgentAmount    int64               `json:"agentAmount"`
	OperatorAmount int64               `json:"operatorAmount"`
	CompanyAmount  int64               `json:"companyAmount"`
	TotalAmount    int64               `json:"totalAmount"`
}

// CommissionBreakdown is the aggregated view returned by the dashboard
// query endpoints.
type CommissionBreakdown struct {
	Count          int64 `bson:"count" json:"count"`
	TotalAmount    int64 `bson:"totalAmount" json:"totalAmount"`
	AgentAmount    int64 `bson:"agentAmount" json:"agentAmount"`
	OperatorAmount int64 `bson:"operatorAmount" json:"operatorAmount"`
	CompanyAmount  int64 `bson:"companyAmount" json:"companyAmount"`
}

// ReconcileError records one payment that could not be reconciled.
type ReconcileError struct {
	PaymentID string `json:"paymentId"`
	Reason    string `json:"reason"`
}

// ReconcileReport summarizes one reconciliation run.
type ReconcileReport struct {
	Created   int              `json:"created"`
	Updated   int              `json:"updated"`
	Unchanged int              `json:"unchanged"`
	Skipped   int              `json:"skipped"`
	Errors    []ReconcileError `json:"errors,omitempty"`
	StartedAt time.Time        `json:"startedAt"`
	EndedAt   time.Time        `json:"endedAt"`
}

// ReconcileJob is the Redis-backed status document the admin polls while a
// reconciliation run is in flight.
type ReconcileJob struct {
	JobID      string           `json:"jobId"`
	Status     string           `json:"status"` // running, done, failed
	Report     *ReconcileReport `json:"report,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt *time.Time       `json:"finishedAt,omitempty"`
}
