// services/split.go
package services

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sooqna/sooqna_backend/models"
)

// SplitCommission computes the three-way agent/operator/company split for a
// payment. All math is done on integer minor currency units; percents are
// whole integers. The operator cut is computed off the remainder after the
// agent cut, not off the total. The company amount is always the residual,
// which guarantees the amounts sum to the total even under rounding.
func SplitCommission(totalAmount int64, agentID, operatorID *primitive.ObjectID, cfg models.CommissionConfig) (models.CommissionSplit, error) {
	if totalAmount < 0 {
		return models.CommissionSplit{}, fmt.Errorf("%w: total amount %d is negative", models.ErrInvalidAmount, totalAmount)
	}

	var agentAmount int64
	if agentID != nil {
		agentAmount = percentOf(totalAmount, cfg.AgentPercent)
	}

	remainder := totalAmount - agentAmount

	var operatorAmount int64
	if operatorID != nil {
		operatorAmount = percentOf(remainder, cfg.OperatorPercent)
	}

	companyAmount := totalAmount - agentAmount - operatorAmount

	if agentAmount+operatorAmount+companyAmount != totalAmount {
		// Money must never be invented or lost. Reaching this line means the
		// arithmetic above is broken, so fail loud instead of clamping.
		panic(fmt.Sprintf("commission split invariant violated: %d + %d + %d != %d",
			agentAmount, operatorAmount, companyAmount, totalAmount))
	}

	return models.CommissionSplit{
		AgentID:        agentID,
		OperatorID:     operatorID,
		AgentAmount:    agentAmount,
		OperatorAmount: operatorAmount,
		CompanyAmount:  companyAmount,
		TotalAmount:    totalAmount,
	}, nil
}

// percentOf returns amount*percent/100 rounded half-up on integer minor
// units. amount must be non-negative.
func percentOf(amount, percent int64) int64 {
	return (amount*percent + 50) / 100
}
