// services/ledger.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sooqna/sooqna_backend/models"
)

// UpsertOutcome classifies what the ledger did with an upsert.
type UpsertOutcome string

const (
	OutcomeCreated   UpsertOutcome = "created"
	OutcomeUpdated   UpsertOutcome = "updated"
	OutcomeUnchanged UpsertOutcome = "unchanged"
	// OutcomeFrozen means the commission is already paid or withdrawn, so
	// its amounts and relationship fields were left untouched.
	OutcomeFrozen UpsertOutcome = "frozen"
)

// upsertRetries bounds the automatic retry on write races. The computation
// is idempotent, so losing a race is always safe to retry.
const upsertRetries = 3

// CommissionStore is the storage layer behind the commission ledger.
// Implementations must enforce paymentId uniqueness on insert.
type CommissionStore interface {
	// FindByPaymentID returns (nil, nil) when no commission exists.
	FindByPaymentID(ctx context.Context, paymentID string) (*models.Commission, error)
	// Insert creates the commission. A duplicate paymentId surfaces as
	// models.ErrPersistenceConflict.
	Insert(ctx context.Context, c *models.Commission) error
	// ReplacePending overwrites the relationship and amount fields of the
	// commission, guarded on status still being pending. Returns false if
	// the guard did not match.
	ReplacePending(ctx context.Context, id primitive.ObjectID, c *models.Commission) (bool, error)
	// UpdateStatus transitions the commission from one of the given
	// statuses to the new one. Returns false if nothing matched.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from []string, to string) (bool, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error)
	// FindByBeneficiary returns commissions where the user is the agent or
	// the operator, optionally filtered by status, oldest first.
	FindByBeneficiary(ctx context.Context, userID primitive.ObjectID, statuses []string) ([]models.Commission, error)
	// SumPendingByBeneficiary sums the user's share (agent amounts where the
	// user is the agent, operator amounts where the user is the operator)
	// over commissions still in pending status.
	SumPendingByBeneficiary(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// CommissionLedger owns the one-row-per-payment commission records. All
// writes to the commissions collection go through it.
type CommissionLedger struct {
	store CommissionStore
}

func NewCommissionLedger(store CommissionStore) *CommissionLedger {
	return &CommissionLedger{store: store}
}

// Upsert writes the computed split for a payment. A missing record is
// created; a pending record is overwritten with the new values (this is how
// drift gets corrected); a paid or withdrawn record is frozen and left
// untouched. Write races on the unique paymentId index are retried.
func (l *CommissionLedger) Upsert(ctx context.Context, paymentID string, shopID primitive.ObjectID, split models.CommissionSplit, paidAt time.Time, cfg models.CommissionConfig) (UpsertOutcome, error) {
	var lastErr error

	for attempt := 0; attempt < upsertRetries; attempt++ {
		existing, err := l.store.FindByPaymentID(ctx, paymentID)
		if err != nil {
			return "", fmt.Errorf("failed to load commission for payment %s: %w", paymentID, err)
		}

		if existing == nil {
			now := time.Now()
			commission := &models.Commission{
				PaymentID:       paymentID,
				ShopID:          shopID,
				AgentID:         split.AgentID,
				OperatorID:      split.OperatorID,
				AgentAmount:     split.AgentAmount,
				OperatorAmount:  split.OperatorAmount,
				CompanyAmount:   split.CompanyAmount,
				TotalAmount:     split.TotalAmount,
				AgentPercent:    cfg.AgentPercent,
				OperatorPercent: cfg.OperatorPercent,
				Status:          models.CommissionStatusPending,
				PaidAt:          paidAt,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			err = l.store.Insert(ctx, commission)
			if errors.Is(err, models.ErrPersistenceConflict) {
				// Lost the insert race; re-read and take the update path.
				lastErr = err
				continue
			}
			if err != nil {
				return "", fmt.Errorf("failed to insert commission for payment %s: %w", paymentID, err)
			}
			return OutcomeCreated, nil
		}

		if existing.Status != models.CommissionStatusPending {
			// Already-distributed money is never silently changed.
			return OutcomeFrozen, nil
		}

		if splitMatches(existing, split, cfg) {
			return OutcomeUnchanged, nil
		}

		updated := &models.Commission{
			AgentID:         split.AgentID,
			OperatorID:      split.OperatorID,
			AgentAmount:     split.AgentAmount,
			OperatorAmount:  split.OperatorAmount,
			CompanyAmount:   split.CompanyAmount,
			TotalAmount:     split.TotalAmount,
			AgentPercent:    cfg.AgentPercent,
			OperatorPercent: cfg.OperatorPercent,
			UpdatedAt:       time.Now(),
		}
		ok, err := l.store.ReplacePending(ctx, existing.ID, updated)
		if err != nil {
			return "", fmt.Errorf("failed to update commission for payment %s: %w", paymentID, err)
		}
		if !ok {
			// Status changed underneath us, most likely to paid. Re-read.
			lastErr = models.ErrPersistenceConflict
			continue
		}
		return OutcomeUpdated, nil
	}

	return "", fmt.Errorf("commission upsert for payment %s gave up after %d attempts: %w", paymentID, upsertRetries, lastErr)
}

// MarkPaid transitions a commission from pending to paid. Called only by
// the withdrawal ledger.
func (l *CommissionLedger) MarkPaid(ctx context.Context, id primitive.ObjectID) error {
	return l.transition(ctx, id, []string{models.CommissionStatusPending}, models.CommissionStatusPaid)
}

// MarkWithdrawn transitions a commission forward to withdrawn. Called only
// by the withdrawal ledger once the funds have left the ledger.
func (l *CommissionLedger) MarkWithdrawn(ctx context.Context, id primitive.ObjectID) error {
	return l.transition(ctx, id, []string{models.CommissionStatusPending, models.CommissionStatusPaid}, models.CommissionStatusWithdrawn)
}

// transition applies a forward-only status change. Anything else is an
// invalid state transition.
func (l *CommissionLedger) transition(ctx context.Context, id primitive.ObjectID, from []string, to string) error {
	ok, err := l.store.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to transition commission %s to %s: %w", id.Hex(), to, err)
	}
	if ok {
		return nil
	}

	current, err := l.store.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load commission %s: %w", id.Hex(), err)
	}
	if current == nil {
		return fmt.Errorf("commission %s: %w", id.Hex(), models.ErrNotFound)
	}
	return fmt.Errorf("commission %s is %s, cannot become %s: %w", id.Hex(), current.Status, to, models.ErrInvalidStateTransition)
}

// FindByPayment returns the commission for a payment, or (nil, nil).
func (l *CommissionLedger) FindByPayment(ctx context.Context, paymentID string) (*models.Commission, error) {
	return l.store.FindByPaymentID(ctx, paymentID)
}

// FindByBeneficiary returns the user's commissions, optionally filtered by
// status, oldest first.
func (l *CommissionLedger) FindByBeneficiary(ctx context.Context, userID primitive.ObjectID, statuses []string) ([]models.Commission, error) {
	return l.store.FindByBeneficiary(ctx, userID, statuses)
}

func splitMatches(existing *models.Commission, split models.CommissionSplit, cfg models.CommissionConfig) bool {
	return objectIDEqual(existing.AgentID, split.AgentID) &&
		objectIDEqual(existing.OperatorID, split.OperatorID) &&
		existing.AgentAmount == split.AgentAmount &&
		existing.OperatorAmount == split.OperatorAmount &&
		existing.CompanyAmount == split.CompanyAmount &&
		existing.TotalAmount == split.TotalAmount &&
		existing.AgentPercent == cfg.AgentPercent &&
		existing.OperatorPercent == cfg.OperatorPercent
}

func objectIDEqual(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
