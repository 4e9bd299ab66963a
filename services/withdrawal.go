// services/withdrawal.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sooqna/sooqna_backend/models"
)

// WithdrawalStore is the storage layer behind the withdrawal ledger.
type WithdrawalStore interface {
	Insert(ctx context.Context, w *models.Withdrawal) error
	// FindByID returns (nil, nil) when no such withdrawal exists.
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error)
	// UpdateStatus transitions the withdrawal from the given status,
	// applying the update document. Returns false if the guard did not match.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string, update *models.Withdrawal) (bool, error)
	// SumByUserAndStatuses sums withdrawal amounts for the user over the
	// given statuses.
	SumByUserAndStatuses(ctx context.Context, userID primitive.ObjectID, statuses []string) (int64, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Withdrawal, error)
}

// UserLocker serializes withdrawal writes per user so that two concurrent
// requests cannot both read a stale balance and jointly overdraw it.
type UserLocker interface {
	// Lock blocks until the per-user lock is held or ctx is done, and
	// returns the release function.
	Lock(ctx context.Context, userID string) (func(), error)
}

// WithdrawalLedger tracks a beneficiary's running commission balance and
// the withdrawal requests against it, guaranteeing no over-withdrawal.
type WithdrawalLedger struct {
	withdrawals WithdrawalStore
	commissions CommissionStore
	ledger      *CommissionLedger
	locker      UserLocker
}

func NewWithdrawalLedger(withdrawals WithdrawalStore, commissions CommissionStore, ledger *CommissionLedger, locker UserLocker) *WithdrawalLedger {
	return &WithdrawalLedger{
		withdrawals: withdrawals,
		commissions: commissions,
		ledger:      ledger,
		locker:      locker,
	}
}

// AvailableBalance returns the user's pending commission total minus every
// withdrawal that holds funds (pending, approved or paid). Pending requests
// hold their amount from the moment they are accepted; rejecting one
// releases the hold.
func (wl *WithdrawalLedger) AvailableBalance(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	earned, err := wl.commissions.SumPendingByBeneficiary(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum commissions for user %s: %w", userID.Hex(), err)
	}

	held, err := wl.withdrawals.SumByUserAndStatuses(ctx, userID, []string{
		models.WithdrawalStatusPending,
		models.WithdrawalStatusApproved,
		models.WithdrawalStatusPaid,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sum withdrawals for user %s: %w", userID.Hex(), err)
	}

	return earned - held, nil
}

// RequestWithdrawal creates a withdrawal request for the user. The balance
// check and the insert run as one atomic unit under the per-user lock.
func (wl *WithdrawalLedger) RequestWithdrawal(ctx context.Context, userID primitive.ObjectID, amount int64, userNote string) (*models.Withdrawal, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdrawal amount %d: %w", amount, models.ErrInvalidAmount)
	}

	unlock, err := wl.locker.Lock(ctx, userID.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to acquire withdrawal lock for user %s: %w", userID.Hex(), err)
	}
	defer unlock()

	balance, err := wl.AvailableBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if amount > balance {
		return nil, fmt.Errorf("requested %d with balance %d: %w", amount, balance, models.ErrInsufficientBalance)
	}

	withdrawal := &models.Withdrawal{
		UserID:    userID,
		Amount:    amount,
		Status:    models.WithdrawalStatusPending,
		UserNote:  userNote,
		CreatedAt: time.Now(),
	}
	if err := wl.withdrawals.Insert(ctx, withdrawal); err != nil {
		return nil, fmt.Errorf("failed to insert withdrawal for user %s: %w", userID.Hex(), err)
	}

	return withdrawal, nil
}

// Approve transitions a withdrawal from pending to approved. The approved
// amount stays excluded from future balance computations until payout.
func (wl *WithdrawalLedger) Approve(ctx context.Context, id primitive.ObjectID, adminID primitive.ObjectID, adminNote string) error {
	now := time.Now()
	update := &models.Withdrawal{
		AdminID:     &adminID,
		AdminNote:   adminNote,
		ProcessedAt: &now,
	}
	return wl.transition(ctx, id, models.WithdrawalStatusPending, models.WithdrawalStatusApproved, update)
}

// Reject transitions a withdrawal from pending to rejected, releasing the
// held amount back into the user's balance.
func (wl *WithdrawalLedger) Reject(ctx context.Context, id primitive.ObjectID, adminID primitive.ObjectID, reason string) error {
	now := time.Now()
	update := &models.Withdrawal{
		AdminID:         &adminID,
		RejectionReason: reason,
		ProcessedAt:     &now,
	}
	return wl.transition(ctx, id, models.WithdrawalStatusPending, models.WithdrawalStatusRejected, update)
}

// MarkPaid transitions a withdrawal from approved to paid, then marks the
// user's oldest pending commissions withdrawn until their share covers the
// withdrawal amount, so commission status eventually reflects that the
// funds have left the ledger.
func (wl *WithdrawalLedger) MarkPaid(ctx context.Context, id primitive.ObjectID, adminID primitive.ObjectID) error {
	withdrawal, err := wl.withdrawals.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load withdrawal %s: %w", id.Hex(), err)
	}
	if withdrawal == nil {
		return fmt.Errorf("withdrawal %s: %w", id.Hex(), models.ErrNotFound)
	}

	now := time.Now()
	update := &models.Withdrawal{
		AdminID:     &adminID,
		ProcessedAt: &now,
	}
	if err := wl.transition(ctx, id, models.WithdrawalStatusApproved, models.WithdrawalStatusPaid, update); err != nil {
		return err
	}

	return wl.settleCommissions(ctx, withdrawal.UserID, withdrawal.Amount)
}

// settleCommissions walks the user's pending commissions oldest-first and
// marks them withdrawn until the covered share reaches the paid-out amount.
func (wl *WithdrawalLedger) settleCommissions(ctx context.Context, userID primitive.ObjectID, amount int64) error {
	pending, err := wl.commissions.FindByBeneficiary(ctx, userID, []string{models.CommissionStatusPending})
	if err != nil {
		return fmt.Errorf("failed to load pending commissions for user %s: %w", userID.Hex(), err)
	}

	var covered int64
	for _, c := range pending {
		if covered >= amount {
			break
		}
		share := beneficiaryShare(c, userID)
		if share == 0 {
			continue
		}
		if err := wl.ledger.MarkWithdrawn(ctx, c.ID); err != nil {
			return fmt.Errorf("failed to mark commission %s withdrawn: %w", c.ID.Hex(), err)
		}
		covered += share
	}

	if covered < amount {
		// The balance check at request time makes this unreachable unless
		// data was mutated out of band. Log it rather than invent money.
		log.Printf("Withdrawal settlement for user %s covered only %d of %d", userID.Hex(), covered, amount)
	}

	return nil
}

// History returns the user's withdrawal requests, newest first.
func (wl *WithdrawalLedger) History(ctx context.Context, userID primitive.ObjectID) ([]models.Withdrawal, error) {
	return wl.withdrawals.ListByUser(ctx, userID)
}

func (wl *WithdrawalLedger) transition(ctx context.Context, id primitive.ObjectID, from, to string, update *models.Withdrawal) error {
	ok, err := wl.withdrawals.UpdateStatus(ctx, id, from, to, update)
	if err != nil {
		return fmt.Errorf("failed to transition withdrawal %s to %s: %w", id.Hex(), to, err)
	}
	if ok {
		return nil
	}

	current, err := wl.withdrawals.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load withdrawal %s: %w", id.Hex(), err)
	}
	if current == nil {
		return fmt.Errorf("withdrawal %s: %w", id.Hex(), models.ErrNotFound)
	}
	return fmt.Errorf("withdrawal %s is %s, cannot become %s: %w", id.Hex(), current.Status, to, models.ErrInvalidStateTransition)
}

// beneficiaryShare returns the user's slice of one commission.
func beneficiaryShare(c models.Commission, userID primitive.ObjectID) int64 {
	var share int64
	if c.AgentID != nil && *c.AgentID == userID {
		share += c.AgentAmount
	}
	if c.OperatorID != nil && *c.OperatorID == userID {
		share += c.OperatorAmount
	}
	return share
}
