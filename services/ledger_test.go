package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sooqna/sooqna_backend/models"
)

var testConfig = models.CommissionConfig{AgentPercent: 20, OperatorPercent: 10}

func testSplit(t *testing.T, total int64, agentID, operatorID *primitive.ObjectID) models.CommissionSplit {
	t.Helper()
	split, err := SplitCommission(total, agentID, operatorID, testConfig)
	require.NoError(t, err)
	return split
}

func TestLedgerUpsertCreates(t *testing.T) {
	store := newFakeCommissionStore()
	ledger := NewCommissionLedger(store)

	agentID := primitive.NewObjectID()
	shopID := primitive.NewObjectID()
	split := testSplit(t, 1000, &agentID, nil)

	outcome, err := ledger.Upsert(context.Background(), "pay-1", shopID, split, time.Now(), testConfig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	commission, err := ledger.FindByPayment(context.Background(), "pay-1")
	require.NoError(t, err)
	require.NotNil(t, commission)
	assert.Equal(t, int64(200), commission.AgentAmount)
	assert.Equal(t, int64(800), commission.CompanyAmount)
	assert.Equal(t, models.CommissionStatusPending, commission.Status)
	assert.Equal(t, commission.TotalAmount, commission.AgentAmount+commission.OperatorAmount+commission.CompanyAmount)
}

func TestLedgerUpsertOverwritesPending(t *testing.T) {
	store := newFakeCommissionStore()
	ledger := NewCommissionLedger(store)

	agentID := primitive.NewObjectID()
	operatorID := primitive.NewObjectID()
	shopID := primitive.NewObjectID()

	_, err := ledger.Upsert(context.Background(), "pay-1", shopID, testSplit(t, 1000, &agentID, nil), time.Now(), testConfig)
	require.NoError(t, err)

	outcome, err := ledger.Upsert(context.Background(), "pay-1", shopID, testSplit(t, 1000, &agentID, &operatorID), time.Now(), testConfig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	commission, err := ledger.FindByPayment(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), commission.AgentAmount)
	assert.Equal(t, int64(80), commission.OperatorAmount)
	assert.Equal(t, int64(720), commission.CompanyAmount)
}

func TestLedgerUpsertUnchangedWhenSameSplit(t *testing.T) {
	store := newFakeCommissionStore()
	ledger := NewCommissionLedger(store)

	agentID := primitive.NewObjectID()
	shopID := primitive.NewObjectID()
	split := testSplit(t, 1000, &agentID, nil)

	_, err := ledger.Upsert(context.Background(), "pay-1", shopID, split, time.Now(), testConfig)
	require.NoError(t, err)

	outcome, err := ledger.Upsert(context.Background(), "pay-1", shopID, split, time.Now(), testConfig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
}

func TestLedgerUpsertFreezesPaidRecords(t *testing.T) {
	store := newFakeCommissionStore()
	ledger := NewCommissionLedger(store)

	agentID := primitive.NewObjectID()
	operatorID := primitive.NewObjectID()
	shopID := primitive.NewObjectID()

	_, err := ledger.Upsert(context.Background(), "pay-1", shopID, testSplit(t, 1000, &agentID, nil), time.Now(), testConfig)
	require.NoError(t, err)

	commission, err := ledger.FindByPayment(context.Background(), "pay-1")
	require.NoError(t, err)
	require.NoError(t, ledger.MarkPaid(context.Background(), commission.ID))

	// A relationship change after payout must not touch the amounts
	outcome, err := ledger.Upsert(context.Background(), "pay-1", shopID, testSplit(t, 1000, &agentID, &operatorID), time.Now(), testConfig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFrozen, outcome)

	frozen, err := ledger.FindByPayment(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), frozen.AgentAmount)
	assert.Equal(t, int64(0), frozen.OperatorAmount)
	assert.Equal(t, int64(800), frozen.CompanyAmount)
	assert.Nil(t, frozen.OperatorID)
	assert.Equal(t, models.CommissionStatusPaid, frozen.Status)
}

func TestLedgerUpsertRetriesLostInsertRace(t *testing.T) {
	store := newFakeCommissionStore()
	ledger := NewCommissionLedger(store)

	agentID := primitive.NewObjectID()
	shopID := primitive.NewObjectID()
	split := testSplit(t, 1000, &agentID, nil)

	// First insert attempt loses the unique-index race; the retry re-reads
	// and succeeds.
	store.insertConflicts = 1

	outcome, err := ledger.Upsert(context.Background(), "pay-1", shopID, split, time.Now(), testConfig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
}

func TestLedgerStatusTransitionsAreForwardOnly(t *testing.T) {
	store := newFakeCommissionStore()
	ledger := NewCommissionLedger(store)

	agentID := primitive.NewObjectID()
	shopID := primitive.NewObjectID()

	_, err := ledger.Upsert(context.Background(), "pay-1", shopID, testSplit(t, 1000, &agentID, nil), time.Now(), testConfig)
	require.NoError(t, err)
	commission, err := ledger.FindByPayment(context.Background(), "pay-1")
	require.NoError(t, err)

	// pending -> paid -> withdrawn is the full forward path
	require.NoError(t, ledger.MarkPaid(context.Background(), commission.ID))
	require.NoError(t, ledger.MarkWithdrawn(context.Background(), commission.ID))

	// No transition leaves withdrawn
	err = ledger.MarkPaid(context.Background(), commission.ID)
	assert.ErrorIs(t, err, models.ErrInvalidStateTransition)
	err = ledger.MarkWithdrawn(context.Background(), commission.ID)
	assert.ErrorIs(t, err, models.ErrInvalidStateTransition)
}

func TestLedgerMarkWithdrawnSkipsPaid(t *testing.T) {
	store := newFakeCommissionStore()
	ledger := NewCommissionLedger(store)

	agentID := primitive.NewObjectID()
	shopID := primitive.NewObjectID()

	_, err := ledger.Upsert(context.Background(), "pay-1", shopID, testSplit(t, 1000, &agentID, nil), time.Now(), testConfig)
	require.NoError(t, err)
	commission, err := ledger.FindByPayment(context.Background(), "pay-1")
	require.NoError(t, err)

	// pending -> withdrawn directly is still a forward move
	require.NoError(t, ledger.MarkWithdrawn(context.Background(), commission.ID))

	after, err := ledger.FindByPayment(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.CommissionStatusWithdrawn, after.Status)
}

func TestLedgerTransitionUnknownCommission(t *testing.T) {
	ledger := NewCommissionLedger(newFakeCommissionStore())

	err := ledger.MarkPaid(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}
