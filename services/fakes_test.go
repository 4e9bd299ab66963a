package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sooqna/sooqna_backend/models"
)

// In-memory stand-ins for the Mongo repositories. They mirror the storage
// guarantees the real layer provides: unique paymentId on commission
// insert, guarded status updates, and sorted reads.

type fakeShopStore struct {
	mu    sync.Mutex
	shops map[primitive.ObjectID]models.Shop
}

func newFakeShopStore() *fakeShopStore {
	return &fakeShopStore{shops: make(map[primitive.ObjectID]models.Shop)}
}

func (s *fakeShopStore) put(shop models.Shop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shops[shop.ID] = shop
}

func (s *fakeShopStore) GetShop(ctx context.Context, id primitive.ObjectID) (*models.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shop, ok := s.shops[id]
	if !ok {
		return nil, nil
	}
	copied := shop
	return &copied, nil
}

type fakeAgentRequestStore struct {
	mu       sync.Mutex
	requests []models.AgentRequest
}

func (s *fakeAgentRequestStore) add(req models.AgentRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
}

func (s *fakeAgentRequestStore) LatestApprovedByAgent(ctx context.Context, agentID primitive.ObjectID) (*models.AgentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.AgentRequest
	for i := range s.requests {
		req := s.requests[i]
		if req.AgentID != agentID || req.Status != models.AgentRequestStatusApproved {
			continue
		}
		if latest == nil || approvedAfter(req, *latest) {
			copied := req
			latest = &copied
		}
	}
	return latest, nil
}

func approvedAfter(a, b models.AgentRequest) bool {
	at, bt := a.RequestedAt, b.RequestedAt
	if a.ProcessedAt != nil {
		at = *a.ProcessedAt
	}
	if b.ProcessedAt != nil {
		bt = *b.ProcessedAt
	}
	return at.After(bt)
}

type fakeCommissionStore struct {
	mu          sync.Mutex
	byPaymentID map[string]*models.Commission
	// insertConflicts forces the next n inserts to lose the unique-index
	// race, for exercising the retry path.
	insertConflicts int
}

func newFakeCommissionStore() *fakeCommissionStore {
	return &fakeCommissionStore{byPaymentID: make(map[string]*models.Commission)}
}

func (s *fakeCommissionStore) FindByPaymentID(ctx context.Context, paymentID string) (*models.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byPaymentID[paymentID]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (s *fakeCommissionStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byPaymentID {
		if c.ID == id {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeCommissionStore) Insert(ctx context.Context, c *models.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertConflicts > 0 {
		s.insertConflicts--
		return fmt.Errorf("duplicate key: %w", models.ErrPersistenceConflict)
	}
	if _, exists := s.byPaymentID[c.PaymentID]; exists {
		return fmt.Errorf("duplicate key: %w", models.ErrPersistenceConflict)
	}
	c.ID = primitive.NewObjectID()
	copied := *c
	s.byPaymentID[c.PaymentID] = &copied
	return nil
}

func (s *fakeCommissionStore) ReplacePending(ctx context.Context, id primitive.ObjectID, c *models.Commission) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byPaymentID {
		if existing.ID != id {
			continue
		}
		if existing.Status != models.CommissionStatusPending {
			return false, nil
		}
		existing.AgentID = c.AgentID
		existing.OperatorID = c.OperatorID
		existing.AgentAmount = c.AgentAmount
		existing.OperatorAmount = c.OperatorAmount
		existing.CompanyAmount = c.CompanyAmount
		existing.TotalAmount = c.TotalAmount
		existing.AgentPercent = c.AgentPercent
		existing.OperatorPercent = c.OperatorPercent
		existing.UpdatedAt = c.UpdatedAt
		return true, nil
	}
	return false, nil
}

func (s *fakeCommissionStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, from []string, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byPaymentID {
		if c.ID != id {
			continue
		}
		for _, status := range from {
			if c.Status == status {
				c.Status = to
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

func (s *fakeCommissionStore) FindByBeneficiary(ctx context.Context, userID primitive.ObjectID, statuses []string) ([]models.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.Commission
	for _, c := range s.byPaymentID {
		if !isBeneficiary(*c, userID) {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, c.Status) {
			continue
		}
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *fakeCommissionStore) SumPendingByBeneficiary(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, c := range s.byPaymentID {
		if c.Status != models.CommissionStatusPending {
			continue
		}
		if c.AgentID != nil && *c.AgentID == userID {
			total += c.AgentAmount
		}
		if c.OperatorID != nil && *c.OperatorID == userID {
			total += c.OperatorAmount
		}
	}
	return total, nil
}

func isBeneficiary(c models.Commission, userID primitive.ObjectID) bool {
	if c.AgentID != nil && *c.AgentID == userID {
		return true
	}
	return c.OperatorID != nil && *c.OperatorID == userID
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakePaymentStore struct {
	mu       sync.Mutex
	payments map[string]models.Payment
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{payments: make(map[string]models.Payment)}
}

func (s *fakePaymentStore) RecordSuccess(ctx context.Context, p models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[p.PaymentID]; exists {
		return nil
	}
	p.Status = models.PaymentStatusSuccess
	s.payments[p.PaymentID] = p
	return nil
}

func (s *fakePaymentStore) GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, nil
	}
	copied := p
	return &copied, nil
}

func (s *fakePaymentStore) ForEachSuccess(ctx context.Context, fn func(models.Payment) error) error {
	s.mu.Lock()
	var list []models.Payment
	for _, p := range s.payments {
		if p.Status == models.PaymentStatusSuccess {
			list = append(list, p)
		}
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].PaidAt.After(list[j].PaidAt)
	})
	for _, p := range list {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

type fakeConfigStore struct {
	cfg models.CommissionConfig
}

func (s *fakeConfigStore) GetCommissionConfig(ctx context.Context) (models.CommissionConfig, error) {
	return s.cfg, nil
}

type fakeWithdrawalStore struct {
	mu          sync.Mutex
	withdrawals map[primitive.ObjectID]*models.Withdrawal
}

func newFakeWithdrawalStore() *fakeWithdrawalStore {
	return &fakeWithdrawalStore{withdrawals: make(map[primitive.ObjectID]*models.Withdrawal)}
}

func (s *fakeWithdrawalStore) Insert(ctx context.Context, w *models.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = primitive.NewObjectID()
	copied := *w
	s.withdrawals[w.ID] = &copied
	return nil
}

func (s *fakeWithdrawalStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return nil, nil
	}
	copied := *w
	return &copied, nil
}

func (s *fakeWithdrawalStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string, update *models.Withdrawal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[id]
	if !ok || w.Status != from {
		return false, nil
	}
	w.Status = to
	if update != nil {
		if update.AdminID != nil {
			w.AdminID = update.AdminID
		}
		if update.AdminNote != "" {
			w.AdminNote = update.AdminNote
		}
		if update.RejectionReason != "" {
			w.RejectionReason = update.RejectionReason
		}
		if update.ProcessedAt != nil {
			w.ProcessedAt = update.ProcessedAt
		}
	}
	return true, nil
}

func (s *fakeWithdrawalStore) SumByUserAndStatuses(ctx context.Context, userID primitive.ObjectID, statuses []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, w := range s.withdrawals {
		if w.UserID == userID && containsStatus(statuses, w.Status) {
			total += w.Amount
		}
	}
	return total, nil
}

func (s *fakeWithdrawalStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.Withdrawal
	for _, w := range s.withdrawals {
		if w.UserID == userID {
			result = append(result, *w)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// mutexUserLocker gives the tests the same mutual exclusion the Redis lock
// gives production, without Redis.
type mutexUserLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMutexUserLocker() *mutexUserLocker {
	return &mutexUserLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *mutexUserLocker) Lock(ctx context.Context, userID string) (func(), error) {
	l.mu.Lock()
	userLock, ok := l.locks[userID]
	if !ok {
		userLock = &sync.Mutex{}
		l.locks[userID] = userLock
	}
	l.mu.Unlock()

	userLock.Lock()
	return userLock.Unlock, nil
}
