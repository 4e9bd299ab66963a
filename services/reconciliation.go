// services/reconciliation.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sooqna/sooqna_backend/models"
)

// PaymentStore streams and records payments. Payments are created by the
// payment gateway collaborator; this engine only ever reads them, plus the
// idempotent success-event recording for the webhook.
type PaymentStore interface {
	// ForEachSuccess streams payments with status success, most recent
	// first, calling fn for each. fn returning an error stops the stream
	// and propagates the error.
	ForEachSuccess(ctx context.Context, fn func(models.Payment) error) error
	// GetByPaymentID returns (nil, nil) when the payment is unknown.
	GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error)
	// RecordSuccess idempotently records a successful payment keyed by its
	// gateway paymentId.
	RecordSuccess(ctx context.Context, p models.Payment) error
}

// ConfigStore reads the active commission percentage configuration. The
// engine never writes it.
type ConfigStore interface {
	GetCommissionConfig(ctx context.Context) (models.CommissionConfig, error)
}

// Reconciler runs the resolve -> split -> upsert pipeline, either for a
// single payment (webhook path) or in bulk over every successful payment.
// The bulk run is the only path that can correct a previously wrong
// commission, and only while that commission is still pending.
type Reconciler struct {
	payments PaymentStore
	resolver *RelationshipResolver
	ledger   *CommissionLedger
	config   ConfigStore
	workers  int
}

func NewReconciler(payments PaymentStore, resolver *RelationshipResolver, ledger *CommissionLedger, config ConfigStore, workers int) *Reconciler {
	if workers < 1 {
		workers = 1
	}
	return &Reconciler{
		payments: payments,
		resolver: resolver,
		ledger:   ledger,
		config:   config,
		workers:  workers,
	}
}

// ProcessPayment runs the pipeline for one successful payment using the
// given config snapshot.
func (r *Reconciler) ProcessPayment(ctx context.Context, payment models.Payment, cfg models.CommissionConfig) (UpsertOutcome, error) {
	agentID, operatorID, err := r.resolver.Resolve(ctx, payment.ShopID)
	if err != nil {
		return "", err
	}

	split, err := SplitCommission(payment.Amount, agentID, operatorID, cfg)
	if err != nil {
		return "", err
	}

	return r.ledger.Upsert(ctx, payment.PaymentID, payment.ShopID, split, payment.PaidAt, cfg)
}

// ProcessPaymentEvent records a payment-success event and runs the pipeline
// for it. This is the live webhook path; errors surface to the caller so
// the gateway can retry.
func (r *Reconciler) ProcessPaymentEvent(ctx context.Context, payment models.Payment) (UpsertOutcome, error) {
	if payment.Amount < 0 {
		return "", fmt.Errorf("payment %s: %w", payment.PaymentID, models.ErrInvalidAmount)
	}

	if err := r.payments.RecordSuccess(ctx, payment); err != nil {
		return "", fmt.Errorf("failed to record payment %s: %w", payment.PaymentID, err)
	}

	// A replayed webhook must not rewrite a recorded payment, so the
	// pipeline always runs off the stored record.
	stored, err := r.payments.GetByPaymentID(ctx, payment.PaymentID)
	if err != nil {
		return "", fmt.Errorf("failed to load payment %s: %w", payment.PaymentID, err)
	}
	if stored != nil {
		payment = *stored
	}

	cfg, err := r.config.GetCommissionConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load commission config: %w", err)
	}

	return r.ProcessPayment(ctx, payment, cfg)
}

// ReconcileAll scans every successful payment and re-applies the pipeline,
// bringing the commission ledger into a consistent state. Safe to run
// arbitrarily often and concurrently with itself: every step is idempotent
// and upserts for the same payment are serialized by the storage layer.
// Per-payment failures are recorded in the report and never abort the
// batch. Cancelling the context stops intake of new payments, finishes
// in-flight ones, and returns the partial report.
func (r *Reconciler) ReconcileAll(ctx context.Context) (*models.ReconcileReport, error) {
	report := &models.ReconcileReport{StartedAt: time.Now()}

	cfg, err := r.config.GetCommissionConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load commission config: %w", err)
	}

	jobs := make(chan models.Payment)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for payment := range jobs {
				outcome, err := r.reconcileOne(ctx, payment, cfg)
				mu.Lock()
				if err != nil {
					if errors.Is(err, models.ErrNotFound) {
						report.Skipped++
					}
					report.Errors = append(report.Errors, models.ReconcileError{
						PaymentID: payment.PaymentID,
						Reason:    err.Error(),
					})
				} else {
					switch outcome {
					case OutcomeCreated:
						report.Created++
					case OutcomeUpdated:
						report.Updated++
					default:
						// Frozen records count as unchanged: the ledger
						// reported success without touching them.
						report.Unchanged++
					}
				}
				mu.Unlock()
			}
		}()
	}

	streamErr := r.payments.ForEachSuccess(ctx, func(p models.Payment) error {
		select {
		case jobs <- p:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(jobs)
	wg.Wait()

	report.EndedAt = time.Now()

	if streamErr != nil && !errors.Is(streamErr, context.Canceled) && !errors.Is(streamErr, context.DeadlineExceeded) {
		return report, fmt.Errorf("payment stream failed: %w", streamErr)
	}

	log.Printf("Reconciliation finished: created=%d updated=%d unchanged=%d skipped=%d errors=%d",
		report.Created, report.Updated, report.Unchanged, report.Skipped, len(report.Errors))

	return report, nil
}

// reconcileOne runs the pipeline for one payment, retrying lost write races.
func (r *Reconciler) reconcileOne(ctx context.Context, payment models.Payment, cfg models.CommissionConfig) (UpsertOutcome, error) {
	var lastErr error
	for attempt := 0; attempt < upsertRetries; attempt++ {
		outcome, err := r.ProcessPayment(ctx, payment, cfg)
		if err == nil {
			return outcome, nil
		}
		if !errors.Is(err, models.ErrPersistenceConflict) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}
