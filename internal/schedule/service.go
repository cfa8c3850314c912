// Package schedule manages queued unattended charges and drives due ones
// through the batch runner.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/meridianpay/payment-engine/internal/batch"
	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
)

// Service coordinates the PENDING -> {SUBMITTED, CANCELLED} lifecycle of
// scheduled payments.
type Service struct {
	scheduled ports.ScheduledPaymentRepository
	runner    *batch.Runner
	events    ports.EventPublisher
	logger    ports.Logger
	now       func() time.Time
}

// NewService creates the scheduled payment service.
func NewService(
	scheduled ports.ScheduledPaymentRepository,
	runner *batch.Runner,
	events ports.EventPublisher,
	logger ports.Logger,
) *Service {
	return &Service{
		scheduled: scheduled,
		runner:    runner,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit charges one pending scheduled payment through the batch runner and
// marks it SUBMITTED with the resulting payment id. A skip for a reason that
// clears with time (hold date, billing day, no balance, daily decline lock,
// ledger mismatch) leaves the payment PENDING so the next run picks it up
// again; only outcomes that are final for this charge consume the row.
func (s *Service) Submit(ctx context.Context, id, requestedBy string) (*batch.Outcome, error) {
	sp, err := s.scheduled.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if sp.Status != domain.ScheduledPaymentStatusPending {
		return nil, domain.NewDomainError(domain.ErrorCodeInvalidOperation,
			fmt.Sprintf("scheduled payment is %s, not PENDING", sp.Status))
	}

	outcome, err := s.runner.ProcessCandidate(ctx, batch.Candidate{
		AccountID:       sp.AccountID,
		PaymentMethodID: sp.PaymentMethodID,
		RequestedBy:     requestedBy,
		Description:     fmt.Sprintf("scheduled payment %s", sp.ID),
	})
	if err != nil {
		return nil, err
	}

	if outcome.Skipped && batch.DeferrableSkip(outcome.SkipReason) {
		s.logger.Info("scheduled payment deferred",
			ports.String("scheduled_payment_id", sp.ID),
			ports.String("account_id", sp.AccountID),
			ports.String("reason", outcome.SkipReason))
		return outcome, nil
	}

	var paymentID *string
	if outcome.PaymentID != "" {
		paymentID = &outcome.PaymentID
	}
	if err := s.scheduled.UpdateStatus(ctx, nil, sp.ID, domain.ScheduledPaymentStatusSubmitted, paymentID); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, domain.ScheduledPaymentSubmitted{
		ScheduledPaymentID: sp.ID,
		PaymentID:          outcome.PaymentID,
		AccountID:          sp.AccountID,
	})
	s.logger.Info("scheduled payment submitted",
		ports.String("scheduled_payment_id", sp.ID),
		ports.String("account_id", sp.AccountID),
		ports.String("payment_id", outcome.PaymentID))

	return outcome, nil
}

// Cancel marks a pending scheduled payment CANCELLED. Submitted or already
// cancelled payments cannot be cancelled again.
func (s *Service) Cancel(ctx context.Context, id, reason string) error {
	sp, err := s.scheduled.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if sp.Status != domain.ScheduledPaymentStatusPending {
		return domain.NewDomainError(domain.ErrorCodeInvalidOperation,
			fmt.Sprintf("scheduled payment is %s, not PENDING", sp.Status))
	}

	if err := s.scheduled.UpdateStatus(ctx, nil, sp.ID, domain.ScheduledPaymentStatusCancelled, nil); err != nil {
		return err
	}

	s.events.Publish(ctx, domain.ScheduledPaymentCancelled{
		ScheduledPaymentID: sp.ID,
		AccountID:          sp.AccountID,
		Reason:             reason,
	})
	s.logger.Info("scheduled payment cancelled",
		ports.String("scheduled_payment_id", sp.ID),
		ports.String("reason", reason))
	return nil
}

// ProcessDue submits every scheduled payment due at or before asOf, up to
// batchSize. One payment's failure does not stop the rest. Deferred payments
// stay PENDING and are counted separately from submitted ones.
func (s *Service) ProcessDue(ctx context.Context, asOf time.Time, batchSize int) (processed, submitted, deferred, failed int, errs []error) {
	due, err := s.scheduled.ListPendingDue(ctx, nil, asOf, batchSize)
	if err != nil {
		return 0, 0, 0, 0, []error{err}
	}

	for _, sp := range due {
		processed++
		outcome, err := s.Submit(ctx, sp.ID, sp.CreatedBy)
		if err != nil {
			failed++
			errs = append(errs, fmt.Errorf("scheduled payment %s: %w", sp.ID, err))
			s.logger.Error("scheduled payment submission failed",
				ports.String("scheduled_payment_id", sp.ID),
				ports.Err(err))
			continue
		}
		if outcome.Skipped && batch.DeferrableSkip(outcome.SkipReason) {
			deferred++
			continue
		}
		submitted++
	}

	if processed > 0 {
		s.logger.Info("processed due scheduled payments",
			ports.Int("processed", processed),
			ports.Int("submitted", submitted),
			ports.Int("deferred", deferred),
			ports.Int("failed", failed))
	}
	return processed, submitted, deferred, failed, errs
}
