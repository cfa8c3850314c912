package refund

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
	"github.com/meridianpay/payment-engine/internal/observability"
)

// Manual records a refund that was settled outside the gateway, typically a
// check cut by the back office. It runs the same validations as the
// electronic strategy but never talks to the gateway, so once validation
// passes it cannot fail.
type Manual struct {
	engine
	db      ports.DBPort
	events  ports.EventPublisher
	metrics *observability.Metrics
}

// NewManual builds the manual refund strategy.
func NewManual(
	db ports.DBPort,
	payments ports.PaymentRepository,
	methods ports.PaymentMethodRepository,
	events ports.EventPublisher,
	logger ports.Logger,
	metrics *observability.Metrics,
) *Manual {
	return &Manual{
		engine: engine{
			payments: payments,
			methods:  methods,
			logger:   logger,
			now:      time.Now,
		},
		db:      db,
		events:  events,
		metrics: metrics,
	}
}

// Refund records the out-of-band credit directly as CREDITED.
func (m *Manual) Refund(ctx context.Context, req Request) (*Result, error) {
	original, err := m.loadOriginal(ctx, req)
	if err != nil {
		return nil, err
	}

	clone, done, err := m.resolveRefund(ctx, req, original, domain.PaymentStatusCredited)
	if err != nil {
		return nil, err
	}
	if done != nil {
		return done, nil
	}

	now := m.now()
	clone.GatewayID = domain.GatewayManual
	clone.Type = domain.PaymentTypeCheck
	clone.ProcessedAt = &now

	err = m.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if req.ExistingRefundID == "" {
			clone.Status = domain.PaymentStatusCredited
			return m.payments.Create(ctx, tx, clone)
		}
		// A reused row may carry the electronic routing from the prior
		// attempt; persist the manual retag before finalizing.
		if err := m.payments.UpdateRefundRouting(ctx, tx, clone.ID, domain.GatewayManual, domain.PaymentTypeCheck, req.RequestedBy); err != nil {
			return err
		}
		return m.payments.UpdateStatus(ctx, tx, clone.ID, domain.PaymentStatusCredited, &now, nil, req.RequestedBy)
	})
	if err != nil {
		return nil, err
	}

	m.metrics.RefundProcessed("manual", "credited")
	m.logger.Info("manual refund recorded",
		ports.String("original_payment_id", original.ID),
		ports.String("refund_payment_id", clone.ID))

	return &Result{
		IsSuccess:       true,
		Status:          domain.PaymentStatusCredited,
		RefundPaymentID: clone.ID,
	}, nil
}
