package refund

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
	"github.com/meridianpay/payment-engine/internal/observability"
	"github.com/meridianpay/payment-engine/internal/processor"
)

// ElectronicConfig tunes the eligibility rules for gateway refunds.
type ElectronicConfig struct {
	Cutoff Cutoff
	// WindowDays bounds how long after processing an electronic refund may
	// run. Values above MaxWindowDays are clamped at configuration time.
	WindowDays int
}

// MaxWindowDays is the hard ceiling on the electronic refund window.
const MaxWindowDays = 45

// Electronic issues refunds through the gateway's credit operation. The
// original charge must be an electronic payment that has cleared the
// gateway's end-of-day cutoff and still falls inside the refund window.
type Electronic struct {
	engine
	db      ports.DBPort
	txns    ports.TransactionRepository
	failed  ports.FailedRefundRepository
	gateway ports.Gateway
	events  ports.EventPublisher
	metrics *observability.Metrics
	cfg     ElectronicConfig
}

// NewElectronic builds the electronic refund strategy.
func NewElectronic(
	db ports.DBPort,
	payments ports.PaymentRepository,
	methods ports.PaymentMethodRepository,
	txns ports.TransactionRepository,
	failed ports.FailedRefundRepository,
	gateway ports.Gateway,
	events ports.EventPublisher,
	logger ports.Logger,
	metrics *observability.Metrics,
	cfg ElectronicConfig,
) *Electronic {
	if cfg.WindowDays <= 0 || cfg.WindowDays > MaxWindowDays {
		cfg.WindowDays = MaxWindowDays
	}
	return &Electronic{
		engine: engine{
			payments: payments,
			methods:  methods,
			logger:   logger,
			now:      time.Now,
		},
		db:      db,
		txns:    txns,
		failed:  failed,
		gateway: gateway,
		events:  events,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Refund credits the original payment back through the gateway. Gateway
// declines are reported in the Result and audited, not raised; eligibility
// failures come back as refund-ineligible errors.
func (e *Electronic) Refund(ctx context.Context, req Request) (*Result, error) {
	original, err := e.loadOriginal(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := e.checkEligibility(original); err != nil {
		return nil, err
	}

	captureTxn, err := e.txns.FindByPaymentAndOperations(ctx, nil, original.ID,
		[]domain.OperationType{domain.OperationCapture, domain.OperationAuthCapture})
	if err != nil {
		return nil, err
	}
	if captureTxn == nil {
		return nil, domain.ErrTransactionNotFound
	}

	clone, done, err := e.resolveRefund(ctx, req, original, domain.PaymentStatusCrediting)
	if err != nil {
		return nil, err
	}
	if done != nil {
		return done, nil
	}

	var (
		ok          bool
		finalStatus domain.PaymentStatus
		txnID       string
		errMsg      string
	)

	err = e.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if req.ExistingRefundID == "" {
			if err := e.payments.Create(ctx, tx, clone); err != nil {
				return err
			}
		}

		proc := processor.New(e.gateway, func(ctx context.Context, txn *domain.Transaction) error {
			return e.txns.Create(ctx, tx, txn)
		}, e.logger)
		proc.SetFields(processor.BuildFollowUpRequest(clone, captureTxn.GatewayTransactionID, req.Amount))

		ok, err = proc.Credit(ctx)
		if err != nil {
			return err
		}
		if txn := proc.LastTransaction(); txn != nil {
			txnID = txn.GatewayTransactionID
		}
		errMsg = proc.ErrorMessage()

		finalStatus = domain.PaymentStatusDeclined
		var processedAt *time.Time
		if ok {
			finalStatus = domain.PaymentStatusCredited
			t := e.now()
			processedAt = &t
		}
		if err := e.payments.UpdateStatus(ctx, tx, clone.ID, finalStatus, processedAt, nil, req.RequestedBy); err != nil {
			return err
		}

		if !ok {
			return e.failed.Create(ctx, tx, &domain.FailedRefundPayment{
				ID:                uuid.NewString(),
				OriginalPaymentID: original.ID,
				RefundPaymentID:   clone.ID,
				Amount:            req.Amount,
				FailureReason:     errMsg,
				ReportedAt:        e.now(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ok {
		e.metrics.RefundProcessed("electronic", "credited")
		e.logger.Info("refund credited",
			ports.String("original_payment_id", original.ID),
			ports.String("refund_payment_id", clone.ID))
	} else {
		e.metrics.RefundProcessed("electronic", "declined")
		e.events.Publish(ctx, domain.RefundFailed{
			OriginalPaymentID: original.ID,
			RefundPaymentID:   clone.ID,
			Amount:            req.Amount,
			Reason:            errMsg,
		})
		e.logger.Warn("refund declined",
			ports.String("original_payment_id", original.ID),
			ports.String("refund_payment_id", clone.ID),
			ports.String("reason", errMsg))
	}

	return &Result{
		IsSuccess:       ok,
		Status:          finalStatus,
		RefundPaymentID: clone.ID,
		TransactionID:   txnID,
		ErrorMessage:    errMsg,
	}, nil
}

// checkEligibility applies the gateway-specific rules on top of the common
// refund validations.
func (e *Electronic) checkEligibility(original *domain.Payment) error {
	if !original.Type.IsElectronic() {
		return domain.NewRefundIneligibleError(
			fmt.Sprintf("payment type %s cannot be refunded electronically", original.Type))
	}
	if original.ProcessedAt == nil {
		return domain.NewRefundIneligibleError("original payment has not been processed")
	}

	now := e.now()
	if !e.cfg.Cutoff.HasCleared(*original.ProcessedAt, now) {
		return domain.NewRefundIneligibleError("original payment has not cleared the gateway cutoff")
	}
	deadline := original.ProcessedAt.AddDate(0, 0, e.cfg.WindowDays)
	if now.After(deadline) {
		return domain.NewRefundIneligibleError(
			fmt.Sprintf("refund window of %d days has elapsed", e.cfg.WindowDays))
	}
	return nil
}
