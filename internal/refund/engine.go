package refund

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
)

// Request describes a refund to perform against an original payment.
type Request struct {
	OriginalPaymentID string
	Amount            decimal.Decimal
	// ExistingRefundID names a previously created refund payment to reuse
	// instead of cloning a new one. Retries pass the id from the prior
	// attempt so the operation stays idempotent.
	ExistingRefundID string
	RequestedBy      string
}

// Result reports the outcome of a refund attempt. Gateway declines surface
// here rather than as errors.
type Result struct {
	IsSuccess       bool
	Status          domain.PaymentStatus
	RefundPaymentID string
	TransactionID   string
	ErrorMessage    string
}

// Refunder executes a refund using one strategy (electronic or manual).
type Refunder interface {
	Refund(ctx context.Context, req Request) (*Result, error)
}

// engine holds the collaborators and validations shared by both strategies.
type engine struct {
	payments ports.PaymentRepository
	methods  ports.PaymentMethodRepository
	logger   ports.Logger
	now      func() time.Time
}

// loadOriginal fetches the original payment and its method and runs the
// checks common to every refund:
//
//   - the payment method must still exist
//   - the original status must admit a credit operation
//   - no prior refund of the original may have already succeeded
//   - the refund amount must not exceed the original amount
func (e *engine) loadOriginal(ctx context.Context, req Request) (*domain.Payment, error) {
	if req.OriginalPaymentID == "" {
		return nil, domain.NewRefundIneligibleError("original payment id is required")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.NewRefundIneligibleError("refund amount must be positive")
	}

	original, err := e.payments.GetByID(ctx, nil, req.OriginalPaymentID)
	if err != nil {
		return nil, err
	}

	method, err := e.methods.GetByID(ctx, nil, original.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	if method.IsDeleted() {
		return nil, domain.NewRefundIneligibleError("payment method no longer exists")
	}

	if !creditEligible(original.Status) {
		return nil, domain.NewRefundIneligibleError(
			fmt.Sprintf("status %s does not permit a credit", original.Status))
	}

	prior, err := e.payments.FindSuccessfulRefund(ctx, nil, original.ID)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return nil, domain.NewRefundIneligibleError("payment has already been refunded")
	}

	if req.Amount.GreaterThan(original.Amount) {
		return nil, domain.NewRefundIneligibleError("refund amount exceeds original payment amount")
	}

	return original, nil
}

// resolveRefund returns the refund payment to work with: the caller-supplied
// existing refund when one is named, otherwise a fresh clone of the original
// in the given initial status. Finalized existing refunds short-circuit to a
// Result so retries are idempotent.
func (e *engine) resolveRefund(ctx context.Context, req Request, original *domain.Payment, initial domain.PaymentStatus) (*domain.Payment, *Result, error) {
	if req.ExistingRefundID == "" {
		clone := original.RefundClone(uuid.NewString(), req.Amount, initial, req.RequestedBy, e.now())
		return clone, nil, nil
	}

	existing, err := e.payments.GetByID(ctx, nil, req.ExistingRefundID)
	if err != nil {
		return nil, nil, err
	}
	if existing.OriginalPaymentID == nil || *existing.OriginalPaymentID != original.ID {
		return nil, nil, domain.NewRefundIneligibleError("existing refund does not reference the original payment")
	}

	switch existing.Status {
	case domain.PaymentStatusCredited:
		return nil, &Result{
			IsSuccess:       true,
			Status:          existing.Status,
			RefundPaymentID: existing.ID,
		}, nil
	case domain.PaymentStatusDeclined:
		return nil, &Result{
			IsSuccess:       false,
			Status:          existing.Status,
			RefundPaymentID: existing.ID,
			ErrorMessage:    "refund was previously declined",
		}, nil
	}
	return existing, nil, nil
}

// creditEligible reports whether a payment in the given status can be
// credited: the status must admit capture-style operations, which rules out
// declined, in-flight authorization and already-credited states.
func creditEligible(status domain.PaymentStatus) bool {
	if status == domain.PaymentStatusDeclined {
		return false
	}
	ops, err := domain.OperationsForStatus(status)
	if err != nil {
		return false
	}
	for _, op := range ops {
		if op == domain.OperationCapture || op == domain.OperationAuthCapture {
			return true
		}
	}
	return false
}
