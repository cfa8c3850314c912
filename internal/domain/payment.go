package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents where a payment sits in its lifecycle.
// A payment is created in an in-flight status (AUTHORIZING, AUTH_CAPTURING,
// CREDITING) and moved exactly once per operation outcome.
type PaymentStatus string

const (
	PaymentStatusAuthorizing   PaymentStatus = "AUTHORIZING"
	PaymentStatusAuthorized    PaymentStatus = "AUTHORIZED"
	PaymentStatusAuthCapturing PaymentStatus = "AUTH_CAPTURING"
	PaymentStatusCapturing     PaymentStatus = "CAPTURING"
	PaymentStatusCaptured      PaymentStatus = "CAPTURED"
	PaymentStatusDeclined      PaymentStatus = "DECLINED"
	PaymentStatusCancelling    PaymentStatus = "CANCELLING"
	PaymentStatusCancelled     PaymentStatus = "CANCELLED"
	PaymentStatusCrediting     PaymentStatus = "CREDITING"
	PaymentStatusCredited      PaymentStatus = "CREDITED"
	PaymentStatusSuspended     PaymentStatus = "SUSPENDED"
	PaymentStatusTerminated    PaymentStatus = "TERMINATED"
	PaymentStatusReturned      PaymentStatus = "RETURNED"
	PaymentStatusSettled       PaymentStatus = "SETTLED"
	PaymentStatusProcessed     PaymentStatus = "PROCESSED"
)

// paymentStatuses is the closed set of valid statuses.
var paymentStatuses = map[PaymentStatus]struct{}{
	PaymentStatusAuthorizing: {}, PaymentStatusAuthorized: {},
	PaymentStatusAuthCapturing: {}, PaymentStatusCapturing: {},
	PaymentStatusCaptured: {}, PaymentStatusDeclined: {},
	PaymentStatusCancelling: {}, PaymentStatusCancelled: {},
	PaymentStatusCrediting: {}, PaymentStatusCredited: {},
	PaymentStatusSuspended: {}, PaymentStatusTerminated: {},
	PaymentStatusReturned: {}, PaymentStatusSettled: {},
	PaymentStatusProcessed: {},
}

// IsValid reports whether s is one of the enumerated statuses.
func (s PaymentStatus) IsValid() bool {
	_, ok := paymentStatuses[s]
	return ok
}

// PaymentType represents the instrument class behind a payment.
type PaymentType string

const (
	PaymentTypeCC         PaymentType = "CC"
	PaymentTypeACH        PaymentType = "ACH"
	PaymentTypeCash       PaymentType = "CASH"
	PaymentTypeCheck      PaymentType = "CHECK"
	PaymentTypeCoupon     PaymentType = "COUPON"
	PaymentTypeCreditMemo PaymentType = "CREDIT_MEMO"
)

// IsElectronic reports whether the type settles through a gateway.
func (t PaymentType) IsElectronic() bool {
	return t == PaymentTypeCC || t == PaymentTypeACH
}

// SuspendReason classifies why a batch attempt was withheld from the gateway.
type SuspendReason string

const (
	SuspendReasonDuplicate SuspendReason = "DUPLICATE"
)

// GatewayManual tags payments corrected on the ledger without a gateway round
// trip (manual refunds, check corrections).
const GatewayManual = "MANUAL"

// Payment is one monetary payment against an account.
type Payment struct {
	ID                string
	AccountID         string
	PaymentMethodID   string
	OriginalPaymentID *string // set on refund clones
	Type              PaymentType
	GatewayID         string
	Amount            decimal.Decimal
	AppliedAmount     decimal.Decimal
	Currency          string
	Status            PaymentStatus
	ProcessedAt       *time.Time
	SuspendReason     *SuspendReason
	InvoiceIDs        []string
	IsBatch           bool
	IsScheduled       bool
	CreatedBy         string
	UpdatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate enforces the payment invariants: a known status, a non-negative
// amount, and an applied amount that never exceeds the amount.
func (p *Payment) Validate() error {
	if !p.Status.IsValid() {
		return NewDomainError(ErrorCodeInvalidStatus, "unknown payment status").
			WithDetail("status", string(p.Status))
	}
	if p.Amount.IsNegative() {
		return ErrValidationAmountInvalid
	}
	if p.AppliedAmount.GreaterThan(p.Amount) {
		return NewDomainError(ErrorCodeValidationAmountInvalid, "applied amount exceeds payment amount")
	}
	return nil
}

// RefundClone derives the refund payment row for this payment. The clone
// starts in the given status with the requested amount and points back at the
// original.
func (p *Payment) RefundClone(id string, amount decimal.Decimal, status PaymentStatus, createdBy string, now time.Time) *Payment {
	origID := p.ID
	return &Payment{
		ID:                id,
		AccountID:         p.AccountID,
		PaymentMethodID:   p.PaymentMethodID,
		OriginalPaymentID: &origID,
		Type:              p.Type,
		GatewayID:         p.GatewayID,
		Amount:            amount,
		AppliedAmount:     decimal.Zero,
		Currency:          p.Currency,
		Status:            status,
		InvoiceIDs:        append([]string(nil), p.InvoiceIDs...),
		IsBatch:           false,
		IsScheduled:       false,
		CreatedBy:         createdBy,
		UpdatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
