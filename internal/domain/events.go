package domain

import (
	"github.com/shopspring/decimal"
)

// Event is a domain event consumed by notification/audit collaborators.
type Event interface {
	EventName() string
}

// PaymentAttempted is emitted after a batch charge reached the gateway,
// whether it was captured or declined.
type PaymentAttempted struct {
	PaymentID       string
	AccountID       string
	PaymentMethodID string
	Amount          decimal.Decimal
	Status          PaymentStatus
	Successful      bool
}

func (PaymentAttempted) EventName() string { return "payment.attempted" }

// PaymentSkipped is emitted when a batch guard withheld a charge from the
// gateway.
type PaymentSkipped struct {
	AccountID       string
	PaymentMethodID string
	Reason          string
}

func (PaymentSkipped) EventName() string { return "payment.skipped" }

// ScheduledPaymentSubmitted is emitted when a scheduled payment transitions
// PENDING -> SUBMITTED.
type ScheduledPaymentSubmitted struct {
	ScheduledPaymentID string
	PaymentID          string
	AccountID          string
}

func (ScheduledPaymentSubmitted) EventName() string { return "scheduled_payment.submitted" }

// ScheduledPaymentCancelled is emitted when a scheduled payment transitions
// PENDING -> CANCELLED.
type ScheduledPaymentCancelled struct {
	ScheduledPaymentID string
	AccountID          string
	Reason             string
}

func (ScheduledPaymentCancelled) EventName() string { return "scheduled_payment.cancelled" }

// RefundFailed is emitted when an electronic refund was declined or errored.
type RefundFailed struct {
	OriginalPaymentID string
	RefundPaymentID   string
	Amount            decimal.Decimal
	Reason            string
}

func (RefundFailed) EventName() string { return "refund.failed" }
