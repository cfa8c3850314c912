package domain

import (
	"time"
)

// ScheduledPaymentStatus tracks the single PENDING -> {SUBMITTED, CANCELLED}
// transition of a scheduled payment.
type ScheduledPaymentStatus string

const (
	ScheduledPaymentStatusPending   ScheduledPaymentStatus = "PENDING"
	ScheduledPaymentStatusSubmitted ScheduledPaymentStatus = "SUBMITTED"
	ScheduledPaymentStatusCancelled ScheduledPaymentStatus = "CANCELLED"
)

// ScheduledPaymentTrigger names what queued the payment.
type ScheduledPaymentTrigger string

const (
	TriggerAutopay   ScheduledPaymentTrigger = "AUTOPAY"
	TriggerOneTime   ScheduledPaymentTrigger = "ONE_TIME"
	TriggerRecurring ScheduledPaymentTrigger = "RECURRING"
)

// ScheduledPayment is a queued unattended charge for an account.
type ScheduledPayment struct {
	ID              string
	AccountID       string
	PaymentMethodID string
	Trigger         ScheduledPaymentTrigger
	Status          ScheduledPaymentStatus
	Metadata        map[string]string
	PaymentID       *string // set once submitted
	ScheduledFor    time.Time
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
