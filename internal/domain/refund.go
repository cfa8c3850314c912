package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FailedRefundPayment records an unsuccessful refund attempt. Rows are
// append-only and never mutated after creation.
type FailedRefundPayment struct {
	ID                string
	OriginalPaymentID string
	RefundPaymentID   string
	Amount            decimal.Decimal
	FailureReason     string
	ReportedAt        time.Time
}
