package domain

import (
	"time"
)

// OperationType represents one financial verb executed against a gateway.
type OperationType string

const (
	OperationAuthorize   OperationType = "AUTHORIZE"
	OperationCapture     OperationType = "CAPTURE"
	OperationCancel      OperationType = "CANCEL"
	OperationCredit      OperationType = "CREDIT"
	OperationCheckStatus OperationType = "CHECK_STATUS"
	OperationAuthCapture OperationType = "AUTH_CAPTURE"
)

// DeclineReason classifies why a gateway call was unsuccessful.
type DeclineReason string

const (
	DeclineReasonInsufficientFunds DeclineReason = "INSUFFICIENT_FUNDS"
	DeclineReasonExpiredCard       DeclineReason = "EXPIRED_CARD"
	DeclineReasonInvalidAccount    DeclineReason = "INVALID_ACCOUNT"
	DeclineReasonDoNotHonor        DeclineReason = "DO_NOT_HONOR"
	DeclineReasonFraudSuspected    DeclineReason = "FRAUD_SUSPECTED"
	DeclineReasonProcessorError    DeclineReason = "PROCESSOR_ERROR"
	DeclineReasonUnknown           DeclineReason = "UNKNOWN"
)

// Transaction is the immutable audit record of one gateway round trip. Rows
// are created only as a side effect of a completed operation and are never
// mutated afterwards.
type Transaction struct {
	ID                   string
	PaymentID            string
	Operation            OperationType
	RawRequest           string
	RawResponse          string
	GatewayTransactionID string
	GatewayResponseCode  string
	DeclineReason        *DeclineReason
	CreatedAt            time.Time
}
