package operation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
)

// RecordFunc persists a transaction audit row. The orchestrator binds it to
// the repository and, when present, the enclosing database transaction.
type RecordFunc func(ctx context.Context, txn *domain.Transaction) error

// Operation is one financial verb driven through its linear lifecycle:
// Populate -> SetUp -> Validate -> Process -> HandleResponse -> TearDown.
// There is no re-entry; a finished operation is discarded.
type Operation struct {
	verb    domain.OperationType
	req     ports.GatewayRequest
	gateway ports.Gateway
	record  RecordFunc
	logger  ports.Logger
	now     func() time.Time

	resp *ports.GatewayResponse

	rawRequest           string
	rawResponse          string
	gatewayTransactionID string
	gatewayStatus        string
	successful           bool
	declineReason        *domain.DeclineReason
	errorMessage         string
	transaction          *domain.Transaction

	validated bool
}

// New creates an operation for the given verb. The gateway must already be
// bound by the caller.
func New(verb domain.OperationType, gateway ports.Gateway, record RecordFunc, logger ports.Logger) *Operation {
	return &Operation{
		verb:    verb,
		gateway: gateway,
		record:  record,
		logger:  logger,
		now:     time.Now,
	}
}

// Populate copies the request context into the operation.
func (o *Operation) Populate(req ports.GatewayRequest) {
	o.req = req
}

// SetUp performs optional pre-conditioning of the field set.
func (o *Operation) SetUp() {
	if o.req.PaymentType == "" && o.req.CardToken != "" {
		o.req.PaymentType = string(domain.PaymentTypeCC)
	}
	if o.req.PaymentType == "" && (o.req.ACHToken != "" || o.req.ACHAccountNumber != "") {
		o.req.PaymentType = string(domain.PaymentTypeACH)
	}
}

// Validate applies the verb's field rules. It must run before Process and
// returns a ValidationError carrying every violated rule.
func (o *Operation) Validate() error {
	if err := Validate(o.verb, &o.req); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// Process builds the canonical request snapshot, stores it as the raw
// request, and invokes the matching gateway verb. Business-rule violations
// and card-validation rejections reported by the gateway propagate; every
// other gateway failure is converted into an unsuccessful outcome with an
// error message so batch callers can continue.
func (o *Operation) Process(ctx context.Context) error {
	if !o.validated {
		return domain.NewDomainError(domain.ErrorCodeInternalError, "operation processed before validation")
	}

	raw, err := Snapshot(&o.req)
	if err != nil {
		return err
	}
	o.rawRequest = raw

	resp, err := o.dispatch(ctx)
	if err != nil {
		if domain.IsHardGatewayError(err) {
			return err
		}
		o.successful = false
		o.errorMessage = err.Error()
		o.logger.Warn("gateway call failed",
			ports.String("operation", string(o.verb)),
			ports.String("reference_id", o.req.ReferenceID),
			ports.Err(err))
		return nil
	}

	o.resp = resp
	return nil
}

// dispatch routes the verb to the matching gateway method.
func (o *Operation) dispatch(ctx context.Context) (*ports.GatewayResponse, error) {
	switch o.verb {
	case domain.OperationAuthorize:
		return o.gateway.Authorize(ctx, &o.req)
	case domain.OperationCapture:
		return o.gateway.Capture(ctx, &o.req)
	case domain.OperationCancel:
		return o.gateway.Cancel(ctx, &o.req)
	case domain.OperationCredit:
		return o.gateway.Credit(ctx, &o.req)
	case domain.OperationCheckStatus:
		return o.gateway.Status(ctx, &o.req)
	case domain.OperationAuthCapture:
		return o.gateway.AuthCapture(ctx, &o.req)
	default:
		return nil, domain.NewDomainError(domain.ErrorCodeInternalError, "unknown operation verb").
			WithDetail("verb", string(o.verb))
	}
}

// HandleResponse copies the gateway outcome onto the operation and, when the
// reference id is a well-formed identifier and the gateway returned a
// transaction id, persists the transaction audit record. Otherwise the row is
// skipped and the skip is logged.
func (o *Operation) HandleResponse(ctx context.Context) error {
	if o.resp == nil {
		// Soft gateway failure already captured in Process.
		return nil
	}

	o.rawResponse = o.resp.RawResponse
	o.gatewayTransactionID = o.resp.TransactionID
	o.gatewayStatus = o.resp.TransactionStatus
	o.successful = o.resp.Successful
	o.declineReason = o.resp.DeclineReason
	if !o.resp.Successful {
		o.errorMessage = o.resp.ErrorMessage
	}

	if !IsValidReferenceID(o.req.ReferenceID) || o.gatewayTransactionID == "" {
		o.logger.Warn("skipping transaction audit record",
			ports.String("operation", string(o.verb)),
			ports.String("reference_id", o.req.ReferenceID),
			ports.String("gateway_transaction_id", o.gatewayTransactionID))
		return nil
	}

	txn := &domain.Transaction{
		ID:                   uuid.New().String(),
		PaymentID:            o.req.ReferenceID,
		Operation:            o.verb,
		RawRequest:           o.rawRequest,
		RawResponse:          o.rawResponse,
		GatewayTransactionID: o.gatewayTransactionID,
		GatewayResponseCode:  o.resp.ResponseCode,
		DeclineReason:        o.declineReason,
		CreatedAt:            o.now(),
	}

	if o.record != nil {
		if err := o.record(ctx, txn); err != nil {
			return domain.WrapError(domain.ErrorCodeDatabaseError, "record transaction", err)
		}
	}
	o.transaction = txn
	return nil
}

// TearDown releases per-operation state once the outcome has been read.
func (o *Operation) TearDown() {
	o.resp = nil
}

// Successful reports whether the gateway approved the operation.
func (o *Operation) Successful() bool { return o.successful }

// ErrorMessage returns the soft-failure or decline message, if any.
func (o *Operation) ErrorMessage() string { return o.errorMessage }

// DeclineReason returns the gateway's decline classification, if any.
func (o *Operation) DeclineReason() *domain.DeclineReason { return o.declineReason }

// Transaction returns the audit record persisted for this operation, or nil.
func (o *Operation) Transaction() *domain.Transaction { return o.transaction }

// RawRequest returns the canonical request snapshot.
func (o *Operation) RawRequest() string { return o.rawRequest }

// RawResponse returns the raw gateway response text.
func (o *Operation) RawResponse() string { return o.rawResponse }

// GatewayTransactionID returns the processor's transaction id.
func (o *Operation) GatewayTransactionID() string { return o.gatewayTransactionID }

// GatewayStatus returns the processor's transaction status text.
func (o *Operation) GatewayStatus() string { return o.gatewayStatus }

// Run drives the full lifecycle in order. Validation failures and hard
// gateway errors propagate; soft gateway failures leave the operation
// unsuccessful with an error message.
func (o *Operation) Run(ctx context.Context, req ports.GatewayRequest) error {
	o.Populate(req)
	o.SetUp()
	if err := o.Validate(); err != nil {
		return err
	}
	if err := o.Process(ctx); err != nil {
		return err
	}
	if err := o.HandleResponse(ctx); err != nil {
		return err
	}
	o.TearDown()
	return nil
}

// IsValidationFailure reports whether err is an operation validation failure.
func IsValidationFailure(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve)
}
