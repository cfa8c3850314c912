// Package processor orchestrates operations against a bound payment gateway.
package processor

import (
	"context"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
	"github.com/meridianpay/payment-engine/internal/operation"
)

// Processor holds the current instrument/billing field set and a bound
// gateway, and drives one operation lifecycle per verb call. It is not safe
// for concurrent use; each unit of work builds its own Processor.
type Processor struct {
	gateway ports.Gateway
	record  operation.RecordFunc
	logger  ports.Logger

	fields ports.GatewayRequest

	lastTransaction *domain.Transaction
	lastRawRequest  string
	lastRawResponse string
	errorMessage    string
}

// New creates a processor bound to a gateway. record may be nil when the
// caller does not want transaction audit rows (status probes in tests).
func New(gateway ports.Gateway, record operation.RecordFunc, logger ports.Logger) *Processor {
	return &Processor{
		gateway: gateway,
		record:  record,
		logger:  logger,
	}
}

// SetFields replaces the processor's current field set.
func (p *Processor) SetFields(fields ports.GatewayRequest) {
	p.fields = fields
}

// Fields returns a copy of the current field set.
func (p *Processor) Fields() ports.GatewayRequest {
	return p.fields
}

// Sale performs a combined authorize+capture in one gateway call.
func (p *Processor) Sale(ctx context.Context) (bool, error) {
	return p.run(ctx, domain.OperationAuthCapture)
}

// Authorize authorizes without capturing funds.
func (p *Processor) Authorize(ctx context.Context) (bool, error) {
	return p.run(ctx, domain.OperationAuthorize)
}

// Capture captures a previously authorized payment.
func (p *Processor) Capture(ctx context.Context) (bool, error) {
	return p.run(ctx, domain.OperationCapture)
}

// Cancel voids a prior authorization or capture.
func (p *Processor) Cancel(ctx context.Context) (bool, error) {
	return p.run(ctx, domain.OperationCancel)
}

// Status queries the gateway for the current state of a prior transaction.
func (p *Processor) Status(ctx context.Context) (bool, error) {
	return p.run(ctx, domain.OperationCheckStatus)
}

// Credit returns funds against a prior capture.
func (p *Processor) Credit(ctx context.Context) (bool, error) {
	return p.run(ctx, domain.OperationCredit)
}

// run instantiates the verb's operation, copies the current field set into
// it, and drives the lifecycle. A nil gateway is a configuration error and
// always propagates.
func (p *Processor) run(ctx context.Context, verb domain.OperationType) (bool, error) {
	if p.gateway == nil {
		return false, domain.ErrNoGatewayConfigured
	}

	op := operation.New(verb, p.gateway, p.record, p.logger)
	err := op.Run(ctx, p.fields)

	p.lastTransaction = op.Transaction()
	p.lastRawRequest = op.RawRequest()
	p.lastRawResponse = op.RawResponse()
	p.errorMessage = op.ErrorMessage()

	if err != nil {
		return false, err
	}
	return op.Successful(), nil
}

// ErrorMessage returns the last operation's soft-failure or decline message.
func (p *Processor) ErrorMessage() string { return p.errorMessage }

// LastTransaction returns the last produced transaction record, regardless
// of outcome.
func (p *Processor) LastTransaction() *domain.Transaction { return p.lastTransaction }

// LastRawRequest returns the last canonical request snapshot.
func (p *Processor) LastRawRequest() string { return p.lastRawRequest }

// LastRawResponse returns the last raw gateway response.
func (p *Processor) LastRawResponse() string { return p.lastRawResponse }
