package ports

import (
	"context"

	"github.com/meridianpay/payment-engine/internal/domain"
)

// GatewayRequest is the canonical operation field set sent to a payment
// processor. The JSON encoding of this struct is the raw request snapshot
// recorded on the transaction for audit replay.
type GatewayRequest struct {
	PaymentType            string `json:"payment_type,omitempty"`
	ReferenceID            string `json:"reference_id,omitempty"`
	CardToken              string `json:"token,omitempty"`
	ACHToken               string `json:"ach_token,omitempty"`
	CardExpYear            string `json:"cc_exp_year,omitempty"`
	CardExpMonth           string `json:"cc_exp_month,omitempty"`
	ACHAccountNumber       string `json:"ach_account_number,omitempty"`
	ACHRoutingNumber       string `json:"ach_routing_number,omitempty"`
	ACHAccountType         string `json:"ach_account_type,omitempty"`
	NameOnAccount          string `json:"name_on_account,omitempty"`
	AddressLine1           string `json:"address_line_1,omitempty"`
	AddressLine2           string `json:"address_line_2,omitempty"`
	City                   string `json:"city,omitempty"`
	Province               string `json:"province,omitempty"`
	PostalCode             string `json:"postal_code,omitempty"`
	CountryCode            string `json:"country_code,omitempty"`
	EmailAddress           string `json:"email_address,omitempty"`
	AmountMinor            int64  `json:"amount,omitempty"`
	Currency               string `json:"currency,omitempty"`
	ChargeDescription      string `json:"charge_description,omitempty"`
	TransactionID          string `json:"transaction_id,omitempty"`
	ReferenceTransactionID string `json:"reference_transaction_id,omitempty"`
}

// GatewayResponse is the processor's answer to one operation.
type GatewayResponse struct {
	RawResponse          string
	TransactionID        string
	TransactionStatus    string
	ResponseCode         string
	Successful           bool
	ErrorMessage         string
	DeclineReason        *domain.DeclineReason
	ReportedPaymentState domain.PaymentStatus
}

// Gateway is the capability contract implemented per payment processor.
// Implementations return an error only for transport/processor failures and
// for the two hard conditions (business-rule violation, card validation
// rejection) which they surface as DomainErrors; a declined payment is a
// normal response with Successful=false.
type Gateway interface {
	Authorize(ctx context.Context, req *GatewayRequest) (*GatewayResponse, error)
	Capture(ctx context.Context, req *GatewayRequest) (*GatewayResponse, error)
	Cancel(ctx context.Context, req *GatewayRequest) (*GatewayResponse, error)
	Credit(ctx context.Context, req *GatewayRequest) (*GatewayResponse, error)
	Status(ctx context.Context, req *GatewayRequest) (*GatewayResponse, error)
	AuthCapture(ctx context.Context, req *GatewayRequest) (*GatewayResponse, error)
}
