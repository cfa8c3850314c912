package operation_test

import (
	"testing"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
	"github.com/meridianpay/payment-engine/internal/operation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validChargeRequest() *ports.GatewayRequest {
	return &ports.GatewayRequest{
		ReferenceID:   "b7f9a4a2-3b0c-4f35-9d41-8f2d6a1c5e77",
		CardToken:     "tok_4242",
		CardExpYear:   "2027",
		CardExpMonth:  "09",
		NameOnAccount: "Ada Lovelace",
		AddressLine1:  "12 Analytical Way",
		City:          "London",
		Province:      "Greater London",
		PostalCode:    "EC1A 1BB",
		AmountMinor:   12050,
		Currency:      "USD",
	}
}

func violationsOf(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	return ve.Violations
}

func TestValidate_AuthCapture_Valid(t *testing.T) {
	assert.NoError(t, operation.Validate(domain.OperationAuthCapture, validChargeRequest()))
}

func TestValidate_Authorize_ACHAccountAndRouting(t *testing.T) {
	req := validChargeRequest()
	req.CardToken = ""
	req.CardExpYear = ""
	req.CardExpMonth = ""
	req.ACHAccountNumber = "123456789"
	req.ACHRoutingNumber = "021000021"
	req.ACHAccountType = "CHECKING"

	assert.NoError(t, operation.Validate(domain.OperationAuthorize, req))
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	req := &ports.GatewayRequest{
		ReferenceID: "not-a-uuid",
		AmountMinor: -1,
	}

	violations := violationsOf(t, operation.Validate(domain.OperationAuthCapture, req))

	assert.Contains(t, violations, "exactly one payment instrument is required: token, ach_token, or ach_account_number with ach_routing_number")
	assert.Contains(t, violations, "name_on_account is required")
	assert.Contains(t, violations, "address_line_1 is required")
	assert.Contains(t, violations, "city is required")
	assert.Contains(t, violations, "province is required")
	assert.Contains(t, violations, "postal_code is required")
	assert.Contains(t, violations, "amount must not be negative")
	assert.Contains(t, violations, "currency is required")
	assert.Contains(t, violations, "reference_id must be a valid UUID")
	assert.GreaterOrEqual(t, len(violations), 9)
}

func TestValidate_NoInstrument(t *testing.T) {
	req := validChargeRequest()
	req.CardToken = ""
	req.CardExpYear = ""
	req.CardExpMonth = ""

	violations := violationsOf(t, operation.Validate(domain.OperationAuthCapture, req))
	assert.Contains(t, violations, "exactly one payment instrument is required: token, ach_token, or ach_account_number with ach_routing_number")
}

func TestValidate_MultipleInstruments(t *testing.T) {
	req := validChargeRequest()
	req.ACHToken = "ach_tok_99"

	violations := violationsOf(t, operation.Validate(domain.OperationAuthCapture, req))
	assert.Contains(t, violations, "multiple payment instruments supplied: token, ach_token, and ach account fields are mutually exclusive")
}

func TestValidate_ACHAccountWithoutRouting(t *testing.T) {
	req := validChargeRequest()
	req.CardToken = ""
	req.CardExpYear = ""
	req.CardExpMonth = ""
	req.ACHAccountNumber = "123456789"

	violations := violationsOf(t, operation.Validate(domain.OperationAuthCapture, req))
	assert.Contains(t, violations, "ach_routing_number is required when ach_account_number is supplied")
}

func TestValidate_CardTokenWithoutExpiration(t *testing.T) {
	req := validChargeRequest()
	req.CardExpYear = ""
	req.CardExpMonth = ""

	violations := violationsOf(t, operation.Validate(domain.OperationAuthCapture, req))
	assert.Contains(t, violations, "cc_exp_year is required with token")
	assert.Contains(t, violations, "cc_exp_month is required with token")
}

func TestValidate_FollowUpVerbs_RequireReferenceTransaction(t *testing.T) {
	for _, verb := range []domain.OperationType{
		domain.OperationCapture,
		domain.OperationCredit,
		domain.OperationCancel,
		domain.OperationCheckStatus,
	} {
		t.Run(string(verb), func(t *testing.T) {
			violations := violationsOf(t, operation.Validate(verb, &ports.GatewayRequest{Currency: "USD"}))
			assert.Contains(t, violations, "reference_transaction_id is required")
		})
	}
}

func TestValidate_FollowUpVerbs_Valid(t *testing.T) {
	req := &ports.GatewayRequest{
		ReferenceTransactionID: "TXN-0012345",
		AmountMinor:            4025,
		Currency:               "USD",
	}
	assert.NoError(t, operation.Validate(domain.OperationCredit, req))
	assert.NoError(t, operation.Validate(domain.OperationCapture, req))
	assert.NoError(t, operation.Validate(domain.OperationCancel, req))
	assert.NoError(t, operation.Validate(domain.OperationCheckStatus, &ports.GatewayRequest{ReferenceTransactionID: "TXN-0012345"}))
}

func TestValidate_FieldFormats(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*ports.GatewayRequest)
		expected string
	}{
		{"exp year", func(r *ports.GatewayRequest) { r.CardExpYear = "27" }, "cc_exp_year must be a four digit year"},
		{"exp month", func(r *ports.GatewayRequest) { r.CardExpMonth = "13" }, "cc_exp_month must be 01-12"},
		{"currency", func(r *ports.GatewayRequest) { r.Currency = "usd" }, "currency must be a three letter ISO code"},
		{"country", func(r *ports.GatewayRequest) { r.CountryCode = "usa" }, "country_code must be a two letter ISO code"},
		{"email", func(r *ports.GatewayRequest) { r.EmailAddress = "not-an-email" }, "email_address has an invalid format"},
		{"postal code", func(r *ports.GatewayRequest) { r.PostalCode = "!" }, "postal_code has an invalid format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validChargeRequest()
			tt.mutate(req)
			violations := violationsOf(t, operation.Validate(domain.OperationAuthCapture, req))
			assert.Contains(t, violations, tt.expected)
		})
	}
}

func TestValidate_ACHFormats(t *testing.T) {
	req := validChargeRequest()
	req.CardToken = ""
	req.CardExpYear = ""
	req.CardExpMonth = ""
	req.ACHAccountNumber = "123" // too short
	req.ACHRoutingNumber = "12345"
	req.ACHAccountType = "MONEY_MARKET"

	violations := violationsOf(t, operation.Validate(domain.OperationAuthCapture, req))
	assert.Contains(t, violations, "ach_account_number must be 4-17 digits")
	assert.Contains(t, violations, "ach_routing_number must be exactly 9 digits")
	assert.Contains(t, violations, "ach_account_type must be CHECKING or SAVINGS")
}

func TestValidate_UnknownVerb(t *testing.T) {
	violations := violationsOf(t, operation.Validate(domain.OperationType("TRANSFER"), &ports.GatewayRequest{}))
	assert.Contains(t, violations, "operation type is not recognized")
}
