package processor

import (
	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// minorUnits converts a decimal amount to integer minor units (two decimal
// places).
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// BuildChargeRequest maps a stored payment method and charge details onto
// the canonical gateway field set. The mapping is explicit and resolved at
// compile time; there is no reflective field lookup.
func BuildChargeRequest(payment *domain.Payment, method *domain.PaymentMethod, description string) ports.GatewayRequest {
	req := ports.GatewayRequest{
		PaymentType:       string(method.Type),
		ReferenceID:       payment.ID,
		NameOnAccount:     method.NameOnAccount,
		AddressLine1:      method.AddressLine1,
		AddressLine2:      method.AddressLine2,
		City:              method.City,
		Province:          method.Province,
		PostalCode:        method.PostalCode,
		CountryCode:       method.CountryCode,
		EmailAddress:      method.EmailAddress,
		AmountMinor:       minorUnits(payment.Amount),
		Currency:          payment.Currency,
		ChargeDescription: description,
	}

	switch method.Type {
	case domain.PaymentTypeCC:
		req.CardToken = method.CardToken
		req.CardExpYear = method.CardExpYear
		req.CardExpMonth = method.CardExpMonth
	case domain.PaymentTypeACH:
		if method.ACHToken != "" {
			req.ACHToken = method.ACHToken
		} else {
			req.ACHAccountNumber = method.ACHAccountNumber
			req.ACHRoutingNumber = method.ACHRoutingNumber
		}
		req.ACHAccountType = string(method.ACHAccountType)
	}

	return req
}

// BuildFollowUpRequest maps a follow-up verb (capture, cancel, credit,
// status) onto the canonical field set, targeting a prior gateway
// transaction.
func BuildFollowUpRequest(payment *domain.Payment, referenceTransactionID string, amount decimal.Decimal) ports.GatewayRequest {
	return ports.GatewayRequest{
		PaymentType:            string(payment.Type),
		ReferenceID:            payment.ID,
		AmountMinor:            minorUnits(amount),
		Currency:               payment.Currency,
		ReferenceTransactionID: referenceTransactionID,
	}
}
