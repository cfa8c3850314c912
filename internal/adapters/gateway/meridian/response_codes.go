package meridian

import "github.com/meridianpay/payment-engine/internal/domain"

// Meridian response codes follow the ISO 8583 action code conventions.
const (
	codeApproved           = "00"
	codeInvalidTransaction = "12" // operation not valid for the gateway-side state
	codeInvalidAccount     = "14"
	codeDoNotHonor         = "05"
	codeInsufficientFunds  = "51"
	codeExpiredCard        = "54"
	codeFraudSuspected     = "59"
	codeCardValidation     = "82" // CVV/AVS data rejected before processing
	codeProcessorError     = "96"
)

// isApproved reports whether the response code signals an approval.
func isApproved(code string) bool {
	return code == codeApproved
}

// hardError maps the two response codes that must abort the operation
// instead of collapsing into a decline. Everything else returns nil.
func hardError(code string) error {
	switch code {
	case codeInvalidTransaction:
		return domain.NewDomainError(domain.ErrorCodeGatewayInvalidOperation,
			"operation not valid for current gateway state").WithDetail("response_code", code)
	case codeCardValidation:
		return domain.NewDomainError(domain.ErrorCodeGatewayCardValidation,
			"card data rejected by gateway").WithDetail("response_code", code)
	}
	return nil
}

// declineReason classifies a non-approval response code.
func declineReason(code string) domain.DeclineReason {
	switch code {
	case codeInsufficientFunds:
		return domain.DeclineReasonInsufficientFunds
	case codeExpiredCard:
		return domain.DeclineReasonExpiredCard
	case codeInvalidAccount:
		return domain.DeclineReasonInvalidAccount
	case codeDoNotHonor:
		return domain.DeclineReasonDoNotHonor
	case codeFraudSuspected:
		return domain.DeclineReasonFraudSuspected
	case codeProcessorError:
		return domain.DeclineReasonProcessorError
	default:
		return domain.DeclineReasonUnknown
	}
}
