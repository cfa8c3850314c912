package operation

import (
	"regexp"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
)

// Validate evaluates the per-verb field rules over the request and returns a
// ValidationError carrying every violated rule, or nil when the request is
// well-formed. It never stops at the first violation.
func Validate(verb domain.OperationType, req *ports.GatewayRequest) error {
	var v violations

	switch verb {
	case domain.OperationAuthorize, domain.OperationAuthCapture:
		v.checkInstrumentGroup(req)
		v.checkBillingIdentity(req)
		v.checkAmount(req)
		v.checkReferenceID(req)
	case domain.OperationCapture, domain.OperationCredit:
		v.checkReferenceTransactionID(req)
		v.checkAmount(req)
	case domain.OperationCancel:
		v.checkReferenceTransactionID(req)
		v.checkAmount(req)
	case domain.OperationCheckStatus:
		v.checkReferenceTransactionID(req)
	default:
		v.add("operation type is not recognized")
	}

	v.checkFormats(req)

	if len(v) > 0 {
		return &domain.ValidationError{Violations: v}
	}
	return nil
}

type violations []string

func (v *violations) add(rule string) {
	*v = append(*v, rule)
}

// checkInstrumentGroup enforces that exactly one of {CC token}, {ACH token},
// {ACH account number + routing number} is supplied.
func (v *violations) checkInstrumentGroup(req *ports.GatewayRequest) {
	groups := 0
	if req.CardToken != "" {
		groups++
	}
	if req.ACHToken != "" {
		groups++
	}
	if req.ACHAccountNumber != "" || req.ACHRoutingNumber != "" {
		if req.ACHAccountNumber == "" {
			v.add("ach_account_number is required when ach_routing_number is supplied")
		}
		if req.ACHRoutingNumber == "" {
			v.add("ach_routing_number is required when ach_account_number is supplied")
		}
		groups++
	}

	switch {
	case groups == 0:
		v.add("exactly one payment instrument is required: token, ach_token, or ach_account_number with ach_routing_number")
	case groups > 1:
		v.add("multiple payment instruments supplied: token, ach_token, and ach account fields are mutually exclusive")
	}

	if req.CardToken != "" {
		if req.CardExpYear == "" {
			v.add("cc_exp_year is required with token")
		}
		if req.CardExpMonth == "" {
			v.add("cc_exp_month is required with token")
		}
	}
}

// checkBillingIdentity enforces the identity fields Authorize and AuthCapture
// require. Email is optional.
func (v *violations) checkBillingIdentity(req *ports.GatewayRequest) {
	if req.NameOnAccount == "" {
		v.add("name_on_account is required")
	}
	if req.AddressLine1 == "" {
		v.add("address_line_1 is required")
	}
	if req.City == "" {
		v.add("city is required")
	}
	if req.Province == "" {
		v.add("province is required")
	}
	if req.PostalCode == "" {
		v.add("postal_code is required")
	}
}

func (v *violations) checkAmount(req *ports.GatewayRequest) {
	if req.AmountMinor < 0 {
		v.add("amount must not be negative")
	}
	if req.Currency == "" {
		v.add("currency is required")
	}
}

func (v *violations) checkReferenceID(req *ports.GatewayRequest) {
	if req.ReferenceID == "" {
		v.add("reference_id is required")
	} else if !IsValidReferenceID(req.ReferenceID) {
		v.add("reference_id must be a valid UUID")
	}
}

func (v *violations) checkReferenceTransactionID(req *ports.GatewayRequest) {
	if req.ReferenceTransactionID == "" {
		v.add("reference_transaction_id is required")
	}
}

// checkFormats applies the per-field shape rules to every populated field.
func (v *violations) checkFormats(req *ports.GatewayRequest) {
	check := func(value string, re *regexpChecker) {
		if value != "" && !re.re.MatchString(value) {
			v.add(re.rule)
		}
	}
	check(req.CardExpYear, fmtCardExpYear)
	check(req.CardExpMonth, fmtCardExpMonth)
	check(req.ACHAccountNumber, fmtACHAccount)
	check(req.ACHRoutingNumber, fmtACHRouting)
	check(req.ACHAccountType, fmtACHAcctType)
	check(req.NameOnAccount, fmtName)
	check(req.AddressLine1, fmtAddress1)
	check(req.AddressLine2, fmtAddress2)
	check(req.City, fmtCity)
	check(req.Province, fmtProvince)
	check(req.PostalCode, fmtPostalCode)
	check(req.CountryCode, fmtCountryCode)
	check(req.EmailAddress, fmtEmail)
	check(req.Currency, fmtCurrency)
	check(req.ChargeDescription, fmtDescription)
	check(req.TransactionID, fmtTransactionID)
	check(req.ReferenceTransactionID, fmtRefTransaction)
}

type regexpChecker struct {
	re   *regexp.Regexp
	rule string
}

var (
	fmtCardExpYear    = &regexpChecker{reCardExpYear, "cc_exp_year must be a four digit year"}
	fmtCardExpMonth   = &regexpChecker{reCardExpMonth, "cc_exp_month must be 01-12"}
	fmtACHAccount     = &regexpChecker{reACHAccount, "ach_account_number must be 4-17 digits"}
	fmtACHRouting     = &regexpChecker{reACHRouting, "ach_routing_number must be exactly 9 digits"}
	fmtACHAcctType    = &regexpChecker{reACHAcctType, "ach_account_type must be CHECKING or SAVINGS"}
	fmtName           = &regexpChecker{reName, "name_on_account contains invalid characters"}
	fmtAddress1       = &regexpChecker{reAddress, "address_line_1 contains invalid characters"}
	fmtAddress2       = &regexpChecker{reAddress, "address_line_2 contains invalid characters"}
	fmtCity           = &regexpChecker{reCity, "city contains invalid characters"}
	fmtProvince       = &regexpChecker{reProvince, "province contains invalid characters"}
	fmtPostalCode     = &regexpChecker{rePostalCode, "postal_code has an invalid format"}
	fmtCountryCode    = &regexpChecker{reCountryCode, "country_code must be a two letter ISO code"}
	fmtEmail          = &regexpChecker{reEmail, "email_address has an invalid format"}
	fmtCurrency       = &regexpChecker{reCurrency, "currency must be a three letter ISO code"}
	fmtDescription    = &regexpChecker{reDescription, "charge_description contains invalid characters"}
	fmtTransactionID  = &regexpChecker{reTransaction, "transaction_id has an invalid format"}
	fmtRefTransaction = &regexpChecker{reTransaction, "reference_transaction_id has an invalid format"}
)
