package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	// Validation errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeInvalidStatus           ErrorCode = "VALIDATION_INVALID_STATUS"

	// Gateway errors (GATEWAY_*)
	ErrorCodeGatewayError            ErrorCode = "GATEWAY_ERROR"
	ErrorCodeGatewayInvalidOperation ErrorCode = "GATEWAY_INVALID_OPERATION"
	ErrorCodeGatewayCardValidation   ErrorCode = "GATEWAY_CARD_VALIDATION"

	// Configuration errors (CONFIG_*)
	ErrorCodeNoGateway ErrorCode = "CONFIG_NO_GATEWAY"

	// Not-found errors (*_NOT_FOUND)
	ErrorCodePaymentNotFound       ErrorCode = "PAYMENT_NOT_FOUND"
	ErrorCodePaymentMethodNotFound ErrorCode = "PAYMENT_METHOD_NOT_FOUND"
	ErrorCodeTransactionNotFound   ErrorCode = "TRANSACTION_NOT_FOUND"
	ErrorCodeAccountNotFound       ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrorCodeScheduledNotFound     ErrorCode = "SCHEDULED_PAYMENT_NOT_FOUND"

	// Lifecycle errors
	ErrorCodeInvalidOperation ErrorCode = "OPERATION_INVALID_FOR_STATUS"
	ErrorCodeRefundIneligible ErrorCode = "REFUND_INELIGIBLE"

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with code and context.
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of the error carrying an extra detail field.
// The receiver is left untouched so shared error values stay immutable.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Err:     e.Err,
		Details: details,
		Code:    e.Code,
		Message: e.Message,
	}
}

// NewDomainError creates a new domain error.
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code.
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code, or empty string if not a DomainError.
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition.
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodePaymentNotFound ||
		code == ErrorCodePaymentMethodNotFound ||
		code == ErrorCodeTransactionNotFound ||
		code == ErrorCodeAccountNotFound ||
		code == ErrorCodeScheduledNotFound
}

// IsHardGatewayError reports whether a gateway error must propagate instead
// of collapsing into a soft failure: business-rule violations and
// card-validation rejections.
func IsHardGatewayError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeGatewayInvalidOperation ||
		code == ErrorCodeGatewayCardValidation
}

// ValidationError carries the full ordered list of field rules an operation
// request violated. It is never raised for just the first failing rule.
type ValidationError struct {
	Violations []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrorCodeValidationFailed, strings.Join(e.Violations, "; "))
}

// AsValidationError extracts a ValidationError if err carries one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Structured error instances.
var (
	ErrNoGatewayConfigured = NewDomainError(ErrorCodeNoGateway, "no payment gateway bound to processor")

	ErrPaymentNotFound          = NewDomainError(ErrorCodePaymentNotFound, "payment not found")
	ErrPaymentMethodNotFound    = NewDomainError(ErrorCodePaymentMethodNotFound, "payment method not found")
	ErrTransactionNotFound      = NewDomainError(ErrorCodeTransactionNotFound, "transaction not found")
	ErrAccountNotFound          = NewDomainError(ErrorCodeAccountNotFound, "account not found")
	ErrScheduledPaymentNotFound = NewDomainError(ErrorCodeScheduledNotFound, "scheduled payment not found")

	ErrValidationAmountInvalid = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")

	ErrGatewayInvalidOperation = NewDomainError(ErrorCodeGatewayInvalidOperation, "operation not valid for current gateway state")
	ErrGatewayCardValidation   = NewDomainError(ErrorCodeGatewayCardValidation, "card data rejected by gateway")
)

// NewInvalidOperationError reports a status/operation matrix lookup against a
// frozen status.
func NewInvalidOperationError(status PaymentStatus) *DomainError {
	return NewDomainError(ErrorCodeInvalidOperation,
		"no operation is meaningful for payment status").
		WithDetail("status", string(status))
}

// NewRefundIneligibleError reports a failed refund precondition with a
// human-readable reason.
func NewRefundIneligibleError(reason string) *DomainError {
	return NewDomainError(ErrorCodeRefundIneligible, reason)
}
