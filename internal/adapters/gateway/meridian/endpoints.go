package meridian

import "github.com/meridianpay/payment-engine/internal/domain"

// transactionTypes maps each operation verb to the Meridian form-post
// TRAN_TYPE value.
var transactionTypes = map[domain.OperationType]string{
	domain.OperationAuthorize:   "AUTH",
	domain.OperationCapture:     "CAPTURE",
	domain.OperationCancel:      "VOID",
	domain.OperationCredit:      "REFUND",
	domain.OperationCheckStatus: "INQUIRY",
	domain.OperationAuthCapture: "SALE",
}

// transactionType resolves the wire verb, empty when the operation is
// unknown.
func transactionType(op domain.OperationType) string {
	return transactionTypes[op]
}
