package domain

// statusOperations maps a payment status to the operation(s) whose
// transaction record is authoritative for it. Frozen statuses are absent and
// fail the lookup.
var statusOperations = map[PaymentStatus][]OperationType{
	PaymentStatusAuthCapturing: {OperationAuthCapture, OperationCheckStatus},
	PaymentStatusCaptured:      {OperationCapture, OperationAuthCapture, OperationCheckStatus},
	PaymentStatusCapturing:     {OperationCapture, OperationAuthCapture, OperationCheckStatus},
	PaymentStatusAuthorizing:   {OperationAuthorize},
	PaymentStatusAuthorized:    {OperationAuthorize},
	PaymentStatusCancelling:    {OperationCancel},
	PaymentStatusCancelled:     {OperationCancel},
	PaymentStatusCrediting:     {OperationCredit},
	PaymentStatusCredited:      {OperationCredit},
	PaymentStatusDeclined:      {OperationAuthCapture, OperationAuthorize, OperationCapture, OperationCancel, OperationCredit},
	PaymentStatusProcessed:     {OperationAuthCapture},
}

// OperationsForStatus returns the operations whose transaction is
// authoritative for the given payment status. Statuses in which no further
// action is meaningful (SUSPENDED, TERMINATED, RETURNED, SETTLED) return an
// invalid-operation error.
func OperationsForStatus(status PaymentStatus) ([]OperationType, error) {
	ops, ok := statusOperations[status]
	if !ok {
		return nil, NewInvalidOperationError(status)
	}
	out := make([]OperationType, len(ops))
	copy(out, ops)
	return out, nil
}

// StatusSupportsOperation reports whether op is among the authoritative
// operations for status.
func StatusSupportsOperation(status PaymentStatus, op OperationType) (bool, error) {
	ops, err := OperationsForStatus(status)
	if err != nil {
		return false, err
	}
	for _, o := range ops {
		if o == op {
			return true, nil
		}
	}
	return false, nil
}
