package domain_test

import (
	"testing"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationsForStatus_ActiveStatuses(t *testing.T) {
	tests := []struct {
		status   domain.PaymentStatus
		expected []domain.OperationType
	}{
		{domain.PaymentStatusAuthCapturing, []domain.OperationType{domain.OperationAuthCapture, domain.OperationCheckStatus}},
		{domain.PaymentStatusCaptured, []domain.OperationType{domain.OperationCapture, domain.OperationAuthCapture, domain.OperationCheckStatus}},
		{domain.PaymentStatusCapturing, []domain.OperationType{domain.OperationCapture, domain.OperationAuthCapture, domain.OperationCheckStatus}},
		{domain.PaymentStatusAuthorizing, []domain.OperationType{domain.OperationAuthorize}},
		{domain.PaymentStatusAuthorized, []domain.OperationType{domain.OperationAuthorize}},
		{domain.PaymentStatusCancelling, []domain.OperationType{domain.OperationCancel}},
		{domain.PaymentStatusCancelled, []domain.OperationType{domain.OperationCancel}},
		{domain.PaymentStatusCrediting, []domain.OperationType{domain.OperationCredit}},
		{domain.PaymentStatusCredited, []domain.OperationType{domain.OperationCredit}},
		{domain.PaymentStatusProcessed, []domain.OperationType{domain.OperationAuthCapture}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			ops, err := domain.OperationsForStatus(tt.status)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ops)
		})
	}
}

func TestOperationsForStatus_DeclinedAdmitsEveryVerbExceptStatus(t *testing.T) {
	ops, err := domain.OperationsForStatus(domain.PaymentStatusDeclined)
	require.NoError(t, err)

	assert.Len(t, ops, 5)
	assert.Contains(t, ops, domain.OperationAuthCapture)
	assert.Contains(t, ops, domain.OperationAuthorize)
	assert.Contains(t, ops, domain.OperationCapture)
	assert.Contains(t, ops, domain.OperationCancel)
	assert.Contains(t, ops, domain.OperationCredit)
	assert.NotContains(t, ops, domain.OperationCheckStatus)
}

func TestOperationsForStatus_FrozenStatuses(t *testing.T) {
	frozen := []domain.PaymentStatus{
		domain.PaymentStatusSuspended,
		domain.PaymentStatusTerminated,
		domain.PaymentStatusReturned,
		domain.PaymentStatusSettled,
	}

	for _, status := range frozen {
		t.Run(string(status), func(t *testing.T) {
			ops, err := domain.OperationsForStatus(status)
			require.Error(t, err)
			assert.Nil(t, ops)
			assert.True(t, domain.IsDomainError(err, domain.ErrorCodeInvalidOperation))
		})
	}
}

func TestOperationsForStatus_UnknownStatus(t *testing.T) {
	_, err := domain.OperationsForStatus(domain.PaymentStatus("BOGUS"))
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeInvalidOperation))
}

func TestOperationsForStatus_ReturnsCopy(t *testing.T) {
	ops, err := domain.OperationsForStatus(domain.PaymentStatusAuthorized)
	require.NoError(t, err)
	require.NotEmpty(t, ops)

	ops[0] = domain.OperationCredit

	again, err := domain.OperationsForStatus(domain.PaymentStatusAuthorized)
	require.NoError(t, err)
	assert.Equal(t, domain.OperationAuthorize, again[0])
}

func TestStatusSupportsOperation(t *testing.T) {
	ok, err := domain.StatusSupportsOperation(domain.PaymentStatusCaptured, domain.OperationCapture)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = domain.StatusSupportsOperation(domain.PaymentStatusCaptured, domain.OperationCancel)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = domain.StatusSupportsOperation(domain.PaymentStatusSuspended, domain.OperationCredit)
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeInvalidOperation))
}
