package operation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
	"github.com/meridianpay/payment-engine/internal/operation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGateway mocks the payment gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Authorize(ctx context.Context, req *ports.GatewayRequest) (*ports.GatewayResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.GatewayResponse), args.Error(1)
}

func (m *MockGateway) Capture(ctx context.Context, req *ports.GatewayRequest) (*ports.GatewayResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.GatewayResponse), args.Error(1)
}

func (m *MockGateway) Cancel(ctx context.Context, req *ports.GatewayRequest) (*ports.GatewayResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.GatewayResponse), args.Error(1)
}

func (m *MockGateway) Credit(ctx context.Context, req *ports.GatewayRequest) (*ports.GatewayResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.GatewayResponse), args.Error(1)
}

func (m *MockGateway) Status(ctx context.Context, req *ports.GatewayRequest) (*ports.GatewayResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.GatewayResponse), args.Error(1)
}

func (m *MockGateway) AuthCapture(ctx context.Context, req *ports.GatewayRequest) (*ports.GatewayResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.GatewayResponse), args.Error(1)
}

// MockLogger mocks the logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Info(msg string, fields ...ports.Field)  { m.Called(msg, fields) }
func (m *MockLogger) Error(msg string, fields ...ports.Field) { m.Called(msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...ports.Field)  { m.Called(msg, fields) }
func (m *MockLogger) Debug(msg string, fields ...ports.Field) { m.Called(msg, fields) }

func newMockLogger() *MockLogger {
	l := new(MockLogger)
	l.On("Info", mock.Anything, mock.Anything).Return().Maybe()
	l.On("Error", mock.Anything, mock.Anything).Return().Maybe()
	l.On("Warn", mock.Anything, mock.Anything).Return().Maybe()
	l.On("Debug", mock.Anything, mock.Anything).Return().Maybe()
	return l
}

func approvedResponse() *ports.GatewayResponse {
	return &ports.GatewayResponse{
		RawResponse:       "RESP_CODE=00&TRANSACTION_ID=TXN-100",
		TransactionID:     "TXN-100",
		TransactionStatus: "APPROVED",
		ResponseCode:      "00",
		Successful:        true,
	}
}

func TestOperation_Run_Approved(t *testing.T) {
	mockGateway := new(MockGateway)
	mockGateway.On("AuthCapture", mock.Anything, mock.Anything).Return(approvedResponse(), nil)

	var recorded *domain.Transaction
	record := func(ctx context.Context, txn *domain.Transaction) error {
		recorded = txn
		return nil
	}

	op := operation.New(domain.OperationAuthCapture, mockGateway, record, newMockLogger())
	err := op.Run(context.Background(), *validChargeRequest())

	require.NoError(t, err)
	assert.True(t, op.Successful())
	assert.Empty(t, op.ErrorMessage())
	assert.Equal(t, "TXN-100", op.GatewayTransactionID())
	assert.Equal(t, "APPROVED", op.GatewayStatus())

	require.NotNil(t, recorded)
	assert.Equal(t, recorded, op.Transaction())
	assert.Equal(t, validChargeRequest().ReferenceID, recorded.PaymentID)
	assert.Equal(t, domain.OperationAuthCapture, recorded.Operation)
	assert.Equal(t, "TXN-100", recorded.GatewayTransactionID)
	assert.Equal(t, "00", recorded.GatewayResponseCode)
	assert.NotEmpty(t, recorded.RawRequest)
	assert.Nil(t, recorded.DeclineReason)

	// The raw request snapshot decodes back to the submitted field set.
	decoded, err := operation.DecodeSnapshot(recorded.RawRequest)
	require.NoError(t, err)
	assert.Equal(t, validChargeRequest().CardToken, decoded.CardToken)
}

func TestOperation_Run_Declined(t *testing.T) {
	reason := domain.DeclineReasonInsufficientFunds
	mockGateway := new(MockGateway)
	mockGateway.On("AuthCapture", mock.Anything, mock.Anything).Return(&ports.GatewayResponse{
		RawResponse:   "RESP_CODE=51&TRANSACTION_ID=TXN-101",
		TransactionID: "TXN-101",
		ResponseCode:  "51",
		Successful:    false,
		ErrorMessage:  "insufficient funds",
		DeclineReason: &reason,
	}, nil)

	var recorded *domain.Transaction
	record := func(ctx context.Context, txn *domain.Transaction) error {
		recorded = txn
		return nil
	}

	op := operation.New(domain.OperationAuthCapture, mockGateway, record, newMockLogger())
	err := op.Run(context.Background(), *validChargeRequest())

	require.NoError(t, err, "a decline is a normal outcome, not an error")
	assert.False(t, op.Successful())
	assert.Equal(t, "insufficient funds", op.ErrorMessage())
	require.NotNil(t, op.DeclineReason())
	assert.Equal(t, domain.DeclineReasonInsufficientFunds, *op.DeclineReason())

	// Declines still produce an audit record.
	require.NotNil(t, recorded)
	require.NotNil(t, recorded.DeclineReason)
	assert.Equal(t, domain.DeclineReasonInsufficientFunds, *recorded.DeclineReason)
}

func TestOperation_Run_SoftGatewayFailure(t *testing.T) {
	mockGateway := new(MockGateway)
	mockGateway.On("AuthCapture", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	op := operation.New(domain.OperationAuthCapture, mockGateway, nil, newMockLogger())
	err := op.Run(context.Background(), *validChargeRequest())

	require.NoError(t, err, "transport failures collapse into an unsuccessful outcome")
	assert.False(t, op.Successful())
	assert.Contains(t, op.ErrorMessage(), "connection reset")
	assert.Nil(t, op.Transaction())
}

func TestOperation_Run_HardGatewayErrorPropagates(t *testing.T) {
	for _, code := range []domain.ErrorCode{
		domain.ErrorCodeGatewayInvalidOperation,
		domain.ErrorCodeGatewayCardValidation,
	} {
		t.Run(string(code), func(t *testing.T) {
			mockGateway := new(MockGateway)
			mockGateway.On("AuthCapture", mock.Anything, mock.Anything).
				Return(nil, domain.NewDomainError(code, "rejected"))

			op := operation.New(domain.OperationAuthCapture, mockGateway, nil, newMockLogger())
			err := op.Run(context.Background(), *validChargeRequest())

			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, code))
		})
	}
}

func TestOperation_Run_ValidationStopsBeforeGateway(t *testing.T) {
	mockGateway := new(MockGateway)

	op := operation.New(domain.OperationAuthCapture, mockGateway, nil, newMockLogger())
	err := op.Run(context.Background(), ports.GatewayRequest{})

	require.Error(t, err)
	assert.True(t, operation.IsValidationFailure(err))
	mockGateway.AssertNotCalled(t, "AuthCapture", mock.Anything, mock.Anything)
}

func TestOperation_ProcessBeforeValidate(t *testing.T) {
	op := operation.New(domain.OperationAuthCapture, new(MockGateway), nil, newMockLogger())
	op.Populate(*validChargeRequest())

	err := op.Process(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeInternalError))
}

func TestOperation_AuditSkippedWithoutPaymentReference(t *testing.T) {
	// Follow-up verbs carry no reference id; the gateway outcome is kept but
	// no payment-linked audit row can be written.
	mockGateway := new(MockGateway)
	mockGateway.On("Capture", mock.Anything, mock.Anything).Return(approvedResponse(), nil)

	recordCalled := false
	record := func(ctx context.Context, txn *domain.Transaction) error {
		recordCalled = true
		return nil
	}

	op := operation.New(domain.OperationCapture, mockGateway, record, newMockLogger())
	err := op.Run(context.Background(), ports.GatewayRequest{
		ReferenceTransactionID: "TXN-050",
		AmountMinor:            1000,
		Currency:               "USD",
	})

	require.NoError(t, err)
	assert.True(t, op.Successful())
	assert.False(t, recordCalled)
	assert.Nil(t, op.Transaction())
}

func TestOperation_AuditSkippedWithoutGatewayTransactionID(t *testing.T) {
	mockGateway := new(MockGateway)
	mockGateway.On("AuthCapture", mock.Anything, mock.Anything).Return(&ports.GatewayResponse{
		RawResponse:  "RESP_CODE=00",
		ResponseCode: "00",
		Successful:   true,
	}, nil)

	recordCalled := false
	record := func(ctx context.Context, txn *domain.Transaction) error {
		recordCalled = true
		return nil
	}

	op := operation.New(domain.OperationAuthCapture, mockGateway, record, newMockLogger())
	err := op.Run(context.Background(), *validChargeRequest())

	require.NoError(t, err)
	assert.False(t, recordCalled)
	assert.Nil(t, op.Transaction())
}

func TestOperation_RecordFailurePropagates(t *testing.T) {
	mockGateway := new(MockGateway)
	mockGateway.On("AuthCapture", mock.Anything, mock.Anything).Return(approvedResponse(), nil)

	record := func(ctx context.Context, txn *domain.Transaction) error {
		return errors.New("insert failed")
	}

	op := operation.New(domain.OperationAuthCapture, mockGateway, record, newMockLogger())
	err := op.Run(context.Background(), *validChargeRequest())

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeDatabaseError))
}

func TestOperation_SetUpInfersPaymentType(t *testing.T) {
	mockGateway := new(MockGateway)
	mockGateway.On("AuthCapture", mock.Anything, mock.MatchedBy(func(req *ports.GatewayRequest) bool {
		return req.PaymentType == string(domain.PaymentTypeCC)
	})).Return(approvedResponse(), nil)

	op := operation.New(domain.OperationAuthCapture, mockGateway, nil, newMockLogger())
	req := *validChargeRequest()
	req.PaymentType = ""

	require.NoError(t, op.Run(context.Background(), req))
	mockGateway.AssertExpectations(t)
}
