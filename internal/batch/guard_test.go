package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDBPort mocks the database port
type MockDBPort struct {
	mock.Mock
}

func (m *MockDBPort) GetDB() *pgxpool.Pool {
	return nil
}

func (m *MockDBPort) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (m *MockDBPort) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

// MockPaymentRepository mocks the payment repository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, tx ports.DBTX, payment *domain.Payment) error {
	args := m.Called(ctx, tx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, tx ports.DBTX, id string) (*domain.Payment, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, tx ports.DBTX, id string, status domain.PaymentStatus, processedAt *time.Time, suspendReason *domain.SuspendReason, updatedBy string) error {
	args := m.Called(ctx, tx, id, status, processedAt, suspendReason, updatedBy)
	return args.Error(0)
}

func (m *MockPaymentRepository) UpdateRefundRouting(ctx context.Context, tx ports.DBTX, id string, gatewayID string, paymentType domain.PaymentType, updatedBy string) error {
	args := m.Called(ctx, tx, id, gatewayID, paymentType, updatedBy)
	return args.Error(0)
}

func (m *MockPaymentRepository) CountDeclinedByMethod(ctx context.Context, tx ports.DBTX, paymentMethodID string) (int, error) {
	args := m.Called(ctx, tx, paymentMethodID)
	return args.Int(0), args.Error(1)
}

func (m *MockPaymentRepository) CountDeclinedByMethodOn(ctx context.Context, tx ports.DBTX, paymentMethodID string, day time.Time) (int, error) {
	args := m.Called(ctx, tx, paymentMethodID, day)
	return args.Int(0), args.Error(1)
}

func (m *MockPaymentRepository) FindDuplicate(ctx context.Context, tx ports.DBTX, accountID, paymentMethodID string, amount decimal.Decimal, invoiceIDs []string, since time.Time) (*domain.Payment, error) {
	args := m.Called(ctx, tx, accountID, paymentMethodID, amount, invoiceIDs, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindSuccessfulRefund(ctx context.Context, tx ports.DBTX, originalPaymentID string) (*domain.Payment, error) {
	args := m.Called(ctx, tx, originalPaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

// MockInvoiceRepository mocks the invoice repository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) ListUnpaidByAccount(ctx context.Context, tx ports.DBTX, accountID string) ([]*domain.Invoice, error) {
	args := m.Called(ctx, tx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Invoice), args.Error(1)
}

// MockAccountRepository mocks the account repository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, tx ports.DBTX, id string) (*domain.Account, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) OutstandingBalance(ctx context.Context, tx ports.DBTX, accountID string) (decimal.Decimal, error) {
	args := m.Called(ctx, tx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
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

type guardFixture struct {
	payments *MockPaymentRepository
	invoices *MockInvoiceRepository
	accounts *MockAccountRepository
	guard    *Guard
}

func newGuardFixture(now time.Time) *guardFixture {
	f := &guardFixture{
		payments: new(MockPaymentRepository),
		invoices: new(MockInvoiceRepository),
		accounts: new(MockAccountRepository),
	}
	f.guard = NewGuard(f.payments, f.invoices, f.accounts, newMockLogger(), DefaultGuardConfig())
	f.guard.now = func() time.Time { return now }
	return f
}

func (f *guardFixture) expectUnpaid(accountID string, invoices ...*domain.Invoice) {
	f.invoices.On("ListUnpaidByAccount", mock.Anything, mock.Anything, accountID).Return(invoices, nil)
}

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testAccount() *domain.Account {
	return &domain.Account{ID: "acct-1"}
}

func testMethod() *domain.PaymentMethod {
	return &domain.PaymentMethod{ID: "pm-1", AccountID: "acct-1", Type: domain.PaymentTypeCC}
}

func TestGuard_NoUnpaidBalance(t *testing.T) {
	f := newGuardFixture(testNow)
	f.expectUnpaid("acct-1")

	decision, err := f.guard.Check(context.Background(), testAccount(), testMethod())

	require.NoError(t, err)
	assert.False(t, decision.Proceed)
	assert.Equal(t, SkipReasonNoBalance, decision.SkipReason)
}

func TestGuard_LedgerMismatch(t *testing.T) {
	f := newGuardFixture(testNow)
	f.expectUnpaid("acct-1",
		&domain.Invoice{ID: "inv-1", Balance: decimal.NewFromInt(60)},
		&domain.Invoice{ID: "inv-2", Balance: decimal.NewFromInt(40)},
	)
	f.accounts.On("OutstandingBalance", mock.Anything, mock.Anything, "acct-1").Return(decimal.NewFromInt(90), nil)

	decision, err := f.guard.Check(context.Background(), testAccount(), testMethod())

	require.NoError(t, err)
	assert.False(t, decision.Proceed)
	assert.Equal(t, SkipReasonLedgerMismatch, decision.SkipReason)
	f.payments.AssertNotCalled(t, "FindDuplicate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGuard_HoldDate(t *testing.T) {
	f := newGuardFixture(testNow)
	f.expectUnpaid("acct-1", &domain.Invoice{ID: "inv-1", Balance: decimal.NewFromInt(100)})
	f.accounts.On("OutstandingBalance", mock.Anything, mock.Anything, "acct-1").Return(decimal.NewFromInt(100), nil)

	method := testMethod()
	hold := testNow.Add(48 * time.Hour)
	method.PaymentHoldDate = &hold

	decision, err := f.guard.Check(context.Background(), testAccount(), method)

	require.NoError(t, err)
	assert.False(t, decision.Proceed)
	assert.Equal(t, SkipReasonHoldDate, decision.SkipReason)
}

func TestGuard_PreferredBillingDayMismatch(t *testing.T) {
	f := newGuardFixture(testNow) // the 10th
	f.expectUnpaid("acct-1", &domain.Invoice{ID: "inv-1", Balance: decimal.NewFromInt(100)})
	f.accounts.On("OutstandingBalance", mock.Anything, mock.Anything, "acct-1").Return(decimal.NewFromInt(100), nil)

	account := testAccount()
	day := 15
	account.PreferredBillingDay = &day

	decision, err := f.guard.Check(context.Background(), account, testMethod())

	require.NoError(t, err)
	assert.False(t, decision.Proceed)
	assert.Equal(t, SkipReasonBillingDay, decision.SkipReason)
}

func TestGuard_MaxDeclinedAttempts(t *testing.T) {
	f := newGuardFixture(testNow)
	f.expectUnpaid("acct-1", &domain.Invoice{ID: "inv-1", Balance: decimal.NewFromInt(100)})
	f.accounts.On("OutstandingBalance", mock.Anything, mock.Anything, "acct-1").Return(decimal.NewFromInt(100), nil)
	f.payments.On("CountDeclinedByMethod", mock.Anything, mock.Anything, "pm-1").Return(3, nil)

	decision, err := f.guard.Check(context.Background(), testAccount(), testMethod())

	require.NoError(t, err)
	assert.False(t, decision.Proceed)
	assert.Equal(t, SkipReasonMaxAttempts, decision.SkipReason)
}

func TestGuard_AlreadyDeclinedToday(t *testing.T) {
	f := newGuardFixture(testNow)
	f.expectUnpaid("acct-1", &domain.Invoice{ID: "inv-1", Balance: decimal.NewFromInt(100)})
	f.accounts.On("OutstandingBalance", mock.Anything, mock.Anything, "acct-1").Return(decimal.NewFromInt(100), nil)
	f.payments.On("CountDeclinedByMethod", mock.Anything, mock.Anything, "pm-1").Return(1, nil)
	f.payments.On("CountDeclinedByMethodOn", mock.Anything, mock.Anything, "pm-1", testNow).Return(1, nil)

	decision, err := f.guard.Check(context.Background(), testAccount(), testMethod())

	require.NoError(t, err)
	assert.False(t, decision.Proceed)
	assert.Equal(t, SkipReasonDeclinedToday, decision.SkipReason)
}

func TestGuard_DuplicateSuspends(t *testing.T) {
	f := newGuardFixture(testNow)
	f.expectUnpaid("acct-1", &domain.Invoice{ID: "inv-1", Balance: decimal.NewFromInt(100)})
	f.accounts.On("OutstandingBalance", mock.Anything, mock.Anything, "acct-1").Return(decimal.NewFromInt(100), nil)
	f.payments.On("CountDeclinedByMethod", mock.Anything, mock.Anything, "pm-1").Return(0, nil)
	f.payments.On("CountDeclinedByMethodOn", mock.Anything, mock.Anything, "pm-1", testNow).Return(0, nil)

	wantSince := testNow.Add(-DefaultGuardConfig().DuplicateWindow)
	f.payments.On("FindDuplicate", mock.Anything, mock.Anything, "acct-1", "pm-1", mock.Anything, []string{"inv-1"}, wantSince).
		Return(&domain.Payment{ID: "pay-prior"}, nil)

	decision, err := f.guard.Check(context.Background(), testAccount(), testMethod())

	require.NoError(t, err)
	assert.False(t, decision.Proceed)
	assert.Equal(t, SkipReasonDuplicate, decision.SkipReason)
	assert.True(t, decision.Suspend)
	assert.Equal(t, domain.SuspendReasonDuplicate, decision.SuspendReason)
	assert.True(t, decision.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, []string{"inv-1"}, decision.InvoiceIDs)
	f.payments.AssertExpectations(t)
}

func TestGuard_Proceeds(t *testing.T) {
	f := newGuardFixture(testNow)
	f.expectUnpaid("acct-1",
		&domain.Invoice{ID: "inv-1", Balance: decimal.NewFromFloat(60.25)},
		&domain.Invoice{ID: "inv-2", Balance: decimal.NewFromFloat(39.75)},
	)
	f.accounts.On("OutstandingBalance", mock.Anything, mock.Anything, "acct-1").Return(decimal.NewFromInt(100), nil)
	f.payments.On("CountDeclinedByMethod", mock.Anything, mock.Anything, "pm-1").Return(0, nil)
	f.payments.On("CountDeclinedByMethodOn", mock.Anything, mock.Anything, "pm-1", testNow).Return(0, nil)
	f.payments.On("FindDuplicate", mock.Anything, mock.Anything, "acct-1", "pm-1", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil)

	decision, err := f.guard.Check(context.Background(), testAccount(), testMethod())

	require.NoError(t, err)
	assert.True(t, decision.Proceed)
	assert.Empty(t, decision.SkipReason)
	assert.True(t, decision.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, []string{"inv-1", "inv-2"}, decision.InvoiceIDs)
}

func TestGuard_RepositoryErrorPropagates(t *testing.T) {
	f := newGuardFixture(testNow)
	f.invoices.On("ListUnpaidByAccount", mock.Anything, mock.Anything, "acct-1").
		Return(nil, errors.New("query failed"))

	decision, err := f.guard.Check(context.Background(), testAccount(), testMethod())

	require.Error(t, err)
	assert.Nil(t, decision)
}

func TestBillingDayMatches(t *testing.T) {
	tests := []struct {
		name      string
		preferred int
		now       time.Time
		expected  bool
	}{
		{"exact match", 15, time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC), true},
		{"before preferred day", 15, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC), false},
		{"day 31 in a 30 day month clamps to the 30th", 31, time.Date(2025, 4, 30, 9, 0, 0, 0, time.UTC), true},
		{"day 31 in a 31 day month", 31, time.Date(2025, 3, 31, 9, 0, 0, 0, time.UTC), true},
		{"day 30 in february clamps to the 28th", 30, time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC), true},
		{"day 30 in a leap february clamps to the 29th", 30, time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC), true},
		{"day 29 in a leap february", 29, time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC), true},
		{"day 29 in a non-leap february clamps to the 28th", 29, time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC), true},
		{"clamped day does not fire early", 31, time.Date(2025, 4, 29, 9, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, billingDayMatches(tt.preferred, tt.now))
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, daysInMonth(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 28, daysInMonth(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 29, daysInMonth(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30, daysInMonth(time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)))
}

func TestDeferrableSkip(t *testing.T) {
	tests := []struct {
		reason     string
		deferrable bool
	}{
		{SkipReasonNoBalance, true},
		{SkipReasonLedgerMismatch, true},
		{SkipReasonHoldDate, true},
		{SkipReasonBillingDay, true},
		{SkipReasonDeclinedToday, true},
		{SkipReasonMaxAttempts, false},
		{SkipReasonDuplicate, false},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			assert.Equal(t, tt.deferrable, DeferrableSkip(tt.reason))
		})
	}
}
