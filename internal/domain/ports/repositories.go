package ports

import (
	"context"
	"time"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentRepository is the persistence boundary for Payment rows. Every
// method accepts an optional DBTX so callers can scope writes to an enclosing
// transaction; a nil executor falls back to the pool.
type PaymentRepository interface {
	Create(ctx context.Context, tx DBTX, payment *domain.Payment) error
	GetByID(ctx context.Context, tx DBTX, id string) (*domain.Payment, error)

	// UpdateStatus performs the single status mutation an operation outcome
	// is allowed to make.
	UpdateStatus(ctx context.Context, tx DBTX, id string, status domain.PaymentStatus,
		processedAt *time.Time, suspendReason *domain.SuspendReason, updatedBy string) error

	// UpdateRefundRouting retags a refund payment's gateway and instrument
	// type. A retry that switches strategy persists the new routing on the
	// already-created row through this method.
	UpdateRefundRouting(ctx context.Context, tx DBTX, id string,
		gatewayID string, paymentType domain.PaymentType, updatedBy string) error

	// CountDeclinedByMethod counts all DECLINED payments recorded against a
	// payment method.
	CountDeclinedByMethod(ctx context.Context, tx DBTX, paymentMethodID string) (int, error)

	// CountDeclinedByMethodOn counts DECLINED payments for a method on the
	// given calendar day.
	CountDeclinedByMethodOn(ctx context.Context, tx DBTX, paymentMethodID string, day time.Time) (int, error)

	// FindDuplicate locates a prior payment for the same account and method
	// with the same amount and invoice set processed (or, while still
	// unprocessed, created) at or after since. Cancelled payments do not
	// count as duplicates.
	FindDuplicate(ctx context.Context, tx DBTX, accountID, paymentMethodID string,
		amount decimal.Decimal, invoiceIDs []string, since time.Time) (*domain.Payment, error)

	// FindSuccessfulRefund locates a CREDITED child refund of the given
	// payment, if any exists.
	FindSuccessfulRefund(ctx context.Context, tx DBTX, originalPaymentID string) (*domain.Payment, error)
}

// TransactionRepository persists immutable gateway audit records.
type TransactionRepository interface {
	Create(ctx context.Context, tx DBTX, transaction *domain.Transaction) error
	GetByID(ctx context.Context, tx DBTX, id string) (*domain.Transaction, error)

	// FindByPaymentAndOperations returns the most recent transaction for the
	// payment whose operation is in ops.
	FindByPaymentAndOperations(ctx context.Context, tx DBTX, paymentID string,
		ops []domain.OperationType) (*domain.Transaction, error)
}

// PaymentMethodRepository reads stored instruments.
type PaymentMethodRepository interface {
	GetByID(ctx context.Context, tx DBTX, id string) (*domain.PaymentMethod, error)
	ListAutopayByAccount(ctx context.Context, tx DBTX, accountID string) ([]*domain.PaymentMethod, error)
}

// ScheduledPaymentRepository persists the PENDING -> {SUBMITTED, CANCELLED}
// lifecycle.
type ScheduledPaymentRepository interface {
	Create(ctx context.Context, tx DBTX, sp *domain.ScheduledPayment) error
	GetByID(ctx context.Context, tx DBTX, id string) (*domain.ScheduledPayment, error)
	ListPendingDue(ctx context.Context, tx DBTX, asOf time.Time, limit int) ([]*domain.ScheduledPayment, error)
	UpdateStatus(ctx context.Context, tx DBTX, id string, status domain.ScheduledPaymentStatus, paymentID *string) error
}

// FailedRefundRepository appends refund failure audit rows.
type FailedRefundRepository interface {
	Create(ctx context.Context, tx DBTX, f *domain.FailedRefundPayment) error
}

// InvoiceRepository reads the unpaid invoices reconciled before a batch
// charge.
type InvoiceRepository interface {
	ListUnpaidByAccount(ctx context.Context, tx DBTX, accountID string) ([]*domain.Invoice, error)
}

// AccountRepository reads billing attributes and the ledger balance.
type AccountRepository interface {
	GetByID(ctx context.Context, tx DBTX, id string) (*domain.Account, error)
	OutstandingBalance(ctx context.Context, tx DBTX, accountID string) (decimal.Decimal, error)
}
