package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
)

// PaymentRepository implements ports.PaymentRepository using PostgreSQL
type PaymentRepository struct {
	db ports.DBPort
}

// NewPaymentRepository creates a new PostgreSQL payment repository
func NewPaymentRepository(db ports.DBPort) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// paymentColumns defines the columns selected for payment queries
const paymentColumns = `
	id, account_id, payment_method_id, original_payment_id, payment_type,
	gateway_id, amount, applied_amount, currency, status, processed_at,
	suspend_reason, invoice_ids, is_batch, is_scheduled,
	created_by, updated_by, created_at, updated_at
`

// Create inserts a new payment record
func (r *PaymentRepository) Create(ctx context.Context, tx ports.DBTX, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	var suspendReason *string
	if payment.SuspendReason != nil {
		s := string(*payment.SuspendReason)
		suspendReason = &s
	}

	_, err := executor(r.db, tx).Exec(ctx, query,
		payment.ID,
		payment.AccountID,
		payment.PaymentMethodID,
		payment.OriginalPaymentID,
		string(payment.Type),
		payment.GatewayID,
		payment.Amount,
		payment.AppliedAmount,
		payment.Currency,
		string(payment.Status),
		payment.ProcessedAt,
		suspendReason,
		payment.InvoiceIDs,
		payment.IsBatch,
		payment.IsScheduled,
		payment.CreatedBy,
		payment.UpdatedBy,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return domain.WrapError(domain.ErrorCodeDatabaseError, "payment already exists", err)
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by its ID
func (r *PaymentRepository) GetByID(ctx context.Context, tx ports.DBTX, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanPayment(executor(r.db, tx).QueryRow(ctx, query, id))
}

// UpdateStatus applies the single status mutation an operation outcome makes
func (r *PaymentRepository) UpdateStatus(ctx context.Context, tx ports.DBTX, id string, status domain.PaymentStatus,
	processedAt *time.Time, suspendReason *domain.SuspendReason, updatedBy string) error {

	query := `
		UPDATE payments
		SET status = $2,
		    processed_at = COALESCE($3, processed_at),
		    suspend_reason = $4,
		    updated_by = $5,
		    updated_at = now()
		WHERE id = $1`

	var reason *string
	if suspendReason != nil {
		s := string(*suspendReason)
		reason = &s
	}

	tag, err := executor(r.db, tx).Exec(ctx, query, id, string(status), processedAt, reason, updatedBy)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound.WithDetail("payment_id", id)
	}
	return nil
}

// UpdateRefundRouting retags a refund payment's gateway and instrument type
func (r *PaymentRepository) UpdateRefundRouting(ctx context.Context, tx ports.DBTX, id string,
	gatewayID string, paymentType domain.PaymentType, updatedBy string) error {

	query := `
		UPDATE payments
		SET gateway_id = $2,
		    payment_type = $3,
		    updated_by = $4,
		    updated_at = now()
		WHERE id = $1`

	tag, err := executor(r.db, tx).Exec(ctx, query, id, gatewayID, string(paymentType), updatedBy)
	if err != nil {
		return fmt.Errorf("update refund routing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound.WithDetail("payment_id", id)
	}
	return nil
}

// CountDeclinedByMethod counts all DECLINED payments for a payment method
func (r *PaymentRepository) CountDeclinedByMethod(ctx context.Context, tx ports.DBTX, paymentMethodID string) (int, error) {
	query := `SELECT count(*) FROM payments WHERE payment_method_id = $1 AND status = $2`

	var count int
	err := executor(r.db, tx).QueryRow(ctx, query, paymentMethodID, string(domain.PaymentStatusDeclined)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count declined payments: %w", err)
	}
	return count, nil
}

// CountDeclinedByMethodOn counts DECLINED payments for a method on one calendar day
func (r *PaymentRepository) CountDeclinedByMethodOn(ctx context.Context, tx ports.DBTX, paymentMethodID string, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	query := `
		SELECT count(*) FROM payments
		WHERE payment_method_id = $1 AND status = $2
		  AND updated_at >= $3 AND updated_at < $4`

	var count int
	err := executor(r.db, tx).QueryRow(ctx, query, paymentMethodID,
		string(domain.PaymentStatusDeclined), start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count declined payments for day: %w", err)
	}
	return count, nil
}

// FindDuplicate locates a prior payment for the same account and method with
// the same amount and invoice set inside the recency window. The window is
// measured from processed_at, falling back to created_at for rows that never
// processed. SUSPENDED rows count: a withheld attempt still marks the window.
func (r *PaymentRepository) FindDuplicate(ctx context.Context, tx ports.DBTX, accountID, paymentMethodID string,
	amount decimal.Decimal, invoiceIDs []string, since time.Time) (*domain.Payment, error) {

	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE account_id = $1 AND payment_method_id = $2
		  AND amount = $3 AND invoice_ids = $4
		  AND COALESCE(processed_at, created_at) >= $5
		  AND status != $6
		ORDER BY created_at DESC
		LIMIT 1`

	p, err := r.scanPayment(executor(r.db, tx).QueryRow(ctx, query,
		accountID, paymentMethodID, amount, invoiceIDs, since,
		string(domain.PaymentStatusCancelled)))
	if err != nil {
		if domain.IsDomainError(err, domain.ErrorCodePaymentNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// FindSuccessfulRefund locates a CREDITED child refund of the given payment
func (r *PaymentRepository) FindSuccessfulRefund(ctx context.Context, tx ports.DBTX, originalPaymentID string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE original_payment_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`

	p, err := r.scanPayment(executor(r.db, tx).QueryRow(ctx, query,
		originalPaymentID, string(domain.PaymentStatusCredited)))
	if err != nil {
		if domain.IsDomainError(err, domain.ErrorCodePaymentNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// scanPayment maps one row into a domain payment
func (r *PaymentRepository) scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p             domain.Payment
		paymentType   string
		status        string
		suspendReason *string
	)

	err := row.Scan(
		&p.ID,
		&p.AccountID,
		&p.PaymentMethodID,
		&p.OriginalPaymentID,
		&paymentType,
		&p.GatewayID,
		&p.Amount,
		&p.AppliedAmount,
		&p.Currency,
		&status,
		&p.ProcessedAt,
		&suspendReason,
		&p.InvoiceIDs,
		&p.IsBatch,
		&p.IsScheduled,
		&p.CreatedBy,
		&p.UpdatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	p.Type = domain.PaymentType(paymentType)
	p.Status = domain.PaymentStatus(status)
	if suspendReason != nil {
		sr := domain.SuspendReason(*suspendReason)
		p.SuspendReason = &sr
	}
	return &p, nil
}
