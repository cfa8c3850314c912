package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
)

// TransactionRepository implements ports.TransactionRepository using
// PostgreSQL. Rows are insert-only.
type TransactionRepository struct {
	db ports.DBPort
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(db ports.DBPort) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, payment_id, operation, raw_request, raw_response,
	gateway_transaction_id, gateway_response_code, decline_reason, created_at
`

// Create inserts a new gateway audit record
func (r *TransactionRepository) Create(ctx context.Context, tx ports.DBTX, transaction *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var declineReason *string
	if transaction.DeclineReason != nil {
		s := string(*transaction.DeclineReason)
		declineReason = &s
	}

	_, err := executor(r.db, tx).Exec(ctx, query,
		transaction.ID,
		transaction.PaymentID,
		string(transaction.Operation),
		transaction.RawRequest,
		transaction.RawResponse,
		nullString(transaction.GatewayTransactionID),
		nullString(transaction.GatewayResponseCode),
		declineReason,
		transaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, tx ports.DBTX, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return r.scanTransaction(executor(r.db, tx).QueryRow(ctx, query, id))
}

// FindByPaymentAndOperations returns the most recent transaction for the
// payment whose operation is in ops, or nil when none exists
func (r *TransactionRepository) FindByPaymentAndOperations(ctx context.Context, tx ports.DBTX, paymentID string,
	ops []domain.OperationType) (*domain.Transaction, error) {

	opNames := make([]string, len(ops))
	for i, op := range ops {
		opNames[i] = string(op)
	}

	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE payment_id = $1 AND operation = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1`

	t, err := r.scanTransaction(executor(r.db, tx).QueryRow(ctx, query, paymentID, opNames))
	if err != nil {
		if domain.IsDomainError(err, domain.ErrorCodeTransactionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *TransactionRepository) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t             domain.Transaction
		operation     string
		gatewayTxnID  *string
		responseCode  *string
		declineReason *string
	)

	err := row.Scan(
		&t.ID,
		&t.PaymentID,
		&operation,
		&t.RawRequest,
		&t.RawResponse,
		&gatewayTxnID,
		&responseCode,
		&declineReason,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	t.Operation = domain.OperationType(operation)
	t.GatewayTransactionID = stringValue(gatewayTxnID)
	t.GatewayResponseCode = stringValue(responseCode)
	if declineReason != nil {
		dr := domain.DeclineReason(*declineReason)
		t.DeclineReason = &dr
	}
	return &t, nil
}
