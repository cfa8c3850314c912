package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
)

// InvoiceRepository implements ports.InvoiceRepository using PostgreSQL.
type InvoiceRepository struct {
	db ports.DBPort
}

// NewInvoiceRepository creates a new PostgreSQL invoice repository
func NewInvoiceRepository(db ports.DBPort) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// ListUnpaidByAccount lists the account's unpaid invoices oldest first
func (r *InvoiceRepository) ListUnpaidByAccount(ctx context.Context, tx ports.DBTX, accountID string) ([]*domain.Invoice, error) {
	query := `
		SELECT id, account_id, balance, due_date, paid
		FROM invoices
		WHERE account_id = $1 AND NOT paid
		ORDER BY due_date`

	rows, err := executor(r.db, tx).Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list unpaid invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(&inv.ID, &inv.AccountID, &inv.Balance, &inv.DueDate, &inv.Paid); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unpaid invoices: %w", err)
	}
	return invoices, nil
}

// AccountRepository implements ports.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db ports.DBPort
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db ports.DBPort) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByID retrieves an account's billing attributes
func (r *AccountRepository) GetByID(ctx context.Context, tx ports.DBTX, id string) (*domain.Account, error) {
	query := `SELECT id, preferred_billing_day, created_at FROM accounts WHERE id = $1`

	var a domain.Account
	err := executor(r.db, tx).QueryRow(ctx, query, id).Scan(&a.ID, &a.PreferredBillingDay, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

// OutstandingBalance reads the account's ledger balance
func (r *AccountRepository) OutstandingBalance(ctx context.Context, tx ports.DBTX, accountID string) (decimal.Decimal, error) {
	query := `SELECT outstanding_balance FROM accounts WHERE id = $1`

	var balance decimal.Decimal
	err := executor(r.db, tx).QueryRow(ctx, query, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrAccountNotFound
		}
		return decimal.Zero, fmt.Errorf("scan account balance: %w", err)
	}
	return balance, nil
}
