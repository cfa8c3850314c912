package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
)

// PaymentMethodRepository implements ports.PaymentMethodRepository using
// PostgreSQL.
type PaymentMethodRepository struct {
	db ports.DBPort
}

// NewPaymentMethodRepository creates a new PostgreSQL payment method repository
func NewPaymentMethodRepository(db ports.DBPort) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

const paymentMethodColumns = `
	id, account_id, payment_type, card_token, card_exp_month, card_exp_year,
	ach_token, ach_account_number, ach_routing_number, ach_account_type,
	name_on_account, address_line_1, address_line_2, city, province,
	postal_code, country_code, email_address, payment_hold_date,
	is_primary, is_autopay, deleted_at, created_at, updated_at
`

// GetByID retrieves a payment method by its ID. Soft-deleted rows are still
// returned so callers can decide how to treat them.
func (r *PaymentMethodRepository) GetByID(ctx context.Context, tx ports.DBTX, id string) (*domain.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE id = $1`
	return r.scanMethod(executor(r.db, tx).QueryRow(ctx, query, id))
}

// ListAutopayByAccount lists the account's live autopay methods
func (r *PaymentMethodRepository) ListAutopayByAccount(ctx context.Context, tx ports.DBTX, accountID string) ([]*domain.PaymentMethod, error) {
	query := `
		SELECT ` + paymentMethodColumns + ` FROM payment_methods
		WHERE account_id = $1 AND is_autopay AND deleted_at IS NULL
		ORDER BY is_primary DESC, created_at`

	rows, err := executor(r.db, tx).Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list autopay methods: %w", err)
	}
	defer rows.Close()

	var methods []*domain.PaymentMethod
	for rows.Next() {
		m, err := r.scanMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list autopay methods: %w", err)
	}
	return methods, nil
}

func (r *PaymentMethodRepository) scanMethod(row pgx.Row) (*domain.PaymentMethod, error) {
	var (
		m           domain.PaymentMethod
		paymentType string
		cardToken   *string
		expMonth    *string
		expYear     *string
		achToken    *string
		achAccount  *string
		achRouting  *string
		achAcctType *string
		addr2       *string
		email       *string
	)

	err := row.Scan(
		&m.ID,
		&m.AccountID,
		&paymentType,
		&cardToken,
		&expMonth,
		&expYear,
		&achToken,
		&achAccount,
		&achRouting,
		&achAcctType,
		&m.NameOnAccount,
		&m.AddressLine1,
		&addr2,
		&m.City,
		&m.Province,
		&m.PostalCode,
		&m.CountryCode,
		&email,
		&m.PaymentHoldDate,
		&m.IsPrimary,
		&m.IsAutopay,
		&m.DeletedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("scan payment method: %w", err)
	}

	m.Type = domain.PaymentType(paymentType)
	m.CardToken = stringValue(cardToken)
	m.CardExpMonth = stringValue(expMonth)
	m.CardExpYear = stringValue(expYear)
	m.ACHToken = stringValue(achToken)
	m.ACHAccountNumber = stringValue(achAccount)
	m.ACHRoutingNumber = stringValue(achRouting)
	m.ACHAccountType = domain.ACHAccountType(stringValue(achAcctType))
	m.AddressLine2 = stringValue(addr2)
	m.EmailAddress = stringValue(email)
	return &m, nil
}
