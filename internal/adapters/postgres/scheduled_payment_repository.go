package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
)

// ScheduledPaymentRepository implements ports.ScheduledPaymentRepository
// using PostgreSQL.
type ScheduledPaymentRepository struct {
	db ports.DBPort
}

// NewScheduledPaymentRepository creates a new PostgreSQL scheduled payment repository
func NewScheduledPaymentRepository(db ports.DBPort) *ScheduledPaymentRepository {
	return &ScheduledPaymentRepository{db: db}
}

const scheduledPaymentColumns = `
	id, account_id, payment_method_id, trigger_type, status, metadata,
	payment_id, scheduled_for, created_by, created_at, updated_at
`

// Create inserts a new scheduled payment
func (r *ScheduledPaymentRepository) Create(ctx context.Context, tx ports.DBTX, sp *domain.ScheduledPayment) error {
	query := `
		INSERT INTO scheduled_payments (` + scheduledPaymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	metadataJSON, err := json.Marshal(sp.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = executor(r.db, tx).Exec(ctx, query,
		sp.ID,
		sp.AccountID,
		sp.PaymentMethodID,
		string(sp.Trigger),
		string(sp.Status),
		metadataJSON,
		sp.PaymentID,
		sp.ScheduledFor,
		sp.CreatedBy,
		sp.CreatedAt,
		sp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create scheduled payment: %w", err)
	}
	return nil
}

// GetByID retrieves a scheduled payment by its ID
func (r *ScheduledPaymentRepository) GetByID(ctx context.Context, tx ports.DBTX, id string) (*domain.ScheduledPayment, error) {
	query := `SELECT ` + scheduledPaymentColumns + ` FROM scheduled_payments WHERE id = $1`
	return r.scanScheduled(executor(r.db, tx).QueryRow(ctx, query, id))
}

// ListPendingDue lists PENDING scheduled payments due at or before asOf
func (r *ScheduledPaymentRepository) ListPendingDue(ctx context.Context, tx ports.DBTX, asOf time.Time, limit int) ([]*domain.ScheduledPayment, error) {
	query := `
		SELECT ` + scheduledPaymentColumns + ` FROM scheduled_payments
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for
		LIMIT $3`

	rows, err := executor(r.db, tx).Query(ctx, query,
		string(domain.ScheduledPaymentStatusPending), asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list due scheduled payments: %w", err)
	}
	defer rows.Close()

	var due []*domain.ScheduledPayment
	for rows.Next() {
		sp, err := r.scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list due scheduled payments: %w", err)
	}
	return due, nil
}

// UpdateStatus moves a scheduled payment out of PENDING, recording the
// resulting payment id when one was created
func (r *ScheduledPaymentRepository) UpdateStatus(ctx context.Context, tx ports.DBTX, id string,
	status domain.ScheduledPaymentStatus, paymentID *string) error {

	query := `
		UPDATE scheduled_payments
		SET status = $2, payment_id = COALESCE($3, payment_id), updated_at = now()
		WHERE id = $1`

	tag, err := executor(r.db, tx).Exec(ctx, query, id, string(status), paymentID)
	if err != nil {
		return fmt.Errorf("update scheduled payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduledPaymentNotFound.WithDetail("scheduled_payment_id", id)
	}
	return nil
}

func (r *ScheduledPaymentRepository) scanScheduled(row pgx.Row) (*domain.ScheduledPayment, error) {
	var (
		sp           domain.ScheduledPayment
		trigger      string
		status       string
		metadataJSON []byte
	)

	err := row.Scan(
		&sp.ID,
		&sp.AccountID,
		&sp.PaymentMethodID,
		&trigger,
		&status,
		&metadataJSON,
		&sp.PaymentID,
		&sp.ScheduledFor,
		&sp.CreatedBy,
		&sp.CreatedAt,
		&sp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduledPaymentNotFound
		}
		return nil, fmt.Errorf("scan scheduled payment: %w", err)
	}

	sp.Trigger = domain.ScheduledPaymentTrigger(trigger)
	sp.Status = domain.ScheduledPaymentStatus(status)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &sp.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &sp, nil
}
