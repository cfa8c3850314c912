package postgres

import (
	"context"
	"fmt"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
)

// FailedRefundRepository implements ports.FailedRefundRepository using
// PostgreSQL. The table is append-only.
type FailedRefundRepository struct {
	db ports.DBPort
}

// NewFailedRefundRepository creates a new PostgreSQL failed refund repository
func NewFailedRefundRepository(db ports.DBPort) *FailedRefundRepository {
	return &FailedRefundRepository{db: db}
}

// Create appends a refund failure audit row
func (r *FailedRefundRepository) Create(ctx context.Context, tx ports.DBTX, f *domain.FailedRefundPayment) error {
	query := `
		INSERT INTO failed_refund_payments (
			id, original_payment_id, refund_payment_id, amount, failure_reason, reported_at
		) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := executor(r.db, tx).Exec(ctx, query,
		f.ID,
		f.OriginalPaymentID,
		f.RefundPaymentID,
		f.Amount,
		f.FailureReason,
		f.ReportedAt,
	)
	if err != nil {
		return fmt.Errorf("create failed refund record: %w", err)
	}
	return nil
}
