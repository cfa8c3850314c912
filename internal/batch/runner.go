package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
	"github.com/meridianpay/payment-engine/internal/observability"
	"github.com/meridianpay/payment-engine/internal/processor"
)

// Candidate is one account/method pair queued for an unattended charge.
type Candidate struct {
	AccountID       string
	PaymentMethodID string
	RequestedBy     string
	Description     string
}

// Outcome reports what happened to one candidate.
type Outcome struct {
	PaymentID  string
	Status     domain.PaymentStatus
	Skipped    bool
	SkipReason string
}

// Summary aggregates a batch run. Items are processed independently; one
// item's error never stops the rest.
type Summary struct {
	Processed int
	Captured  int
	Declined  int
	Skipped   int
	Errors    []error
}

// RunnerConfig tunes the batch runner.
type RunnerConfig struct {
	// ChargeCurrency is the settlement currency for unattended charges.
	ChargeCurrency string
}

// DefaultRunnerConfig returns the standard runner settings.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{ChargeCurrency: "USD"}
}

// Runner drives guarded unattended charges through the payment processor.
type Runner struct {
	db       ports.DBPort
	payments ports.PaymentRepository
	methods  ports.PaymentMethodRepository
	accounts ports.AccountRepository
	txns     ports.TransactionRepository
	guard    *Guard
	gateway  ports.Gateway
	events   ports.EventPublisher
	logger   ports.Logger
	metrics  *observability.Metrics
	cfg      RunnerConfig
	now      func() time.Time
}

// NewRunner creates a batch runner. An empty charge currency falls back to
// the default.
func NewRunner(
	db ports.DBPort,
	payments ports.PaymentRepository,
	methods ports.PaymentMethodRepository,
	accounts ports.AccountRepository,
	txns ports.TransactionRepository,
	guard *Guard,
	gateway ports.Gateway,
	events ports.EventPublisher,
	logger ports.Logger,
	metrics *observability.Metrics,
	cfg RunnerConfig,
) *Runner {
	if cfg.ChargeCurrency == "" {
		cfg.ChargeCurrency = DefaultRunnerConfig().ChargeCurrency
	}
	return &Runner{
		db:       db,
		payments: payments,
		methods:  methods,
		accounts: accounts,
		txns:     txns,
		guard:    guard,
		gateway:  gateway,
		events:   events,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run processes every candidate, isolating failures per item.
func (r *Runner) Run(ctx context.Context, candidates []Candidate) *Summary {
	summary := &Summary{}
	for _, c := range candidates {
		outcome, err := r.ProcessCandidate(ctx, c)
		summary.Processed++
		if err != nil {
			r.logger.Error("batch candidate failed",
				ports.String("account_id", c.AccountID),
				ports.String("payment_method_id", c.PaymentMethodID),
				ports.Err(err))
			summary.Errors = append(summary.Errors, err)
			continue
		}
		switch {
		case outcome.Skipped:
			summary.Skipped++
		case outcome.Status == domain.PaymentStatusCaptured:
			summary.Captured++
		default:
			summary.Declined++
		}
	}
	return summary
}

// ProcessCandidate runs the guards for one candidate and, when they pass,
// drives the orchestrator's sale verb inside one database transaction:
// create pending payment, call gateway, update status. The payment-attempted
// event is published after commit in either outcome.
func (r *Runner) ProcessCandidate(ctx context.Context, c Candidate) (*Outcome, error) {
	account, err := r.accounts.GetByID(ctx, nil, c.AccountID)
	if err != nil {
		return nil, err
	}
	method, err := r.methods.GetByID(ctx, nil, c.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	if method.IsDeleted() {
		return nil, domain.ErrPaymentMethodNotFound.WithDetail("payment_method_id", c.PaymentMethodID)
	}

	decision, err := r.guard.Check(ctx, account, method)
	if err != nil {
		return nil, err
	}

	if !decision.Proceed {
		return r.recordSkip(ctx, c, method, decision)
	}

	now := r.now()
	payment := &domain.Payment{
		ID:              uuid.New().String(),
		AccountID:       account.ID,
		PaymentMethodID: method.ID,
		Type:            method.Type,
		Amount:          decision.Amount,
		Currency:        r.cfg.ChargeCurrency,
		Status:          domain.PaymentStatusAuthCapturing,
		InvoiceIDs:      decision.InvoiceIDs,
		IsBatch:         true,
		CreatedBy:       c.RequestedBy,
		UpdatedBy:       c.RequestedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := payment.Validate(); err != nil {
		return nil, err
	}

	var finalStatus domain.PaymentStatus

	err = r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := r.payments.Create(ctx, tx, payment); err != nil {
			return err
		}

		proc := processor.New(r.gateway, func(ctx context.Context, txn *domain.Transaction) error {
			return r.txns.Create(ctx, tx, txn)
		}, r.logger)
		proc.SetFields(processor.BuildChargeRequest(payment, method, c.Description))

		ok, err := proc.Sale(ctx)
		if err != nil {
			return err
		}

		finalStatus = domain.PaymentStatusDeclined
		if ok {
			finalStatus = domain.PaymentStatusCaptured
		}
		processedAt := r.now()
		return r.payments.UpdateStatus(ctx, tx, payment.ID, finalStatus, &processedAt, nil, c.RequestedBy)
	})
	if err != nil {
		return nil, err
	}

	r.events.Publish(ctx, domain.PaymentAttempted{
		PaymentID:       payment.ID,
		AccountID:       account.ID,
		PaymentMethodID: method.ID,
		Amount:          payment.Amount,
		Status:          finalStatus,
		Successful:      finalStatus == domain.PaymentStatusCaptured,
	})
	r.metrics.PaymentAttempted(string(finalStatus))

	r.logger.Info("batch charge attempted",
		ports.String("payment_id", payment.ID),
		ports.String("account_id", account.ID),
		ports.String("status", string(finalStatus)))

	return &Outcome{PaymentID: payment.ID, Status: finalStatus}, nil
}

// recordSkip publishes the payment-skipped event and, for duplicates,
// records the withheld attempt as a SUSPENDED payment without touching the
// gateway.
func (r *Runner) recordSkip(ctx context.Context, c Candidate, method *domain.PaymentMethod, decision *Decision) (*Outcome, error) {
	outcome := &Outcome{Skipped: true, SkipReason: decision.SkipReason}

	if decision.Suspend {
		now := r.now()
		reason := decision.SuspendReason
		payment := &domain.Payment{
			ID:              uuid.New().String(),
			AccountID:       c.AccountID,
			PaymentMethodID: method.ID,
			Type:            method.Type,
			Amount:          decision.Amount,
			Currency:        r.cfg.ChargeCurrency,
			Status:          domain.PaymentStatusSuspended,
			SuspendReason:   &reason,
			InvoiceIDs:      decision.InvoiceIDs,
			IsBatch:         true,
			CreatedBy:       c.RequestedBy,
			UpdatedBy:       c.RequestedBy,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return r.payments.Create(ctx, tx, payment)
		})
		if err != nil {
			return nil, err
		}
		outcome.PaymentID = payment.ID
		outcome.Status = domain.PaymentStatusSuspended
	}

	r.events.Publish(ctx, domain.PaymentSkipped{
		AccountID:       c.AccountID,
		PaymentMethodID: c.PaymentMethodID,
		Reason:          decision.SkipReason,
	})
	r.metrics.BatchSkipped(decision.SkipReason)

	r.logger.Info("batch charge skipped",
		ports.String("account_id", c.AccountID),
		ports.String("payment_method_id", c.PaymentMethodID),
		ports.String("reason", decision.SkipReason))

	return outcome, nil
}
