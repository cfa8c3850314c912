// Package batch runs unattended charges with the pre-flight guards that keep
// a scheduled run from charging the wrong amount, the wrong day, or twice.
package batch

import (
	"context"
	"time"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// GuardConfig tunes the batch pre-flight checks.
type GuardConfig struct {
	// MaxDeclinedAttempts permanently stops retrying a payment method once
	// this many DECLINED payments exist for it.
	MaxDeclinedAttempts int

	// DuplicateWindow is the recency window inside which an identical prior
	// payment suppresses a new attempt.
	DuplicateWindow time.Duration
}

// DefaultGuardConfig returns the standard guard settings.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		MaxDeclinedAttempts: 3,
		DuplicateWindow:     7 * 24 * time.Hour,
	}
}

// Skip reasons reported on the payment-skipped event.
const (
	SkipReasonNoBalance      = "no unpaid balance"
	SkipReasonLedgerMismatch = "invoice total does not match ledger balance"
	SkipReasonHoldDate       = "payment method hold date is in the future"
	SkipReasonBillingDay     = "today is not the preferred billing day"
	SkipReasonMaxAttempts    = "declined attempt ceiling reached for payment method"
	SkipReasonDeclinedToday  = "payment method already declined today"
	SkipReasonDuplicate      = "duplicate of a recent payment"
)

// DeferrableSkip reports whether a skip reason clears on its own with time: a
// hold date passes, the preferred billing day arrives, a balance accrues, the
// daily decline lock rolls over, a ledger mismatch gets corrected. Deferrable
// skips leave the underlying work eligible for a later run; the other reasons
// (attempt ceiling, duplicate) are final for the charge they withheld.
func DeferrableSkip(reason string) bool {
	switch reason {
	case SkipReasonNoBalance, SkipReasonLedgerMismatch, SkipReasonHoldDate,
		SkipReasonBillingDay, SkipReasonDeclinedToday:
		return true
	}
	return false
}

// Decision is the guard's verdict for one candidate charge.
type Decision struct {
	Proceed    bool
	SkipReason string

	// Suspend indicates the attempt must be recorded as a SUSPENDED payment
	// rather than silently skipped.
	Suspend       bool
	SuspendReason domain.SuspendReason

	// Amount and InvoiceIDs carry the reconciled charge when Proceed (or
	// Suspend) is set.
	Amount     decimal.Decimal
	InvoiceIDs []string
}

// Guard evaluates the independent pre-flight checks before the orchestrator
// is invoked for an unattended charge. Checks are read-then-decide; there is
// no cross-process lock (see the recency window as the secondary defense).
type Guard struct {
	payments ports.PaymentRepository
	invoices ports.InvoiceRepository
	accounts ports.AccountRepository
	logger   ports.Logger
	cfg      GuardConfig
	now      func() time.Time
}

// NewGuard creates a batch guard.
func NewGuard(
	payments ports.PaymentRepository,
	invoices ports.InvoiceRepository,
	accounts ports.AccountRepository,
	logger ports.Logger,
	cfg GuardConfig,
) *Guard {
	return &Guard{
		payments: payments,
		invoices: invoices,
		accounts: accounts,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Check runs every guard in order and short-circuits on the first one that
// fails. A returned Decision with Proceed=false carries the skip reason; an
// error means the checks themselves could not run.
func (g *Guard) Check(ctx context.Context, account *domain.Account, method *domain.PaymentMethod) (*Decision, error) {
	now := g.now()

	amount, invoiceIDs, decision, err := g.reconcileLedger(ctx, account.ID)
	if err != nil || decision != nil {
		return decision, err
	}

	if method.OnHold(now) {
		return &Decision{SkipReason: SkipReasonHoldDate}, nil
	}

	if account.HasPreferredBillingDay() && !billingDayMatches(*account.PreferredBillingDay, now) {
		return &Decision{SkipReason: SkipReasonBillingDay}, nil
	}

	if d, err := g.checkAttemptLimits(ctx, method.ID, now); err != nil || d != nil {
		return d, err
	}

	dup, err := g.payments.FindDuplicate(ctx, nil, account.ID, method.ID, amount, invoiceIDs, now.Add(-g.cfg.DuplicateWindow))
	if err != nil {
		return nil, err
	}
	if dup != nil {
		g.logger.Info("duplicate payment suppressed",
			ports.String("account_id", account.ID),
			ports.String("payment_method_id", method.ID),
			ports.String("prior_payment_id", dup.ID))
		return &Decision{
			SkipReason:    SkipReasonDuplicate,
			Suspend:       true,
			SuspendReason: domain.SuspendReasonDuplicate,
			Amount:        amount,
			InvoiceIDs:    invoiceIDs,
		}, nil
	}

	return &Decision{Proceed: true, Amount: amount, InvoiceIDs: invoiceIDs}, nil
}

// reconcileLedger sums the account's unpaid invoice balances and requires the
// total to be positive and to equal the ledger's outstanding balance.
func (g *Guard) reconcileLedger(ctx context.Context, accountID string) (decimal.Decimal, []string, *Decision, error) {
	unpaid, err := g.invoices.ListUnpaidByAccount(ctx, nil, accountID)
	if err != nil {
		return decimal.Zero, nil, nil, err
	}

	total := decimal.Zero
	invoiceIDs := make([]string, 0, len(unpaid))
	for _, inv := range unpaid {
		total = total.Add(inv.Balance)
		invoiceIDs = append(invoiceIDs, inv.ID)
	}

	if !total.IsPositive() {
		return decimal.Zero, nil, &Decision{SkipReason: SkipReasonNoBalance}, nil
	}

	ledger, err := g.accounts.OutstandingBalance(ctx, nil, accountID)
	if err != nil {
		return decimal.Zero, nil, nil, err
	}
	if !total.Equal(ledger) {
		g.logger.Warn("ledger reconciliation mismatch",
			ports.String("account_id", accountID),
			ports.String("invoice_total", total.String()),
			ports.String("ledger_balance", ledger.String()))
		return decimal.Zero, nil, &Decision{SkipReason: SkipReasonLedgerMismatch}, nil
	}

	return total, invoiceIDs, nil, nil
}

// checkAttemptLimits applies the permanent and the daily declined-attempt
// ceilings for a payment method.
func (g *Guard) checkAttemptLimits(ctx context.Context, methodID string, now time.Time) (*Decision, error) {
	total, err := g.payments.CountDeclinedByMethod(ctx, nil, methodID)
	if err != nil {
		return nil, err
	}
	if total >= g.cfg.MaxDeclinedAttempts {
		return &Decision{SkipReason: SkipReasonMaxAttempts}, nil
	}

	today, err := g.payments.CountDeclinedByMethodOn(ctx, nil, methodID, now)
	if err != nil {
		return nil, err
	}
	if today > 0 {
		return &Decision{SkipReason: SkipReasonDeclinedToday}, nil
	}

	return nil, nil
}

// billingDayMatches reports whether today's day-of-month matches the
// preferred day, clamping a preferred day beyond the month's length to the
// last day of the month.
func billingDayMatches(preferredDay int, now time.Time) bool {
	last := daysInMonth(now)
	effective := preferredDay
	if effective > last {
		effective = last
	}
	return now.Day() == effective
}

func daysInMonth(t time.Time) int {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1).Day()
}
