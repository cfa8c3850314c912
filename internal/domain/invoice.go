package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice carries the unpaid balance reconciled against the account ledger
// before a batch charge.
type Invoice struct {
	ID        string
	AccountID string
	Balance   decimal.Decimal
	DueDate   time.Time
	Paid      bool
}

// Account carries the billing attributes the batch guard consults.
type Account struct {
	ID                  string
	PreferredBillingDay *int // day of month, nil or <= 0 means unset
	CreatedAt           time.Time
}

// HasPreferredBillingDay reports whether a usable preferred day is set.
func (a *Account) HasPreferredBillingDay() bool {
	return a.PreferredBillingDay != nil && *a.PreferredBillingDay > 0
}
