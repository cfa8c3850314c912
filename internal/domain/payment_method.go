package domain

import (
	"time"
)

// ACHAccountType distinguishes checking from savings accounts.
type ACHAccountType string

const (
	ACHAccountTypeChecking ACHAccountType = "CHECKING"
	ACHAccountTypeSavings  ACHAccountType = "SAVINGS"
)

// PaymentMethod is a stored instrument belonging to an account. Card methods
// hold a token plus expiration; ACH methods hold either a token or raw
// account+routing numbers.
type PaymentMethod struct {
	ID               string
	AccountID        string
	Type             PaymentType
	CardToken        string
	CardExpMonth     string // MM
	CardExpYear      string // YYYY
	ACHToken         string
	ACHAccountNumber string
	ACHRoutingNumber string
	ACHAccountType   ACHAccountType
	NameOnAccount    string
	AddressLine1     string
	AddressLine2     string
	City             string
	Province         string
	PostalCode       string
	CountryCode      string
	EmailAddress     string
	PaymentHoldDate  *time.Time
	IsPrimary        bool
	IsAutopay        bool
	DeletedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsDeleted reports whether the method has been soft-deleted.
func (m *PaymentMethod) IsDeleted() bool {
	return m.DeletedAt != nil
}

// OnHold reports whether the method's hold date is set and still in the
// future relative to now.
func (m *PaymentMethod) OnHold(now time.Time) bool {
	return m.PaymentHoldDate != nil && m.PaymentHoldDate.After(now)
}
