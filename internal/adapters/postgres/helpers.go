package postgres

import (
	"github.com/meridianpay/payment-engine/internal/domain/ports"
)

// PostgreSQL error code for unique violation
const pgUniqueViolationCode = "23505"

// executor resolves the executor for a call: the caller's transaction when
// one is supplied, the pool otherwise.
func executor(db ports.DBPort, tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return db.GetDB()
}

// nullString returns nil if string is empty, otherwise returns pointer to string
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// stringValue dereferences a nullable text column into its zero default.
func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
