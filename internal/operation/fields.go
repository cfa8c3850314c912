package operation

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
)

// Per-field format rules. A field violating its rule produces a validation
// error, never an exception-style failure.
var (
	reCardExpYear  = regexp.MustCompile(`^\d{4}$`)
	reCardExpMonth = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)
	reACHAccount   = regexp.MustCompile(`^\d{4,17}$`)
	reACHRouting   = regexp.MustCompile(`^\d{9}$`)
	reACHAcctType  = regexp.MustCompile(`^(CHECKING|SAVINGS)$`)
	reName         = regexp.MustCompile(`^[\pL\pN .,'&\-]{1,100}$`)
	reAddress      = regexp.MustCompile(`^[\pL\pN #.,'/\-]{1,100}$`)
	reCity         = regexp.MustCompile(`^[\pL .'\-]{1,50}$`)
	reProvince     = regexp.MustCompile(`^[\pL .'\-]{1,50}$`)
	rePostalCode   = regexp.MustCompile(`^[A-Za-z0-9 \-]{3,10}$`)
	reCountryCode  = regexp.MustCompile(`^[A-Z]{2}$`)
	reEmail        = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	reCurrency     = regexp.MustCompile(`^[A-Z]{3}$`)
	reDescription  = regexp.MustCompile(`^[\pL\pN .,'#&/:\-]{0,255}$`)
	reTransaction  = regexp.MustCompile(`^[A-Za-z0-9\-]{1,64}$`)
)

// IsValidReferenceID reports whether the reference id is a syntactically
// valid unique identifier.
func IsValidReferenceID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Snapshot builds the canonical serialized request for audit replay. The
// same field set always produces the same snapshot.
func Snapshot(req *ports.GatewayRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("snapshot request: %w", err)
	}
	return string(data), nil
}

// DecodeSnapshot reverses Snapshot, reproducing the canonical field values.
func DecodeSnapshot(raw string) (*ports.GatewayRequest, error) {
	var req ports.GatewayRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil, fmt.Errorf("decode request snapshot: %w", err)
	}
	return &req, nil
}
