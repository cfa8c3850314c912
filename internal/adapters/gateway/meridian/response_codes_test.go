package meridian

import (
	"testing"

	"github.com/meridianpay/payment-engine/internal/domain"
)

func TestIsApproved(t *testing.T) {
	if !isApproved("00") {
		t.Error("expected 00 to be approved")
	}
	for _, code := range []string{"05", "12", "51", "82", "96", ""} {
		if isApproved(code) {
			t.Errorf("expected %q not to be approved", code)
		}
	}
}

func TestHardError(t *testing.T) {
	tests := []struct {
		code string
		want domain.ErrorCode
	}{
		{"12", domain.ErrorCodeGatewayInvalidOperation},
		{"82", domain.ErrorCodeGatewayCardValidation},
	}

	for _, tt := range tests {
		err := hardError(tt.code)
		if err == nil {
			t.Errorf("hardError(%q) = nil, want domain error", tt.code)
			continue
		}
		if !domain.IsDomainError(err, tt.want) {
			t.Errorf("hardError(%q): expected code %s, got %v", tt.code, tt.want, err)
		}
		if !domain.IsHardGatewayError(err) {
			t.Errorf("hardError(%q): expected a hard gateway error", tt.code)
		}
	}
}

func TestHardError_DeclinesAreSoft(t *testing.T) {
	for _, code := range []string{"00", "05", "14", "51", "54", "59", "96", "XX"} {
		if err := hardError(code); err != nil {
			t.Errorf("hardError(%q) = %v, want nil", code, err)
		}
	}
}

func TestDeclineReason(t *testing.T) {
	tests := []struct {
		code string
		want domain.DeclineReason
	}{
		{"51", domain.DeclineReasonInsufficientFunds},
		{"54", domain.DeclineReasonExpiredCard},
		{"14", domain.DeclineReasonInvalidAccount},
		{"05", domain.DeclineReasonDoNotHonor},
		{"59", domain.DeclineReasonFraudSuspected},
		{"96", domain.DeclineReasonProcessorError},
		{"77", domain.DeclineReasonUnknown},
		{"", domain.DeclineReasonUnknown},
	}

	for _, tt := range tests {
		if got := declineReason(tt.code); got != tt.want {
			t.Errorf("declineReason(%q) = %s, want %s", tt.code, got, tt.want)
		}
	}
}
