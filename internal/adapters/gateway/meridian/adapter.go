// Package meridian implements the Gateway port against the Meridian
// form-post API.
package meridian

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
	"github.com/meridianpay/payment-engine/internal/observability"
	"github.com/meridianpay/payment-engine/pkg/resilience"
)

// Config contains configuration for the Meridian adapter
type Config struct {
	// Base URL for the form-post API
	// Sandbox: https://sandbox.meridianpay.io/api/formpost
	// Production: https://api.meridianpay.io/api/formpost
	BaseURL    string
	MerchantID string
	APIKey     string

	// HTTP client timeout
	Timeout time.Duration

	// Retry configuration
	MaxRetries int
}

// DefaultConfig returns default configuration for the given environment
func DefaultConfig(environment string) *Config {
	baseURL := "https://api.meridianpay.io/api/formpost"
	if environment == "sandbox" {
		baseURL = "https://sandbox.meridianpay.io/api/formpost"
	}
	return &Config{
		BaseURL:    baseURL,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// Adapter implements ports.Gateway over HTTPS form posts. Declines come back
// as unsuccessful responses; only transport failures and the two hard
// response codes surface as errors.
type Adapter struct {
	config         *Config
	httpClient     *http.Client
	logger         *zap.Logger
	circuitBreaker *CircuitBreaker
	backoff        resilience.BackoffStrategy
	metrics        *observability.Metrics
}

// NewAdapter creates a new Meridian gateway adapter
func NewAdapter(config *Config, logger *zap.Logger, metrics *observability.Metrics) *Adapter {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		logger:         logger,
		circuitBreaker: NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		backoff:        resilience.DefaultExponentialBackoff(),
		metrics:        metrics,
	}
}

// Authorize places a hold on the instrument without capturing funds
func (a *Adapter) Authorize(ctx context.Context, req *ports.GatewayRequest) (*ports.GatewayResponse, error) {
	return a.post(ctx, domain.OperationAuthorize, req)
}

// Capture settles a previously authorized payment
func (a *Adapter) Capture(ctx context.Context, req *ports.GatewayRequest) (*ports.GatewayResponse, error) {
	return a.post(ctx, domain.OperationCapture, req)
}

// Cancel voids an authorization or unsettled capture
func (a *Adapter) Cancel(ctx context.Context, req *ports.GatewayRequest) (*ports.GatewayResponse, error) {
	return a.post(ctx, domain.OperationCancel, req)
}

// Credit returns funds against a settled transaction
func (a *Adapter) Credit(ctx context.Context, req *ports.GatewayRequest) (*ports.GatewayResponse, error) {
	return a.post(ctx, domain.OperationCredit, req)
}

// Status queries the gateway-side state of a transaction
func (a *Adapter) Status(ctx context.Context, req *ports.GatewayRequest) (*ports.GatewayResponse, error) {
	return a.post(ctx, domain.OperationCheckStatus, req)
}

// AuthCapture authorizes and captures in a single round trip
func (a *Adapter) AuthCapture(ctx context.Context, req *ports.GatewayRequest) (*ports.GatewayResponse, error) {
	return a.post(ctx, domain.OperationAuthCapture, req)
}

func (a *Adapter) post(ctx context.Context, op domain.OperationType, req *ports.GatewayRequest) (*ports.GatewayResponse, error) {
	tranType := transactionType(op)
	if tranType == "" {
		return nil, fmt.Errorf("unsupported operation %q", op)
	}

	form := a.buildForm(tranType, req)
	body := form.Encode()

	a.logger.Info("Posting Meridian transaction",
		zap.String("operation", string(op)),
		zap.String("reference_id", req.ReferenceID),
		zap.Int64("amount_minor", req.AmountMinor),
	)

	start := time.Now()
	var response *ports.GatewayResponse
	err := a.circuitBreaker.Call(func() error {
		var lastErr error
		for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
			if attempt > 0 {
				delay := a.backoff.NextDelay(attempt - 1)
				a.logger.Info("Retrying Meridian request",
					zap.Int("attempt", attempt),
					zap.Duration("backoff_delay", delay),
				)
				select {
				case <-ctx.Done():
					return fmt.Errorf("retry cancelled: %w", ctx.Err())
				case <-time.After(delay):
				}
			}

			raw, err := a.doPost(ctx, body)
			if err != nil {
				lastErr = err
				if attempt < a.config.MaxRetries {
					a.logger.Warn("Meridian request failed, will retry",
						zap.Error(err),
						zap.Int("attempt", attempt),
					)
					continue
				}
				return fmt.Errorf("meridian request failed: %w", err)
			}

			parsed, err := a.parseResponse(raw)
			if err != nil {
				return err
			}
			response = parsed
			return nil
		}
		return fmt.Errorf("failed after %d retries: %w", a.config.MaxRetries, lastErr)
	})

	outcome := "success"
	if err != nil || (response != nil && !response.Successful) {
		outcome = "failure"
	}
	a.metrics.GatewayRequest(string(op), outcome, time.Since(start))

	if err != nil {
		if err == ErrCircuitOpen {
			a.logger.Warn("Circuit breaker is open, rejecting Meridian request",
				zap.String("circuit_state", a.circuitBreaker.State().String()),
			)
		}
		return nil, err
	}

	a.logger.Info("Meridian transaction complete",
		zap.String("operation", string(op)),
		zap.String("gateway_transaction_id", response.TransactionID),
		zap.String("response_code", response.ResponseCode),
		zap.Bool("successful", response.Successful),
	)
	return response, nil
}

// doPost executes one HTTPS round trip and returns the raw response body
func (a *Adapter) doPost(ctx context.Context, body string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("X-Merchant-Id", a.config.MerchantID)
	httpReq.Header.Set("X-Signature", a.sign(body))

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, raw)
	}
	return string(raw), nil
}

// buildForm maps the canonical request onto Meridian form fields
func (a *Adapter) buildForm(tranType string, req *ports.GatewayRequest) url.Values {
	form := url.Values{}
	form.Set("MERCHANT_ID", a.config.MerchantID)
	form.Set("TRAN_TYPE", tranType)

	set := func(key, value string) {
		if value != "" {
			form.Set(key, value)
		}
	}
	set("PAYMENT_TYPE", req.PaymentType)
	set("REFERENCE_ID", req.ReferenceID)
	set("CARD_TOKEN", req.CardToken)
	set("ACH_TOKEN", req.ACHToken)
	set("CC_EXP_YEAR", req.CardExpYear)
	set("CC_EXP_MONTH", req.CardExpMonth)
	set("ACH_ACCOUNT_NBR", req.ACHAccountNumber)
	set("ACH_ROUTING_NBR", req.ACHRoutingNumber)
	set("ACH_ACCOUNT_TYPE", req.ACHAccountType)
	set("NAME_ON_ACCOUNT", req.NameOnAccount)
	set("ADDRESS_1", req.AddressLine1)
	set("ADDRESS_2", req.AddressLine2)
	set("CITY", req.City)
	set("PROVINCE", req.Province)
	set("POSTAL_CODE", req.PostalCode)
	set("COUNTRY", req.CountryCode)
	set("EMAIL", req.EmailAddress)
	set("CURRENCY", req.Currency)
	set("DESCRIPTION", req.ChargeDescription)
	set("TRANSACTION_ID", req.TransactionID)
	set("ORIG_TRANSACTION_ID", req.ReferenceTransactionID)
	if req.AmountMinor > 0 {
		form.Set("AMOUNT", strconv.FormatInt(req.AmountMinor, 10))
	}
	return form
}

// sign computes the HMAC-SHA256 request signature over the form body
func (a *Adapter) sign(body string) string {
	mac := hmac.New(sha256.New, []byte(a.config.APIKey))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

// parseResponse decodes the urlencoded response body. The two hard response
// codes abort with a DomainError; every other non-approval is a decline.
func (a *Adapter) parseResponse(raw string) (*ports.GatewayResponse, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	code := values.Get("RESP_CODE")
	if err := hardError(code); err != nil {
		return nil, err
	}

	resp := &ports.GatewayResponse{
		RawResponse:       raw,
		TransactionID:     values.Get("TRANSACTION_ID"),
		TransactionStatus: values.Get("TRAN_STATUS"),
		ResponseCode:      code,
		Successful:        isApproved(code),
		ErrorMessage:      values.Get("RESP_TEXT"),
	}
	if !resp.Successful {
		reason := declineReason(code)
		resp.DeclineReason = &reason
	}
	if state := values.Get("PAYMENT_STATE"); state != "" {
		resp.ReportedPaymentState = domain.PaymentStatus(state)
	}
	return resp, nil
}
