// Package cron exposes the HTTP endpoints a scheduler calls to trigger the
// engine's unattended work.
package cron

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meridianpay/payment-engine/internal/refund"
	"github.com/meridianpay/payment-engine/internal/schedule"
)

// BatchHandler handles cron job endpoints for unattended charges and refunds
type BatchHandler struct {
	scheduleService *schedule.Service
	electronic      refund.Refunder
	manual          refund.Refunder
	logger          *zap.Logger
	cronSecret      string // Secret token for authenticating cron requests
}

// NewBatchHandler creates a new batch cron handler
func NewBatchHandler(
	scheduleService *schedule.Service,
	electronic refund.Refunder,
	manual refund.Refunder,
	logger *zap.Logger,
	cronSecret string,
) *BatchHandler {
	return &BatchHandler{
		scheduleService: scheduleService,
		electronic:      electronic,
		manual:          manual,
		logger:          logger,
		cronSecret:      cronSecret,
	}
}

// ProcessBatchRequest represents the request body for a batch run
type ProcessBatchRequest struct {
	AsOfDate  *string `json:"as_of_date"` // Optional: ISO date string, defaults to today
	BatchSize *int    `json:"batch_size"` // Optional: defaults to 100
}

// ProcessBatchResponse represents the response from a batch run
type ProcessBatchResponse struct {
	Success       bool     `json:"success"`
	Processed     int      `json:"processed"`
	SuccessCount  int      `json:"success_count"`
	DeferredCount int      `json:"deferred_count"`
	FailureCount  int      `json:"failure_count"`
	Errors        []string `json:"errors,omitempty"`
	ProcessedAt   string   `json:"processed_at"`
}

// ProcessBatch handles the POST /cron/process-batch endpoint. It submits
// every due scheduled payment through the guarded batch runner.
func (h *BatchHandler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Batch cron job triggered",
		zap.String("method", r.Method),
		zap.String("remote_addr", r.RemoteAddr),
	)

	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}
	if !h.authenticateRequest(r) {
		h.logger.Warn("Unauthorized cron request",
			zap.String("remote_addr", r.RemoteAddr),
		)
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProcessBatchRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("Failed to parse request body", zap.Error(err))
			// Continue with defaults if parsing fails
		}
	}

	asOfDate := time.Now()
	if req.AsOfDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.AsOfDate)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid as_of_date format: %v", err))
			return
		}
		asOfDate = parsed
	}

	batchSize := 100
	if req.BatchSize != nil {
		if *req.BatchSize < 1 || *req.BatchSize > 1000 {
			h.respondError(w, http.StatusBadRequest, "batch_size must be between 1 and 1000")
			return
		}
		batchSize = *req.BatchSize
	}

	processed, submitted, deferred, failed, errs := h.scheduleService.ProcessDue(r.Context(), asOfDate, batchSize)

	resp := ProcessBatchResponse{
		Success:       failed == 0,
		Processed:     processed,
		SuccessCount:  submitted,
		DeferredCount: deferred,
		FailureCount:  failed,
		ProcessedAt:   time.Now().Format(time.RFC3339),
	}
	if len(errs) > 0 {
		resp.Errors = make([]string, len(errs))
		for i, err := range errs {
			resp.Errors[i] = err.Error()
		}
	}

	h.logger.Info("Batch processing completed",
		zap.Int("processed", processed),
		zap.Int("submitted", submitted),
		zap.Int("deferred", deferred),
		zap.Int("failed", failed),
	)

	w.Header().Set("Content-Type", "application/json")
	if resp.Success {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusPartialContent) // 206 indicates partial success
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// RefundRequest represents the request body for a refund
type RefundRequest struct {
	OriginalPaymentID string `json:"original_payment_id"`
	Amount            string `json:"amount"`
	ExistingRefundID  string `json:"existing_refund_id,omitempty"`
	RequestedBy       string `json:"requested_by"`
	Manual            bool   `json:"manual,omitempty"`
}

// RefundResponse represents the refund outcome
type RefundResponse struct {
	Success         bool   `json:"success"`
	Status          string `json:"status,omitempty"`
	RefundPaymentID string `json:"refund_payment_id,omitempty"`
	TransactionID   string `json:"transaction_id,omitempty"`
	Error           string `json:"error,omitempty"`
}

// ProcessRefund handles the POST /cron/process-refund endpoint
func (h *BatchHandler) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}
	if !h.authenticateRequest(r) {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	refunder := h.electronic
	if req.Manual {
		refunder = h.manual
	}

	result, err := refunder.Refund(r.Context(), refund.Request{
		OriginalPaymentID: req.OriginalPaymentID,
		Amount:            amount,
		ExistingRefundID:  req.ExistingRefundID,
		RequestedBy:       req.RequestedBy,
	})
	if err != nil {
		h.logger.Warn("Refund rejected",
			zap.String("original_payment_id", req.OriginalPaymentID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := RefundResponse{
		Success:         result.IsSuccess,
		Status:          string(result.Status),
		RefundPaymentID: result.RefundPaymentID,
		TransactionID:   result.TransactionID,
		Error:           result.ErrorMessage,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// authenticateRequest verifies the cron request is authorized
func (h *BatchHandler) authenticateRequest(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}

	// Check X-Cron-Secret header
	if r.Header.Get("X-Cron-Secret") == h.cronSecret {
		return true
	}

	// Check Authorization header (Bearer token)
	if r.Header.Get("Authorization") == "Bearer "+h.cronSecret {
		return true
	}

	return false
}

// respondError sends an error response
func (h *BatchHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := map[string]interface{}{
		"success": false,
		"error":   message,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// HealthCheck handles GET /cron/health for monitoring
func (h *BatchHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}
	json.NewEncoder(w).Encode(resp)
}
