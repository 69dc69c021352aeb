package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/smartpay/payment-service-go/internal/payment"
)

// SettlementService is the slice of payment.Service the handlers need.
type SettlementService interface {
	Settle(ctx context.Context, userID string) (*payment.SettlementResult, error)
	TransactionByReference(ctx context.Context, reference string) (*payment.Transaction, error)
}

type Handler struct {
	svc SettlementService
}

func NewHandler(svc SettlementService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "payment-service",
	})
}

type processRequest struct {
	UserID string `json:"userId"`
}

type processResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	NewBalance    string `json:"newBalance"`
	Timestamp     string `json:"timestamp"`
	Receipt       string `json:"receipt"`
}

// ProcessPayment settles the caller's active cart against their wallet.
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := h.svc.Settle(ctx, req.UserID)
	if err != nil {
		writeSettlementError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		TransactionID: result.Reference,
		Status:        "success",
		Amount:        result.TotalAmount.StringFixed(2),
		NewBalance:    result.NewBalance.StringFixed(2),
		Timestamp:     result.Timestamp.Format(time.RFC3339),
		Receipt:       "Payment receipt generated",
	})
}

// GetTransaction returns a settled transaction by its ledger reference.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		writeError(w, http.StatusBadRequest, "missing reference")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	t, err := h.svc.TransactionByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, payment.ErrTransactionNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load transaction")
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// writeSettlementError maps the settlement error taxonomy onto status codes:
// business-rule rejections become client errors, storage and timeout faults
// become server errors the caller may retry.
func writeSettlementError(w http.ResponseWriter, err error) {
	var funds *payment.InsufficientFundsError
	var stock *payment.InsufficientStockError

	switch {
	case errors.Is(err, payment.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &funds):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.As(err, &stock):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "settlement timed out, retry later")
	default:
		writeError(w, http.StatusInternalServerError, "payment processing failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "status": "failed"})
}
