package controller

import (
	"net/http"

	"github.com/cassiomorais/gateway/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PaymentController handles payment-related HTTP requests.
type PaymentController struct {
	paymentService *service.PaymentService
	webhookService *service.WebhookService
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(
	paymentService *service.PaymentService,
	webhookService *service.WebhookService,
) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		webhookService: webhookService,
	}
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentController) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	// Idempotency-Key header wins over the body field
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = req.IdempotencyKey
	}

	resp, err := h.paymentService.SubmitPayment(r.Context(), service.SubmitPaymentRequest{
		MerchantID:     req.MerchantID,
		Amount:         floatToCents(req.Amount),
		Currency:       req.Currency,
		IdempotencyKey: idempotencyKey,
		CustomerID:     req.CustomerID,
		PaymentMethod:  req.PaymentMethod,
		WebhookURL:     req.WebhookURL,
		Metadata:       req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// A replayed key returns the original transaction with 409
	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusConflict
	}
	writeJSON(w, status, FromTransaction(resp.Transaction, resp.Duplicate))
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *PaymentController) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid transaction id", Code: "invalid_id"})
		return
	}

	txn, err := h.paymentService.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromTransaction(txn, false))
}

// ListPaymentEvents handles GET /api/v1/payments/{id}/events
func (h *PaymentController) ListPaymentEvents(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid transaction id", Code: "invalid_id"})
		return
	}

	if _, err := h.paymentService.GetTransaction(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	events, err := h.webhookService.ListEvents(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*WebhookEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, FromEvent(e))
	}
	writeJSON(w, http.StatusOK, resp)
}
