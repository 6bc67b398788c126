package controller

import (
	"net/http"

	"github.com/cassiomorais/gateway/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RefundController handles refund-related HTTP requests.
type RefundController struct {
	refundService *service.RefundService
}

// NewRefundController creates a new RefundController.
func NewRefundController(refundService *service.RefundService) *RefundController {
	return &RefundController{refundService: refundService}
}

// CreateRefund handles POST /api/v1/payments/{id}/refunds
func (h *RefundController) CreateRefund(w http.ResponseWriter, r *http.Request) {
	transactionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid transaction id", Code: "invalid_id"})
		return
	}

	var req CreateRefundRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ref, err := h.refundService.SubmitRefund(r.Context(), service.SubmitRefundRequest{
		TransactionID: transactionID,
		Amount:        floatToCents(req.Amount),
		Reason:        req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromRefund(ref))
}

// ListRefunds handles GET /api/v1/payments/{id}/refunds
func (h *RefundController) ListRefunds(w http.ResponseWriter, r *http.Request) {
	transactionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid transaction id", Code: "invalid_id"})
		return
	}

	refunds, err := h.refundService.ListRefunds(r.Context(), transactionID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*RefundResponse, 0, len(refunds))
	for _, ref := range refunds {
		resp = append(resp, FromRefund(ref))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRefund handles GET /api/v1/refunds/{id}
func (h *RefundController) GetRefund(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid refund id", Code: "invalid_id"})
		return
	}

	ref, err := h.refundService.GetRefund(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromRefund(ref))
}
