package controller

import (
	"math"
	"time"

	"github.com/cassiomorais/gateway/internal/domain/refund"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/domain/webhook"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (float64 for money, string for IDs,
// validation tags). Controllers convert these to service layer DTOs before
// calling business logic.

// CreatePaymentRequest holds the input for submitting a payment.
type CreatePaymentRequest struct {
	MerchantID     string         `json:"merchant_id" validate:"required"`
	Amount         float64        `json:"amount" validate:"required,gt=0"`
	Currency       string         `json:"currency" validate:"required,len=3"`
	IdempotencyKey string         `json:"idempotency_key" validate:"required"`
	CustomerID     *string        `json:"customer_id,omitempty"`
	PaymentMethod  string         `json:"payment_method" validate:"required"`
	WebhookURL     string         `json:"webhook_url,omitempty" validate:"omitempty,url,startswith=http"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// CreateRefundRequest holds the input for submitting a refund.
type CreateRefundRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Reason string  `json:"reason,omitempty"`
}

// --- Response DTOs ---

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID             string         `json:"id"`
	MerchantID     string         `json:"merchant_id"`
	Amount         float64        `json:"amount"`
	Currency       string         `json:"currency"`
	IdempotencyKey string         `json:"idempotency_key"`
	CustomerID     *string        `json:"customer_id,omitempty"`
	PaymentMethod  string         `json:"payment_method"`
	WebhookURL     string         `json:"webhook_url,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Status         string         `json:"status"`
	IsDuplicate    bool           `json:"is_duplicate"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// RefundResponse represents a refund in API responses.
type RefundResponse struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Reason        string    `json:"reason,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WebhookEventResponse represents a webhook delivery record in API responses.
type WebhookEventResponse struct {
	ID          string     `json:"id"`
	SubjectID   string     `json:"subject_id"`
	SubjectType string     `json:"subject_type"`
	EventType   string     `json:"event_type"`
	TargetURL   string     `json:"target_url"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromTransaction converts a domain transaction to API response.
func FromTransaction(t *transaction.Transaction, isDuplicate bool) *TransactionResponse {
	return &TransactionResponse{
		ID:             t.ID.String(),
		MerchantID:     t.MerchantID,
		Amount:         centsToFloat(t.Amount.ValueCents),
		Currency:       t.Amount.Currency,
		IdempotencyKey: t.IdempotencyKey,
		CustomerID:     t.CustomerID,
		PaymentMethod:  t.PaymentMethod,
		WebhookURL:     t.WebhookURL,
		Metadata:       t.Metadata,
		Status:         string(t.Status),
		IsDuplicate:    isDuplicate,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// FromRefund converts a domain refund to API response.
func FromRefund(r *refund.Refund) *RefundResponse {
	return &RefundResponse{
		ID:            r.ID.String(),
		TransactionID: r.TransactionID.String(),
		Amount:        centsToFloat(r.AmountCents),
		Currency:      r.Currency,
		Reason:        r.Reason,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// FromEvent converts a webhook event to API response. The payload itself is
// not exposed.
func FromEvent(e *webhook.Event) *WebhookEventResponse {
	return &WebhookEventResponse{
		ID:          e.ID.String(),
		SubjectID:   e.SubjectID.String(),
		SubjectType: e.SubjectType,
		EventType:   e.EventType,
		TargetURL:   e.TargetURL,
		Status:      string(e.Status),
		Attempts:    e.Attempts,
		MaxAttempts: e.MaxAttempts,
		NextRetryAt: e.NextRetryAt,
		DeliveredAt: e.DeliveredAt,
		CreatedAt:   e.CreatedAt,
	}
}

// floatToCents converts a float dollar amount to cents.
func floatToCents(f float64) int64 {
	return int64(math.Round(f * 100))
}

// centsToFloat converts cents to a float dollar amount.
func centsToFloat(cents int64) float64 {
	return float64(cents) / 100.0
}
