package testutil

import (
	"time"

	"github.com/cassiomorais/gateway/internal/domain/refund"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/domain/webhook"
	"github.com/google/uuid"
)

func NewTestTransaction(amountCents int64, currency string) *transaction.Transaction {
	now := time.Now()
	return &transaction.Transaction{
		ID:             uuid.New(),
		MerchantID:     "merchant-1",
		Amount:         transaction.Amount{ValueCents: amountCents, Currency: currency},
		IdempotencyKey: uuid.New().String(),
		PaymentMethod:  "credit_card",
		Metadata:       make(map[string]any),
		Status:         transaction.StatusProcessing,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func NewSettledTransaction(amountCents int64, currency string) *transaction.Transaction {
	txn := NewTestTransaction(amountCents, currency)
	txn.Status = transaction.StatusSuccess
	return txn
}

func NewCompletedRefund(transactionID uuid.UUID, amountCents int64, currency string) *refund.Refund {
	now := time.Now()
	return &refund.Refund{
		ID:            uuid.New(),
		TransactionID: transactionID,
		AmountCents:   amountCents,
		Currency:      currency,
		Status:        refund.StatusCompleted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func NewPendingEvent(targetURL string, maxAttempts int) *webhook.Event {
	return &webhook.Event{
		ID:          uuid.New(),
		SubjectID:   uuid.New(),
		SubjectType: "transaction",
		EventType:   "payment.completed",
		Payload:     []byte(`{"event_type":"payment.completed"}`),
		TargetURL:   targetURL,
		Status:      webhook.StatusPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   time.Now(),
	}
}

func StringPtr(s string) *string {
	return &s
}
