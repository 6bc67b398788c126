package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cassiomorais/gateway/internal/domain/refund"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/domain/webhook"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types are constant per subject kind. The payload's status field
// carries the outcome; subscribers decide how to react to it.
const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypeRefundCompleted  = "refund.completed"
)

// EventPublisher nudges the dispatcher that a new webhook event is ready.
// Publishing is best effort; the durable event row is the source of truth.
type EventPublisher interface {
	PublishWebhookEvent(ctx context.Context, eventID string) error
}

// WebhookService persists outbound webhook events for asynchronous delivery.
type WebhookService struct {
	eventRepo   webhook.Repository
	publisher   EventPublisher
	maxAttempts int
	logger      zerolog.Logger
}

// NewWebhookService creates a new WebhookService. publisher may be nil, in
// which case events are picked up by the dispatcher's periodic sweep only.
func NewWebhookService(
	eventRepo webhook.Repository,
	publisher EventPublisher,
	maxAttempts int,
	logger zerolog.Logger,
) *WebhookService {
	return &WebhookService{
		eventRepo:   eventRepo,
		publisher:   publisher,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

type transactionEventPayload struct {
	EventType     string  `json:"event_type"`
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

type refundEventPayload struct {
	EventType     string  `json:"event_type"`
	RefundID      string  `json:"refund_id"`
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

// EnqueueTransactionEvent records a pending delivery for the transaction's
// settlement. Transactions without a webhook URL are skipped.
func (s *WebhookService) EnqueueTransactionEvent(ctx context.Context, txn *transaction.Transaction) error {
	if txn.WebhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(transactionEventPayload{
		EventType:     EventTypePaymentCompleted,
		TransactionID: txn.ID.String(),
		Status:        string(txn.Status),
		Amount:        float64(txn.Amount.ValueCents) / 100,
		Currency:      txn.Amount.Currency,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	event, err := webhook.NewEvent(txn.ID, "transaction", EventTypePaymentCompleted, txn.WebhookURL, payload, s.maxAttempts)
	if err != nil {
		return err
	}
	return s.enqueue(ctx, event)
}

// EnqueueRefundEvent records a pending delivery for a refund outcome. The
// parent transaction supplies the webhook URL.
func (s *WebhookService) EnqueueRefundEvent(ctx context.Context, r *refund.Refund, txn *transaction.Transaction) error {
	if txn.WebhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(refundEventPayload{
		EventType:     EventTypeRefundCompleted,
		RefundID:      r.ID.String(),
		TransactionID: txn.ID.String(),
		Status:        string(r.Status),
		Amount:        float64(r.AmountCents) / 100,
		Currency:      r.Currency,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	event, err := webhook.NewEvent(r.ID, "refund", EventTypeRefundCompleted, txn.WebhookURL, payload, s.maxAttempts)
	if err != nil {
		return err
	}
	return s.enqueue(ctx, event)
}

// ListEvents returns all webhook events recorded for a subject.
func (s *WebhookService) ListEvents(ctx context.Context, subjectID uuid.UUID) ([]*webhook.Event, error) {
	return s.eventRepo.ListBySubject(ctx, subjectID)
}

func (s *WebhookService) enqueue(ctx context.Context, event *webhook.Event) error {
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("persist webhook event: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishWebhookEvent(ctx, event.ID.String()); err != nil {
			// The dispatcher sweep will find the row anyway.
			s.logger.Warn().Err(err).
				Str("event_id", event.ID.String()).
				Msg("failed to publish webhook event nudge")
		}
	}
	return nil
}
