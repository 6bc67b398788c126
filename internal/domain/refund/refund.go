package refund

import (
	"time"

	"github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the refund status
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Refund represents a single refund issued against a transaction.
// A refund is created PENDING and moves exactly once to a terminal state.
type Refund struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AmountCents   int64
	Currency      string
	Reason        string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New creates a new refund in PENDING status.
func New(transactionID uuid.UUID, amountCents int64, currency, reason string) (*Refund, error) {
	if amountCents <= 0 {
		return nil, errors.NewValidationError("amount", "must be greater than 0")
	}
	if transactionID == uuid.Nil {
		return nil, errors.NewValidationError("transaction_id", "cannot be empty")
	}

	now := time.Now()
	return &Refund{
		ID:            uuid.New(),
		TransactionID: transactionID,
		AmountCents:   amountCents,
		Currency:      currency,
		Reason:        reason,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// MarkCompleted transitions the refund to COMPLETED.
func (r *Refund) MarkCompleted() error {
	return r.transitionTo(StatusCompleted)
}

// MarkFailed transitions the refund to FAILED.
func (r *Refund) MarkFailed() error {
	return r.transitionTo(StatusFailed)
}

// IsTerminal checks if the refund reached a terminal state.
func (r *Refund) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

func (r *Refund) transitionTo(newStatus Status) error {
	if r.Status != StatusPending {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition refund from "+string(r.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}
	r.Status = newStatus
	r.UpdatedAt = time.Now()
	return nil
}
