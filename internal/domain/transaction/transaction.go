package transaction

import (
	"fmt"
	"time"

	"github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the transaction status in the state machine
type Status string

const (
	StatusProcessing    Status = "PROCESSING"
	StatusSuccess       Status = "SUCCESS"
	StatusFailed        Status = "FAILED"
	StatusPartialRefund Status = "PARTIAL_REFUND"
	StatusRefunded      Status = "REFUNDED"
)

// Amount represents a monetary amount in the smallest currency unit (e.g. cents).
type Amount struct {
	ValueCents int64
	Currency   string
}

// String returns a human-readable representation of the amount.
func (a Amount) String() string {
	whole := a.ValueCents / 100
	frac := a.ValueCents % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d %s", whole, frac, a.Currency)
}

// Validate checks that the amount is valid.
func (a Amount) Validate() error {
	return validateAmount(a)
}

// Transaction represents a single charge attempt settled through the
// processor gateway. One transaction exists per idempotency key.
type Transaction struct {
	ID             uuid.UUID
	MerchantID     string
	Amount         Amount
	IdempotencyKey string
	CustomerID     *string
	PaymentMethod  string
	WebhookURL     string
	Metadata       map[string]any
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// New creates a new transaction in PROCESSING status.
func New(
	merchantID string,
	amount Amount,
	idempotencyKey string,
	customerID *string,
	paymentMethod string,
	webhookURL string,
	metadata map[string]any,
) (*Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if merchantID == "" {
		return nil, errors.NewValidationError("merchant_id", "cannot be empty")
	}
	if idempotencyKey == "" {
		return nil, errors.NewValidationError("idempotency_key", "cannot be empty")
	}
	if paymentMethod == "" {
		return nil, errors.NewValidationError("payment_method", "cannot be empty")
	}

	if metadata == nil {
		metadata = make(map[string]any)
	}

	now := time.Now()
	return &Transaction{
		ID:             uuid.New(),
		MerchantID:     merchantID,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
		CustomerID:     customerID,
		PaymentMethod:  paymentMethod,
		WebhookURL:     webhookURL,
		Metadata:       metadata,
		Status:         StatusProcessing,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CanTransitionTo checks if the transaction can transition to the given status
func (t *Transaction) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusProcessing: {
			StatusSuccess,
			StatusFailed,
		},
		StatusSuccess: {
			StatusPartialRefund,
			StatusRefunded,
		},
		StatusPartialRefund: {
			StatusPartialRefund, // further partial refunds
			StatusRefunded,
		},
		StatusFailed:   {}, // terminal
		StatusRefunded: {}, // terminal
	}

	allowed, exists := transitions[t.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo transitions the transaction to a new status
func (t *Transaction) TransitionTo(newStatus Status) error {
	if !t.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(t.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}

	t.Status = newStatus
	t.UpdatedAt = time.Now()
	return nil
}

// MarkSuccess records a successful settlement outcome.
func (t *Transaction) MarkSuccess() error {
	return t.TransitionTo(StatusSuccess)
}

// MarkFailed records a failed settlement outcome.
func (t *Transaction) MarkFailed() error {
	return t.TransitionTo(StatusFailed)
}

// ApplyRefundTotal transitions the transaction based on the accumulated
// completed refund total. Fully refunded only on exact equality.
func (t *Transaction) ApplyRefundTotal(totalRefundedCents int64) error {
	if totalRefundedCents == t.Amount.ValueCents {
		return t.TransitionTo(StatusRefunded)
	}
	return t.TransitionTo(StatusPartialRefund)
}

// IsRefundable checks if a refund may be issued against the transaction.
func (t *Transaction) IsRefundable() bool {
	return t.Status == StatusSuccess || t.Status == StatusPartialRefund
}

// IsTerminal checks if the transaction is in a terminal state for the charge itself
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusFailed || t.Status == StatusRefunded
}

func validateAmount(amount Amount) error {
	if amount.ValueCents <= 0 {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	if amount.Currency == "" {
		return errors.NewValidationError("currency", "cannot be empty")
	}
	// Simple currency validation (3-letter code)
	if len(amount.Currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	return nil
}
