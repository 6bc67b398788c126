package webhook

import (
	"math/rand"
	"time"

	"github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the delivery status of a webhook event
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDelivered Status = "DELIVERED"
	StatusFailed    Status = "FAILED"
)

// RetryPolicy controls how failed deliveries are rescheduled.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	JitterFactor float64 // fraction of the delay added as random jitter, 0..1
}

// DefaultRetryPolicy returns the retry policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 30 * time.Second,
		MaxDelay:     30 * time.Minute,
		JitterFactor: 0.2,
	}
}

// Event represents one durable outbound delivery obligation to an external
// callback target. It is owned and mutated exclusively by the dispatcher
// once enqueued.
type Event struct {
	ID          uuid.UUID
	SubjectID   uuid.UUID
	SubjectType string // "transaction" or "refund"
	EventType   string
	Payload     []byte
	TargetURL   string
	Status      Status
	Attempts    int
	MaxAttempts int
	NextRetryAt *time.Time
	DeliveredAt *time.Time
	CreatedAt   time.Time
}

// NewEvent creates a pending webhook event for the given subject.
func NewEvent(subjectID uuid.UUID, subjectType, eventType, targetURL string, payload []byte, maxAttempts int) (*Event, error) {
	if targetURL == "" {
		return nil, errors.NewValidationError("target_url", "cannot be empty")
	}
	if eventType == "" {
		return nil, errors.NewValidationError("event_type", "cannot be empty")
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultRetryPolicy().MaxAttempts
	}

	return &Event{
		ID:          uuid.New(),
		SubjectID:   subjectID,
		SubjectType: subjectType,
		EventType:   eventType,
		Payload:     payload,
		TargetURL:   targetURL,
		Status:      StatusPending,
		Attempts:    0,
		MaxAttempts: maxAttempts,
		CreatedAt:   time.Now(),
	}, nil
}

// Due reports whether the event is eligible for a delivery attempt at now.
func (e *Event) Due(now time.Time) bool {
	if e.Status != StatusPending {
		return false
	}
	if e.NextRetryAt == nil {
		return true // first attempt
	}
	return !e.NextRetryAt.After(now)
}

// MarkDelivered records a successful delivery.
func (e *Event) MarkDelivered(now time.Time) error {
	if e.Status != StatusPending {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot deliver event in status "+string(e.Status),
			errors.ErrInvalidStateTransition,
		)
	}
	e.Status = StatusDelivered
	e.Attempts++
	e.DeliveredAt = &now
	e.NextRetryAt = nil
	return nil
}

// RecordFailure records a failed delivery attempt. While the retry budget
// lasts the event stays PENDING with a future NextRetryAt; once exhausted it
// becomes FAILED permanently.
func (e *Event) RecordFailure(now time.Time, policy RetryPolicy) error {
	if e.Status != StatusPending {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot record failure for event in status "+string(e.Status),
			errors.ErrInvalidStateTransition,
		)
	}

	e.Attempts++
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
		e.NextRetryAt = nil
		return nil
	}

	next := now.Add(backoffDelay(e.Attempts, policy))
	e.NextRetryAt = &next
	return nil
}

// backoffDelay computes the exponential backoff delay for the given attempt
// count (1-based), capped at MaxDelay, with random jitter added on top.
func backoffDelay(attempts int, policy RetryPolicy) time.Duration {
	delay := policy.InitialDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= policy.MaxDelay {
			delay = policy.MaxDelay
			break
		}
	}

	if policy.JitterFactor > 0 {
		jitter := time.Duration(rand.Float64() * policy.JitterFactor * float64(delay))
		delay += jitter
	}
	return delay
}
