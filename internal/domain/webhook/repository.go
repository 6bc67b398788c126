package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for webhook event persistence
type Repository interface {
	// Create persists a new webhook event
	Create(ctx context.Context, e *Event) error

	// GetByID retrieves a webhook event by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)

	// Update persists the event's delivery state
	Update(ctx context.Context, e *Event) error

	// GetDue returns pending events whose retry time (or creation, for the
	// first attempt) is at or before now, oldest first, up to limit.
	GetDue(ctx context.Context, now time.Time, limit int) ([]*Event, error)

	// NextDue returns the earliest future retry time among pending events,
	// or nil when nothing is scheduled.
	NextDue(ctx context.Context, now time.Time) (*time.Time, error)

	// ListBySubject lists events for a subject, oldest first.
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*Event, error)
}
