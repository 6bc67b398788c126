package refund

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for refund persistence
type Repository interface {
	// Create creates a new refund
	Create(ctx context.Context, r *Refund) error

	// GetByID retrieves a refund by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Refund, error)

	// Update updates an existing refund
	Update(ctx context.Context, r *Refund) error

	// ListByTransaction lists all refunds for a transaction,
	// oldest first.
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*Refund, error)

	// SumCompletedByTransaction returns the total amount in cents of
	// COMPLETED refunds for a transaction.
	SumCompletedByTransaction(ctx context.Context, transactionID uuid.UUID) (int64, error)
}
