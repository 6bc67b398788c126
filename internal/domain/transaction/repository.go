package transaction

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for transaction persistence
type Repository interface {
	// Create creates a new transaction. Implementations must enforce the
	// idempotency key uniqueness constraint and report violations as
	// errors.ErrDuplicateIdempotencyKey.
	Create(ctx context.Context, txn *Transaction) error

	// GetByID retrieves a transaction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// GetByIdempotencyKey retrieves a transaction by idempotency key
	GetByIdempotencyKey(ctx context.Context, key string) (*Transaction, error)

	// Update updates an existing transaction
	Update(ctx context.Context, txn *Transaction) error

	// Lock retrieves a transaction by ID with a row lock that is held until
	// the surrounding database transaction ends. It serializes concurrent
	// refund settlement against the same transaction.
	Lock(ctx context.Context, id uuid.UUID) (*Transaction, error)
}
