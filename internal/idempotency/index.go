// Package idempotency provides the fast-path index from idempotency key to
// transaction id. The index is a TTL cache: the ledger's unique constraint
// on the idempotency key remains the source of truth, and an index miss or
// eviction never permits a double charge.
package idempotency

import (
	"context"

	"github.com/google/uuid"
)

// Index maps idempotency keys to transaction ids.
type Index interface {
	// Get returns the transaction id recorded for the key, with ok=false
	// when the key is unknown or expired.
	Get(ctx context.Context, key string) (id uuid.UUID, ok bool, err error)

	// Set records the mapping with the index's TTL.
	Set(ctx context.Context, key string, id uuid.UUID) error
}
