// Package gateway defines the boundary to the external payment processor.
// The core calls it at most once per settlement attempt and never retries
// a declined or timed-out call; the outcome is final for that attempt.
package gateway

import (
	"context"
)

// Result holds the outcome of a processor call.
type Result struct {
	Reference    string // processor-side reference for the settlement
	Status       string // "success" or "failed"
	ErrorMessage string
}

// Processor is the interface external payment processors implement.
type Processor interface {
	// Name returns the processor name.
	Name() string
	// Charge attempts to settle a charge.
	Charge(ctx context.Context, req ChargeRequest) (*Result, error)
	// Refund attempts to settle a refund.
	Refund(ctx context.Context, req RefundRequest) (*Result, error)
}

// ChargeRequest contains the data needed to charge a transaction.
type ChargeRequest struct {
	TransactionID string
	MerchantID    string
	AmountCents   int64
	Currency      string
	PaymentMethod string
	Metadata      map[string]any
}

// RefundRequest contains the data needed to refund a transaction.
type RefundRequest struct {
	RefundID      string
	TransactionID string
	AmountCents   int64
	Currency      string
}
