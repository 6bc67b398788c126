package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/google/uuid"
)

// MockProcessor simulates an acquirer. Charges succeed ~90% of the time and
// refunds ~95%, matching the demo backend this stands in for.
type MockProcessor struct {
	name              string
	chargeFailureRate float64 // 0.0 to 1.0
	refundFailureRate float64 // 0.0 to 1.0
	timeoutRate       float64 // 0.0 to 1.0
	latency           time.Duration
}

type MockProcessorOption func(*MockProcessor)

func WithChargeFailureRate(rate float64) MockProcessorOption {
	return func(p *MockProcessor) { p.chargeFailureRate = rate }
}

func WithRefundFailureRate(rate float64) MockProcessorOption {
	return func(p *MockProcessor) { p.refundFailureRate = rate }
}

func WithTimeoutRate(rate float64) MockProcessorOption {
	return func(p *MockProcessor) { p.timeoutRate = rate }
}

func WithLatency(d time.Duration) MockProcessorOption {
	return func(p *MockProcessor) { p.latency = d }
}

func NewMockProcessor(name string, opts ...MockProcessorOption) *MockProcessor {
	p := &MockProcessor{
		name:              name,
		chargeFailureRate: 0.1,
		refundFailureRate: 0.05,
		latency:           100 * time.Millisecond,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *MockProcessor) Name() string { return p.name }

func (p *MockProcessor) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	// Simulate latency
	select {
	case <-time.After(p.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Simulate timeout
	if rand.Float64() < p.timeoutRate {
		return nil, domainErrors.ErrProcessorTimeout
	}

	// Simulate decline
	if rand.Float64() < p.chargeFailureRate {
		return &Result{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: simulated decline for transaction %s", p.name, req.TransactionID),
		}, domainErrors.ErrProcessorRejected
	}

	return &Result{
		Reference: fmt.Sprintf("%s_txn_%s", p.name, uuid.New().String()[:8]),
		Status:    "success",
	}, nil
}

func (p *MockProcessor) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	select {
	case <-time.After(p.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < p.timeoutRate {
		return nil, domainErrors.ErrProcessorTimeout
	}

	if rand.Float64() < p.refundFailureRate {
		return &Result{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: simulated refund decline for refund %s", p.name, req.RefundID),
		}, domainErrors.ErrProcessorRejected
	}

	return &Result{
		Reference: fmt.Sprintf("%s_refund_%s", p.name, uuid.New().String()[:8]),
		Status:    "success",
	}, nil
}
