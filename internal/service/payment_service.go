package service

import (
	"context"
	"errors"
	"time"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/gateway"
	"github.com/cassiomorais/gateway/internal/idempotency"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentService handles payment submission and lookup.
type PaymentService struct {
	txnRepo           transaction.Repository
	index             idempotency.Index
	gatewayFactory    *gateway.Factory
	webhooks          *WebhookService
	metrics           *observability.Metrics
	logger            zerolog.Logger
	processorName     string
	processingTimeout time.Duration
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	txnRepo transaction.Repository,
	index idempotency.Index,
	gatewayFactory *gateway.Factory,
	webhooks *WebhookService,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	processorName string,
	processingTimeout time.Duration,
) *PaymentService {
	return &PaymentService{
		txnRepo:           txnRepo,
		index:             index,
		gatewayFactory:    gatewayFactory,
		webhooks:          webhooks,
		metrics:           metrics,
		logger:            logger,
		processorName:     processorName,
		processingTimeout: processingTimeout,
	}
}

// SubmitPaymentRequest holds the input for submitting a payment.
type SubmitPaymentRequest struct {
	MerchantID     string
	Amount         int64 // in cents
	Currency       string
	IdempotencyKey string
	CustomerID     *string
	PaymentMethod  string
	WebhookURL     string
	Metadata       map[string]any
}

// SubmitPaymentResponse holds the result of submitting a payment.
type SubmitPaymentResponse struct {
	Transaction *transaction.Transaction
	Duplicate   bool
}

// SubmitPayment creates and settles a transaction for the given request.
// Resubmissions with an idempotency key already seen return the original
// transaction with Duplicate set; at most one transaction ever exists per
// key, guaranteed by the database unique constraint. The index lookup and
// the key backfill are accelerations only and their failures are not fatal.
func (s *PaymentService) SubmitPayment(ctx context.Context, req SubmitPaymentRequest) (*SubmitPaymentResponse, error) {
	// 1. Fast path: idempotency index
	if id, ok, err := s.index.Get(ctx, req.IdempotencyKey); err != nil {
		s.logger.Warn().Err(err).Msg("idempotency index lookup failed")
	} else if ok {
		existing, err := s.txnRepo.GetByID(ctx, id)
		switch {
		case err == nil:
			s.metrics.DuplicateRequests.Inc()
			return &SubmitPaymentResponse{Transaction: existing, Duplicate: true}, nil
		case errors.Is(err, domainErrors.ErrTransactionNotFound):
			// Index entry outlived its row; the database decides below.
			s.logger.Warn().
				Str("transaction_id", id.String()).
				Msg("idempotency index references missing transaction")
		default:
			return nil, err
		}
	}

	// 2. Authoritative duplicate check
	existing, err := s.txnRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err == nil {
		s.backfillIndex(ctx, req.IdempotencyKey, existing.ID)
		s.metrics.DuplicateRequests.Inc()
		return &SubmitPaymentResponse{Transaction: existing, Duplicate: true}, nil
	}
	if !errors.Is(err, domainErrors.ErrTransactionNotFound) {
		return nil, err
	}

	// 3. Create transaction in PROCESSING
	txn, err := transaction.New(
		req.MerchantID,
		transaction.Amount{ValueCents: req.Amount, Currency: req.Currency},
		req.IdempotencyKey,
		req.CustomerID,
		req.PaymentMethod,
		req.WebhookURL,
		req.Metadata,
	)
	if err != nil {
		return nil, err
	}

	if err := s.txnRepo.Create(ctx, txn); err != nil {
		if errors.Is(err, domainErrors.ErrDuplicateIdempotencyKey) {
			// Lost a race with a concurrent submission holding the same key.
			winner, getErr := s.txnRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
			if getErr != nil {
				return nil, getErr
			}
			s.backfillIndex(ctx, req.IdempotencyKey, winner.ID)
			s.metrics.DuplicateRequests.Inc()
			return &SubmitPaymentResponse{Transaction: winner, Duplicate: true}, nil
		}
		return nil, err
	}
	s.backfillIndex(ctx, req.IdempotencyKey, txn.ID)

	// 4. Settle through the processor
	start := time.Now()
	if err := s.charge(ctx, txn); err != nil {
		s.logger.Warn().Err(err).
			Str("transaction_id", txn.ID.String()).
			Msg("charge failed")
		if err := txn.MarkFailed(); err != nil {
			return nil, err
		}
	} else {
		if err := txn.MarkSuccess(); err != nil {
			return nil, err
		}
	}

	if err := s.txnRepo.Update(ctx, txn); err != nil {
		return nil, err
	}
	s.metrics.TransactionsTotal.WithLabelValues(string(txn.Status)).Inc()
	s.metrics.TransactionDuration.WithLabelValues(string(txn.Status)).Observe(time.Since(start).Seconds())

	// 5. Notify, best effort
	if err := s.webhooks.EnqueueTransactionEvent(ctx, txn); err != nil {
		s.logger.Error().Err(err).
			Str("transaction_id", txn.ID.String()).
			Msg("failed to enqueue webhook event")
	}

	return &SubmitPaymentResponse{Transaction: txn, Duplicate: false}, nil
}

// GetTransaction returns a transaction by ID.
func (s *PaymentService) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return s.txnRepo.GetByID(ctx, id)
}

func (s *PaymentService) charge(ctx context.Context, txn *transaction.Transaction) error {
	processor, breaker, err := s.gatewayFactory.Get(s.processorName)
	if err != nil {
		return err
	}

	chargeCtx, cancel := context.WithTimeout(ctx, s.processingTimeout)
	defer cancel()

	_, err = breaker.Execute(func() (*gateway.Result, error) {
		return processor.Charge(chargeCtx, gateway.ChargeRequest{
			TransactionID: txn.ID.String(),
			MerchantID:    txn.MerchantID,
			AmountCents:   txn.Amount.ValueCents,
			Currency:      txn.Amount.Currency,
			PaymentMethod: txn.PaymentMethod,
			Metadata:      txn.Metadata,
		})
	})
	return err
}

func (s *PaymentService) backfillIndex(ctx context.Context, key string, id uuid.UUID) {
	if err := s.index.Set(ctx, key, id); err != nil {
		s.logger.Warn().Err(err).Msg("failed to update idempotency index")
	}
}
