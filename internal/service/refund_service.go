package service

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/refund"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/gateway"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RefundService handles refund submission against settled transactions.
type RefundService struct {
	txnRepo           transaction.Repository
	refundRepo        refund.Repository
	txManager         TransactionManager
	gatewayFactory    *gateway.Factory
	webhooks          *WebhookService
	metrics           *observability.Metrics
	logger            zerolog.Logger
	processorName     string
	processingTimeout time.Duration
}

// NewRefundService creates a new RefundService.
func NewRefundService(
	txnRepo transaction.Repository,
	refundRepo refund.Repository,
	txManager TransactionManager,
	gatewayFactory *gateway.Factory,
	webhooks *WebhookService,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	processorName string,
	processingTimeout time.Duration,
) *RefundService {
	return &RefundService{
		txnRepo:           txnRepo,
		refundRepo:        refundRepo,
		txManager:         txManager,
		gatewayFactory:    gatewayFactory,
		webhooks:          webhooks,
		metrics:           metrics,
		logger:            logger,
		processorName:     processorName,
		processingTimeout: processingTimeout,
	}
}

// SubmitRefundRequest holds the input for submitting a refund.
type SubmitRefundRequest struct {
	TransactionID uuid.UUID
	Amount        int64 // in cents
	Reason        string
}

// SubmitRefund refunds part or all of a settled transaction. The parent
// transaction row is locked for the whole operation, so concurrent refunds
// against the same transaction serialize and the sum of completed refunds
// can never exceed the original amount. A refund declined by the processor
// is returned in FAILED status without an error.
func (s *RefundService) SubmitRefund(ctx context.Context, req SubmitRefundRequest) (*refund.Refund, error) {
	var r *refund.Refund
	var txn *transaction.Transaction

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		txn, err = s.txnRepo.Lock(txCtx, req.TransactionID)
		if err != nil {
			return err
		}

		if !txn.IsRefundable() {
			s.metrics.RefundRejected.WithLabelValues("invalid_state").Inc()
			return domainErrors.NewDomainError(
				"invalid_state",
				fmt.Sprintf("cannot refund transaction in status %s", txn.Status),
				domainErrors.ErrNotRefundable,
			)
		}

		refunded, err := s.refundRepo.SumCompletedByTransaction(txCtx, txn.ID)
		if err != nil {
			return err
		}
		if refunded+req.Amount > txn.Amount.ValueCents {
			s.metrics.RefundRejected.WithLabelValues("limit_exceeded").Inc()
			return domainErrors.NewDomainError(
				"limit_exceeded",
				fmt.Sprintf("refund of %d cents exceeds remaining balance of %d cents",
					req.Amount, txn.Amount.ValueCents-refunded),
				domainErrors.ErrRefundLimitExceeded,
			)
		}

		r, err = refund.New(txn.ID, req.Amount, txn.Amount.Currency, req.Reason)
		if err != nil {
			return err
		}
		if err := s.refundRepo.Create(txCtx, r); err != nil {
			return err
		}

		if err := s.executeRefund(txCtx, r); err != nil {
			s.logger.Warn().Err(err).
				Str("refund_id", r.ID.String()).
				Msg("processor refund failed")
			if err := r.MarkFailed(); err != nil {
				return err
			}
			s.metrics.RefundsTotal.WithLabelValues(string(r.Status)).Inc()
			return s.refundRepo.Update(txCtx, r)
		}

		if err := r.MarkCompleted(); err != nil {
			return err
		}
		if err := s.refundRepo.Update(txCtx, r); err != nil {
			return err
		}

		if err := txn.ApplyRefundTotal(refunded + req.Amount); err != nil {
			return err
		}
		if err := s.txnRepo.Update(txCtx, txn); err != nil {
			return err
		}
		s.metrics.RefundsTotal.WithLabelValues(string(r.Status)).Inc()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.webhooks.EnqueueRefundEvent(ctx, r, txn); err != nil {
		s.logger.Error().Err(err).
			Str("refund_id", r.ID.String()).
			Msg("failed to enqueue webhook event")
	}

	return r, nil
}

// GetRefund returns a refund by ID.
func (s *RefundService) GetRefund(ctx context.Context, id uuid.UUID) (*refund.Refund, error) {
	return s.refundRepo.GetByID(ctx, id)
}

// ListRefunds returns all refunds recorded against a transaction.
func (s *RefundService) ListRefunds(ctx context.Context, transactionID uuid.UUID) ([]*refund.Refund, error) {
	if _, err := s.txnRepo.GetByID(ctx, transactionID); err != nil {
		return nil, err
	}
	return s.refundRepo.ListByTransaction(ctx, transactionID)
}

func (s *RefundService) executeRefund(ctx context.Context, r *refund.Refund) error {
	processor, breaker, err := s.gatewayFactory.Get(s.processorName)
	if err != nil {
		return err
	}

	refundCtx, cancel := context.WithTimeout(ctx, s.processingTimeout)
	defer cancel()

	_, err = breaker.Execute(func() (*gateway.Result, error) {
		return processor.Refund(refundCtx, gateway.RefundRequest{
			RefundID:      r.ID.String(),
			TransactionID: r.TransactionID.String(),
			AmountCents:   r.AmountCents,
			Currency:      r.Currency,
		})
	})
	return err
}
