package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/refund"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/gateway"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/cassiomorais/gateway/internal/testutil"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Helpers ---

type refundServiceDeps struct {
	txnRepo     *testutil.MockTransactionRepository
	refundRepo  *testutil.MockRefundRepository
	txManager   *testutil.MockTransactionManager
	processor   *testutil.MockProcessor
	webhookRepo *testutil.MockWebhookRepository
}

func setupRefundService() (*RefundService, *refundServiceDeps) {
	deps := &refundServiceDeps{
		txnRepo:     testutil.NewMockTransactionRepository(),
		refundRepo:  testutil.NewMockRefundRepository(),
		txManager:   testutil.NewMockTransactionManager(),
		processor:   testutil.NewMockProcessor("stripe"),
		webhookRepo: testutil.NewMockWebhookRepository(),
	}

	factory := gateway.NewFactory(deps.processor)
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	webhooks := NewWebhookService(deps.webhookRepo, nil, 5, zerolog.Nop())

	svc := NewRefundService(
		deps.txnRepo, deps.refundRepo, deps.txManager, factory, webhooks, metrics,
		zerolog.Nop(), "stripe", 5*time.Second,
	)
	return svc, deps
}

// --- SubmitRefund Tests ---

func TestSubmitRefund_FullRefund(t *testing.T) {
	svc, deps := setupRefundService()
	ctx := context.Background()

	txn := testutil.NewSettledTransaction(10000, "USD")
	txn.WebhookURL = "https://example.com/webhook"
	deps.txnRepo.AddTransaction(txn)

	r, err := svc.SubmitRefund(ctx, SubmitRefundRequest{
		TransactionID: txn.ID,
		Amount:        10000,
		Reason:        "customer request",
	})
	require.NoError(t, err)
	assert.Equal(t, refund.StatusCompleted, r.Status)
	assert.Equal(t, int64(10000), r.AmountCents)
	assert.Equal(t, "USD", r.Currency)

	stored, err := deps.txnRepo.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusRefunded, stored.Status)

	events, err := deps.webhookRepo.ListBySubject(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "refund.completed", events[0].EventType)
}

func TestSubmitRefund_ConcurrentRefundsNeverExceedAmount(t *testing.T) {
	svc, deps := setupRefundService()
	ctx := context.Background()

	txn := testutil.NewSettledTransaction(10000, "USD")
	deps.txnRepo.AddTransaction(txn)

	// Serialize transactions the way the row lock on the parent does in
	// Postgres: whoever enters WithTransaction first holds the lock until
	// its writes are visible, and the loser re-reads the fresh aggregate.
	var rowLock sync.Mutex
	deps.txManager.WithTransactionFunc = func(ctx context.Context, fn func(ctx context.Context) error) error {
		rowLock.Lock()
		defer rowLock.Unlock()
		return fn(ctx)
	}

	// Two 60.00 refunds against a 100.00 transaction: only one may complete.
	start := make(chan struct{})
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.SubmitRefund(ctx, SubmitRefundRequest{
				TransactionID: txn.ID,
				Amount:        6000,
			})
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var completed, rejected int
	for err := range results {
		switch {
		case err == nil:
			completed++
		case errors.Is(err, domainErrors.ErrRefundLimitExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, rejected)

	sum, err := deps.refundRepo.SumCompletedByTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), sum)

	stored, err := deps.txnRepo.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPartialRefund, stored.Status)
}

func TestSubmitRefund_PartialThenExhausted(t *testing.T) {
	svc, deps := setupRefundService()
	ctx := context.Background()

	txn := testutil.NewSettledTransaction(10000, "USD")
	deps.txnRepo.AddTransaction(txn)

	// 40.00 of 100.00
	r1, err := svc.SubmitRefund(ctx, SubmitRefundRequest{TransactionID: txn.ID, Amount: 4000})
	require.NoError(t, err)
	assert.Equal(t, refund.StatusCompleted, r1.Status)
	stored, _ := deps.txnRepo.GetByID(ctx, txn.ID)
	assert.Equal(t, transaction.StatusPartialRefund, stored.Status)

	// Remaining 60.00
	r2, err := svc.SubmitRefund(ctx, SubmitRefundRequest{TransactionID: txn.ID, Amount: 6000})
	require.NoError(t, err)
	assert.Equal(t, refund.StatusCompleted, r2.Status)
	stored, _ = deps.txnRepo.GetByID(ctx, txn.ID)
	assert.Equal(t, transaction.StatusRefunded, stored.Status)

	// One more cent must be rejected
	_, err = svc.SubmitRefund(ctx, SubmitRefundRequest{TransactionID: txn.ID, Amount: 1})
	assert.ErrorIs(t, err, domainErrors.ErrNotRefundable)
}

func TestSubmitRefund_LimitExceeded(t *testing.T) {
	svc, deps := setupRefundService()
	ctx := context.Background()

	txn := testutil.NewSettledTransaction(10000, "USD")
	deps.txnRepo.AddTransaction(txn)

	_, err := svc.SubmitRefund(ctx, SubmitRefundRequest{TransactionID: txn.ID, Amount: 10001})
	assert.ErrorIs(t, err, domainErrors.ErrRefundLimitExceeded)

	// Nothing recorded against the transaction
	sum, err := deps.refundRepo.SumCompletedByTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)
}

func TestSubmitRefund_LimitCountsOnlyCompletedRefunds(t *testing.T) {
	svc, deps := setupRefundService()
	ctx := context.Background()

	txn := testutil.NewSettledTransaction(10000, "USD")
	txn.Status = transaction.StatusPartialRefund
	deps.txnRepo.AddTransaction(txn)

	completed := testutil.NewCompletedRefund(txn.ID, 6000, "USD")
	require.NoError(t, deps.refundRepo.Create(ctx, completed))

	failed := testutil.NewCompletedRefund(txn.ID, 4000, "USD")
	failed.Status = refund.StatusFailed
	require.NoError(t, deps.refundRepo.Create(ctx, failed))

	// 6000 completed, 4000 failed: 4000 must still be available
	r, err := svc.SubmitRefund(ctx, SubmitRefundRequest{TransactionID: txn.ID, Amount: 4000})
	require.NoError(t, err)
	assert.Equal(t, refund.StatusCompleted, r.Status)

	stored, _ := deps.txnRepo.GetByID(ctx, txn.ID)
	assert.Equal(t, transaction.StatusRefunded, stored.Status)
}

func TestSubmitRefund_NotRefundable(t *testing.T) {
	svc, deps := setupRefundService()
	ctx := context.Background()

	for _, status := range []transaction.Status{
		transaction.StatusProcessing,
		transaction.StatusFailed,
		transaction.StatusRefunded,
	} {
		txn := testutil.NewTestTransaction(10000, "USD")
		txn.Status = status
		deps.txnRepo.AddTransaction(txn)

		_, err := svc.SubmitRefund(ctx, SubmitRefundRequest{TransactionID: txn.ID, Amount: 1000})
		assert.ErrorIs(t, err, domainErrors.ErrNotRefundable, "status %s", status)
	}
}

func TestSubmitRefund_TransactionNotFound(t *testing.T) {
	svc, _ := setupRefundService()
	ctx := context.Background()

	_, err := svc.SubmitRefund(ctx, SubmitRefundRequest{TransactionID: uuid.New(), Amount: 1000})
	assert.ErrorIs(t, err, domainErrors.ErrTransactionNotFound)
}

func TestSubmitRefund_ProcessorDecline(t *testing.T) {
	svc, deps := setupRefundService()
	ctx := context.Background()

	txn := testutil.NewSettledTransaction(10000, "USD")
	txn.WebhookURL = "https://example.com/webhook"
	deps.txnRepo.AddTransaction(txn)

	deps.processor.RefundFunc = func(ctx context.Context, req gateway.RefundRequest) (*gateway.Result, error) {
		return &gateway.Result{Status: "failed"}, domainErrors.ErrProcessorRejected
	}

	r, err := svc.SubmitRefund(ctx, SubmitRefundRequest{TransactionID: txn.ID, Amount: 4000})
	require.NoError(t, err)
	assert.Equal(t, refund.StatusFailed, r.Status)

	// Transaction untouched, balance still fully available
	stored, _ := deps.txnRepo.GetByID(ctx, txn.ID)
	assert.Equal(t, transaction.StatusSuccess, stored.Status)
	sum, _ := deps.refundRepo.SumCompletedByTransaction(ctx, txn.ID)
	assert.Equal(t, int64(0), sum)

	// The event type stays constant; only the payload status carries the outcome.
	events, err := deps.webhookRepo.ListBySubject(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "refund.completed", events[0].EventType)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, string(refund.StatusFailed), payload["status"])
}

func TestSubmitRefund_RollsBackOnUpdateError(t *testing.T) {
	svc, deps := setupRefundService()
	ctx := context.Background()

	txn := testutil.NewSettledTransaction(10000, "USD")
	deps.txnRepo.AddTransaction(txn)

	deps.txnRepo.UpdateFunc = func(ctx context.Context, txn *transaction.Transaction) error {
		return context.DeadlineExceeded
	}

	_, err := svc.SubmitRefund(ctx, SubmitRefundRequest{TransactionID: txn.ID, Amount: 4000})
	assert.Error(t, err)
}

func TestSubmitRefund_ValidationError(t *testing.T) {
	svc, deps := setupRefundService()
	ctx := context.Background()

	txn := testutil.NewSettledTransaction(10000, "USD")
	deps.txnRepo.AddTransaction(txn)

	_, err := svc.SubmitRefund(ctx, SubmitRefundRequest{TransactionID: txn.ID, Amount: 0})
	require.Error(t, err)

	var vErr *domainErrors.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

// --- ListRefunds Tests ---

func TestListRefunds(t *testing.T) {
	svc, deps := setupRefundService()
	ctx := context.Background()

	txn := testutil.NewSettledTransaction(10000, "USD")
	deps.txnRepo.AddTransaction(txn)

	r1, err := svc.SubmitRefund(ctx, SubmitRefundRequest{TransactionID: txn.ID, Amount: 3000})
	require.NoError(t, err)
	r2, err := svc.SubmitRefund(ctx, SubmitRefundRequest{TransactionID: txn.ID, Amount: 2000})
	require.NoError(t, err)

	refunds, err := svc.ListRefunds(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, refunds, 2)
	ids := []uuid.UUID{refunds[0].ID, refunds[1].ID}
	assert.Contains(t, ids, r1.ID)
	assert.Contains(t, ids, r2.ID)
}

func TestListRefunds_TransactionNotFound(t *testing.T) {
	svc, _ := setupRefundService()
	ctx := context.Background()

	_, err := svc.ListRefunds(ctx, uuid.New())
	assert.ErrorIs(t, err, domainErrors.ErrTransactionNotFound)
}

// --- GetRefund Tests ---

func TestGetRefund_NotFound(t *testing.T) {
	svc, _ := setupRefundService()
	ctx := context.Background()

	_, err := svc.GetRefund(ctx, uuid.New())
	assert.ErrorIs(t, err, domainErrors.ErrRefundNotFound)
}
