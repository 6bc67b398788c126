package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cassiomorais/gateway/internal/domain/webhook"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/cassiomorais/gateway/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender lets tests script delivery outcomes.
type fakeSender struct {
	mu    sync.Mutex
	calls int32
	err   error
	block chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, event *webhook.Event) error {
	atomic.AddInt32(&f.calls, 1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeSender) callCount() int32 {
	return atomic.LoadInt32(&f.calls)
}

func testPolicy() webhook.RetryPolicy {
	return webhook.RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Minute,
		MaxDelay:     time.Hour,
		JitterFactor: 0,
	}
}

func setupDispatcher(sender Sender) (*Dispatcher, *testutil.MockWebhookRepository) {
	repo := testutil.NewMockWebhookRepository()
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	d := New(repo, sender, NoopLocker{}, testPolicy(), Config{
		PollInterval: 20 * time.Millisecond,
		BatchSize:    10,
		Concurrency:  4,
	}, metrics, zerolog.Nop())
	return d, repo
}

func TestDispatch_Delivered(t *testing.T) {
	sender := &fakeSender{}
	d, repo := setupDispatcher(sender)
	ctx := context.Background()

	event := testutil.NewPendingEvent("https://example.com/webhook", 3)
	require.NoError(t, repo.Create(ctx, event))

	require.NoError(t, d.Dispatch(ctx, event.ID))

	stored := repo.GetEventByID(event.ID)
	assert.Equal(t, webhook.StatusDelivered, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.NotNil(t, stored.DeliveredAt)
	assert.Nil(t, stored.NextRetryAt)
	assert.Equal(t, int32(1), sender.callCount())
}

func TestDispatch_FailureReArmsUntilBudgetExhausted(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	d, repo := setupDispatcher(sender)
	ctx := context.Background()

	event := testutil.NewPendingEvent("https://example.com/webhook", 3)
	require.NoError(t, repo.Create(ctx, event))

	var lastRetryAt time.Time
	for attempt := 1; attempt < 3; attempt++ {
		require.NoError(t, d.Dispatch(ctx, event.ID))

		stored := repo.GetEventByID(event.ID)
		assert.Equal(t, webhook.StatusPending, stored.Status)
		assert.Equal(t, attempt, stored.Attempts)
		require.NotNil(t, stored.NextRetryAt)
		assert.True(t, stored.NextRetryAt.After(time.Now()))
		assert.True(t, stored.NextRetryAt.After(lastRetryAt))
		lastRetryAt = *stored.NextRetryAt

		// Force the event due again for the next attempt
		past := time.Now().Add(-time.Second)
		stored.NextRetryAt = &past
		require.NoError(t, repo.Update(ctx, stored))
	}

	// Final attempt exhausts the budget
	require.NoError(t, d.Dispatch(ctx, event.ID))
	stored := repo.GetEventByID(event.ID)
	assert.Equal(t, webhook.StatusFailed, stored.Status)
	assert.Equal(t, 3, stored.Attempts)
	assert.Nil(t, stored.NextRetryAt)

	// A terminal event is never attempted again
	require.NoError(t, d.Dispatch(ctx, event.ID))
	assert.Equal(t, int32(3), sender.callCount())
}

func TestDispatch_SkipsEventNotYetDue(t *testing.T) {
	sender := &fakeSender{}
	d, repo := setupDispatcher(sender)
	ctx := context.Background()

	event := testutil.NewPendingEvent("https://example.com/webhook", 3)
	future := time.Now().Add(time.Hour)
	event.NextRetryAt = &future
	require.NoError(t, repo.Create(ctx, event))

	require.NoError(t, d.Dispatch(ctx, event.ID))
	assert.Equal(t, int32(0), sender.callCount())
	assert.Equal(t, webhook.StatusPending, repo.GetEventByID(event.ID).Status)
}

func TestDispatch_EventNotFound(t *testing.T) {
	sender := &fakeSender{}
	d, _ := setupDispatcher(sender)

	err := d.Dispatch(context.Background(), testutil.NewPendingEvent("https://example.com", 3).ID)
	assert.Error(t, err)
}

func TestDispatch_SingleAttemptPerEvent(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	d, repo := setupDispatcher(sender)
	ctx := context.Background()

	event := testutil.NewPendingEvent("https://example.com/webhook", 3)
	require.NoError(t, repo.Create(ctx, event))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Dispatch(ctx, event.ID)
	}()

	// Wait until the first attempt is inside the sender, then race a second
	require.Eventually(t, func() bool { return sender.callCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Dispatch(ctx, event.ID)) // must skip, attempt in flight

	close(sender.block)
	<-done

	assert.Equal(t, int32(1), sender.callCount())
	assert.Equal(t, webhook.StatusDelivered, repo.GetEventByID(event.ID).Status)
}

func TestDispatch_LockHeldElsewhere(t *testing.T) {
	sender := &fakeSender{}
	repo := testutil.NewMockWebhookRepository()
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	locker := lockerFunc(func(ctx context.Context, key string) (func(), bool, error) {
		return nil, false, nil
	})
	d := New(repo, sender, locker, testPolicy(), Config{}, metrics, zerolog.Nop())
	ctx := context.Background()

	event := testutil.NewPendingEvent("https://example.com/webhook", 3)
	require.NoError(t, repo.Create(ctx, event))

	require.NoError(t, d.Dispatch(ctx, event.ID))
	assert.Equal(t, int32(0), sender.callCount())
}

type lockerFunc func(ctx context.Context, key string) (func(), bool, error)

func (f lockerFunc) Acquire(ctx context.Context, key string) (func(), bool, error) {
	return f(ctx, key)
}

func TestRun_SweepsDueEvents(t *testing.T) {
	sender := &fakeSender{}
	d, repo := setupDispatcher(sender)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	e1 := testutil.NewPendingEvent("https://example.com/a", 3)
	e2 := testutil.NewPendingEvent("https://example.com/b", 3)
	require.NoError(t, repo.Create(ctx, e1))
	require.NoError(t, repo.Create(ctx, e2))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return repo.GetEventByID(e1.ID).Status == webhook.StatusDelivered &&
			repo.GetEventByID(e2.ID).Status == webhook.StatusDelivered
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
