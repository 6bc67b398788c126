package webhook_test

import (
	"testing"
	"time"

	"github.com/cassiomorais/gateway/internal/domain/webhook"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingEvent(t *testing.T, maxAttempts int) *webhook.Event {
	t.Helper()
	e, err := webhook.NewEvent(
		uuid.New(),
		"transaction",
		"payment.completed",
		"https://example.com/webhook",
		[]byte(`{"event_type":"payment.completed"}`),
		maxAttempts,
	)
	require.NoError(t, err)
	return e
}

func TestNewEvent(t *testing.T) {
	e := newPendingEvent(t, 5)
	assert.Equal(t, webhook.StatusPending, e.Status)
	assert.Equal(t, 0, e.Attempts)
	assert.Equal(t, 5, e.MaxAttempts)
	assert.Nil(t, e.NextRetryAt)
	assert.Nil(t, e.DeliveredAt)
}

func TestNewEvent_MissingTargetURL(t *testing.T) {
	_, err := webhook.NewEvent(uuid.New(), "transaction", "payment.completed", "", nil, 5)
	assert.Error(t, err)
}

func TestNewEvent_DefaultsMaxAttempts(t *testing.T) {
	e := newPendingEvent(t, 0)
	assert.Equal(t, webhook.DefaultRetryPolicy().MaxAttempts, e.MaxAttempts)
}

func TestDue(t *testing.T) {
	now := time.Now()
	e := newPendingEvent(t, 5)

	// First attempt: due immediately.
	assert.True(t, e.Due(now))

	require.NoError(t, e.RecordFailure(now, webhook.DefaultRetryPolicy()))
	assert.False(t, e.Due(now))
	assert.True(t, e.Due(e.NextRetryAt.Add(time.Second)))
}

func TestMarkDelivered(t *testing.T) {
	now := time.Now()
	e := newPendingEvent(t, 5)

	require.NoError(t, e.MarkDelivered(now))
	assert.Equal(t, webhook.StatusDelivered, e.Status)
	assert.Equal(t, 1, e.Attempts)
	assert.Equal(t, now, *e.DeliveredAt)
	assert.Nil(t, e.NextRetryAt)

	// Terminal: no further transitions.
	assert.Error(t, e.MarkDelivered(now))
	assert.Error(t, e.RecordFailure(now, webhook.DefaultRetryPolicy()))
}

func TestRecordFailure_RearmsWithBackoff(t *testing.T) {
	policy := webhook.RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 30 * time.Second,
		MaxDelay:     30 * time.Minute,
		JitterFactor: 0.2,
	}
	now := time.Now()
	e := newPendingEvent(t, policy.MaxAttempts)

	var prev time.Time
	for i := 1; i < policy.MaxAttempts; i++ {
		require.NoError(t, e.RecordFailure(now, policy))
		assert.Equal(t, webhook.StatusPending, e.Status, "attempt %d should re-arm pending", i)
		assert.Equal(t, i, e.Attempts)
		require.NotNil(t, e.NextRetryAt)
		assert.True(t, e.NextRetryAt.After(now), "retry must be scheduled in the future")
		if i > 1 {
			assert.True(t, e.NextRetryAt.After(prev), "retry schedule must strictly increase")
		}
		prev = *e.NextRetryAt
	}

	// Final attempt exhausts the budget.
	require.NoError(t, e.RecordFailure(now, policy))
	assert.Equal(t, webhook.StatusFailed, e.Status)
	assert.Equal(t, policy.MaxAttempts, e.Attempts)
	assert.Nil(t, e.NextRetryAt)

	// FAILED is terminal.
	assert.Error(t, e.RecordFailure(now, policy))
	assert.Error(t, e.MarkDelivered(now))
}

func TestRecordFailure_DelayIsCapped(t *testing.T) {
	policy := webhook.RetryPolicy{
		MaxAttempts:  100,
		InitialDelay: time.Second,
		MaxDelay:     8 * time.Second,
		JitterFactor: 0, // deterministic
	}
	now := time.Now()
	e := newPendingEvent(t, policy.MaxAttempts)

	for i := 0; i < 10; i++ {
		require.NoError(t, e.RecordFailure(now, policy))
	}
	require.NotNil(t, e.NextRetryAt)
	assert.Equal(t, now.Add(8*time.Second), *e.NextRetryAt)
}
