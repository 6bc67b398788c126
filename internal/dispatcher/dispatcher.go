// Package dispatcher delivers pending webhook events to their targets.
// It is fed two ways: a Redis stream nudge for freshly enqueued events and
// a periodic sweep over the events table for retries and anything the
// stream missed. The table is the source of truth; losing a nudge only
// delays delivery until the next sweep.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/cassiomorais/gateway/internal/domain/webhook"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Sender delivers one webhook event payload to its target URL.
type Sender interface {
	Send(ctx context.Context, event *webhook.Event) error
}

// Locker serializes delivery attempts on a single event across processes.
// Release must be called when acquired is true.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), acquired bool, err error)
}

// Config holds the dispatcher tuning knobs.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	Concurrency  int
}

// Dispatcher claims due webhook events and attempts delivery, updating each
// event's durable retry state after every attempt.
type Dispatcher struct {
	eventRepo webhook.Repository
	sender    Sender
	locker    Locker
	policy    webhook.RetryPolicy
	cfg       Config
	metrics   *observability.Metrics
	logger    zerolog.Logger

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

func New(
	eventRepo webhook.Repository,
	sender Sender,
	locker Locker,
	policy webhook.RetryPolicy,
	cfg Config,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Dispatcher{
		eventRepo: eventRepo,
		sender:    sender,
		locker:    locker,
		policy:    policy,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		inflight:  make(map[uuid.UUID]struct{}),
	}
}

// Run sweeps for due events until the context is cancelled. Between sweeps
// it sleeps until the earliest scheduled retry, capped at the poll interval.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		claimed, err := d.sweep(ctx)
		if err != nil {
			d.logger.Error().Err(err).Msg("dispatcher sweep failed")
		}
		if claimed == d.cfg.BatchSize {
			continue // backlog, sweep again immediately
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d.sleepInterval(ctx)):
		}
	}
}

// Dispatch attempts delivery of a single event by ID. It is called from the
// stream consumer when a fresh event is announced.
func (d *Dispatcher) Dispatch(ctx context.Context, eventID uuid.UUID) error {
	event, err := d.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	return d.attempt(ctx, event)
}

func (d *Dispatcher) sweep(ctx context.Context) (int, error) {
	events, err := d.eventRepo.GetDue(ctx, time.Now(), d.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	d.metrics.DispatcherBatchSize.Observe(float64(len(events)))
	if len(events) == 0 {
		return 0, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)
	for _, event := range events {
		event := event
		g.Go(func() error {
			if err := d.attempt(gCtx, event); err != nil {
				d.logger.Error().Err(err).
					Str("event_id", event.ID.String()).
					Msg("webhook delivery attempt errored")
			}
			return nil
		})
	}
	return len(events), g.Wait()
}

// attempt performs at most one delivery attempt for the event. The in-process
// set and the distributed lock together guarantee a single concurrent attempt
// per event.
func (d *Dispatcher) attempt(ctx context.Context, event *webhook.Event) error {
	if !d.markInflight(event.ID) {
		return nil
	}
	defer d.clearInflight(event.ID)

	release, acquired, err := d.locker.Acquire(ctx, event.ID.String())
	if err != nil {
		return err
	}
	if !acquired {
		return nil // another instance holds it
	}
	defer release()

	// Re-read under the lock; another instance may have settled it.
	event, err = d.eventRepo.GetByID(ctx, event.ID)
	if err != nil {
		return err
	}
	now := time.Now()
	if !event.Due(now) {
		return nil
	}

	d.metrics.WebhookInflightGauge.Inc()
	defer d.metrics.WebhookInflightGauge.Dec()

	start := time.Now()
	sendErr := d.sender.Send(ctx, event)
	elapsed := time.Since(start).Seconds()

	if sendErr == nil {
		if err := event.MarkDelivered(time.Now()); err != nil {
			return err
		}
		d.metrics.WebhookDeliveries.WithLabelValues("success").Inc()
		d.metrics.WebhookDeliveryTime.WithLabelValues("success").Observe(elapsed)
		d.logger.Info().
			Str("event_id", event.ID.String()).
			Str("event_type", event.EventType).
			Int("attempts", event.Attempts).
			Msg("webhook delivered")
		return d.eventRepo.Update(ctx, event)
	}

	if err := event.RecordFailure(time.Now(), d.policy); err != nil {
		return err
	}
	d.metrics.WebhookDeliveries.WithLabelValues("failure").Inc()
	d.metrics.WebhookDeliveryTime.WithLabelValues("failure").Observe(elapsed)

	log := d.logger.Warn().Err(sendErr).
		Str("event_id", event.ID.String()).
		Int("attempts", event.Attempts).
		Int("max_attempts", event.MaxAttempts)
	if event.Status == webhook.StatusFailed {
		log.Msg("webhook delivery failed permanently")
	} else {
		d.metrics.WebhookRetries.Inc()
		log.Time("next_retry_at", *event.NextRetryAt).Msg("webhook delivery re-armed")
	}
	return d.eventRepo.Update(ctx, event)
}

// sleepInterval returns how long to wait before the next sweep: until the
// earliest scheduled retry, but never longer than the poll interval.
func (d *Dispatcher) sleepInterval(ctx context.Context) time.Duration {
	wait := d.cfg.PollInterval
	next, err := d.eventRepo.NextDue(ctx, time.Now())
	if err != nil {
		d.logger.Warn().Err(err).Msg("failed to query next due event")
		return wait
	}
	if next != nil {
		if until := time.Until(*next); until < wait {
			wait = max(until, 10*time.Millisecond)
		}
	}
	return wait
}

func (d *Dispatcher) markInflight(id uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.inflight[id]; ok {
		return false
	}
	d.inflight[id] = struct{}{}
	return true
}

func (d *Dispatcher) clearInflight(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, id)
}
