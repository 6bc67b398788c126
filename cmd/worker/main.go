package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cassiomorais/gateway/internal/bootstrap"
	"github.com/cassiomorais/gateway/internal/dispatcher"
	"github.com/cassiomorais/gateway/internal/domain/webhook"
	infraRedis "github.com/cassiomorais/gateway/internal/infrastructure/redis"
	"github.com/cassiomorais/gateway/internal/repository/postgres"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "gateway-worker", "gateway_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	webhookCfg := app.Config.Webhook

	// --- Delivery pipeline ---
	webhookRepo := postgres.NewWebhookRepository(app.Pool)
	sender := dispatcher.NewHTTPSender(webhookCfg.AttemptTimeout)
	locker := dispatcher.NewRedisLocker(app.Redis, webhookCfg.LockTTL)

	policy := webhook.RetryPolicy{
		MaxAttempts:  webhookCfg.MaxAttempts,
		InitialDelay: webhookCfg.InitialDelay,
		MaxDelay:     webhookCfg.MaxDelay,
		JitterFactor: webhookCfg.JitterFactor,
	}

	disp := dispatcher.New(webhookRepo, sender, locker, policy, dispatcher.Config{
		PollInterval: webhookCfg.PollInterval,
		BatchSize:    webhookCfg.BatchSize,
		Concurrency:  webhookCfg.Concurrency,
	}, app.Metrics, app.Logger)

	// --- Stream consumer for freshly enqueued events ---
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.WebhookStream,
		webhookCfg.ConsumerGroup,
		app.Config.InstanceID,
		int64(webhookCfg.BatchSize),
		webhookCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group (may already exist)")
	}

	app.Logger.Info().
		Str("stream", infraRedis.WebhookStream).
		Str("group", webhookCfg.ConsumerGroup).
		Str("consumer", app.Config.InstanceID).
		Msg("Worker started, listening for webhook events...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Periodic sweep over due events. This is the source of truth; the
	// stream below only shortens the latency for fresh events.
	g.Go(func() error {
		return disp.Run(gCtx)
	})

	// 2. Stream consumer nudging the dispatcher about new events.
	g.Go(func() error {
		return runStreamFeed(gCtx, app.Logger, consumer, disp)
	})

	// 3. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

func runStreamFeed(
	ctx context.Context,
	logger zerolog.Logger,
	consumer *infraRedis.StreamConsumer,
	disp *dispatcher.Dispatcher,
) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error().Err(err).Msg("Failed to read from stream")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				eventIDStr, _ := msg.Values["event_id"].(string)
				eventID, err := uuid.Parse(eventIDStr)
				if err != nil {
					logger.Error().Str("raw", eventIDStr).Msg("Invalid event ID in stream message")
					consumer.Ack(ctx, msg.ID)
					continue
				}

				if err := disp.Dispatch(ctx, eventID); err != nil {
					logger.Error().Err(err).Str("event_id", eventID.String()).Msg("Failed to dispatch webhook event")
				}

				// Always ack: a failed attempt stays PENDING in the
				// database and the sweep will retry it when due.
				consumer.Ack(ctx, msg.ID)
			}
		}
	}
}
