package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/gateway/internal/bootstrap"
	"github.com/cassiomorais/gateway/internal/controller"
	"github.com/cassiomorais/gateway/internal/gateway"
	"github.com/cassiomorais/gateway/internal/idempotency"
	infraRedis "github.com/cassiomorais/gateway/internal/infrastructure/redis"
	"github.com/cassiomorais/gateway/internal/repository/postgres"
	"github.com/cassiomorais/gateway/internal/service"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "gateway-api", "gateway")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	txnRepo := postgres.NewTransactionRepository(app.Pool)
	refundRepo := postgres.NewRefundRepository(app.Pool)
	webhookRepo := postgres.NewWebhookRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Infrastructure ---
	index := idempotency.NewRedisIndex(app.Redis, app.Config.Payment.IdempotencyTTL)
	producer := infraRedis.NewStreamProducer(app.Redis)
	factory := gateway.NewFactory(gateway.NewMockProcessor(app.Config.Payment.Processor))

	// --- Services ---
	webhookService := service.NewWebhookService(
		webhookRepo, producer, app.Config.Webhook.MaxAttempts, app.Logger,
	)
	paymentService := service.NewPaymentService(
		txnRepo, index, factory, webhookService, app.Metrics,
		app.Logger, app.Config.Payment.Processor, app.Config.Payment.ProcessingTimeout,
	)
	refundService := service.NewRefundService(
		txnRepo, refundRepo, txManager, factory, webhookService, app.Metrics,
		app.Logger, app.Config.Payment.Processor, app.Config.Payment.ProcessingTimeout,
	)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:           app.Pool,
		RedisClient:    app.Redis,
		PaymentService: paymentService,
		RefundService:  refundService,
		WebhookService: webhookService,
		Metrics:        app.Metrics,
		CORSConfig:     app.Config.Server.CORS,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
