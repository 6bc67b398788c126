package controller

import (
	"time"

	"github.com/cassiomorais/gateway/internal/infrastructure/config"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/gateway/internal/middleware"
	"github.com/cassiomorais/gateway/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Pool           *pgxpool.Pool
	RedisClient    *redis.Client
	PaymentService *service.PaymentService
	RefundService  *service.RefundService
	WebhookService *service.WebhookService
	Metrics        *observability.Metrics
	CORSConfig     config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	paymentH := NewPaymentController(deps.PaymentService, deps.WebhookService)
	refundH := NewRefundController(deps.RefundService)
	webhookTestH := NewWebhookTestController()

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Payments
		r.Post("/payments", paymentH.CreatePayment)
		r.Get("/payments/{id}", paymentH.GetPayment)
		r.Get("/payments/{id}/events", paymentH.ListPaymentEvents)

		// Refunds
		r.Post("/payments/{id}/refunds", refundH.CreateRefund)
		r.Get("/payments/{id}/refunds", refundH.ListRefunds)
		r.Get("/refunds/{id}", refundH.GetRefund)

		// Webhook test sink
		r.Post("/webhooks/test", webhookTestH.Receive)
		r.Get("/webhooks/test/history", webhookTestH.History)
		r.Delete("/webhooks/test/history", webhookTestH.ClearHistory)
	})

	return r
}
