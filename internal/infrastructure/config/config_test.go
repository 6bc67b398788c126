package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "test",
			Password: "test",
			Database: "test_db",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Payment: PaymentConfig{
			Processor:         "mock",
			ProcessingTimeout: 30 * time.Second,
			IdempotencyTTL:    24 * time.Hour,
		},
		Webhook: WebhookConfig{
			MaxAttempts:    5,
			InitialDelay:   30 * time.Second,
			MaxDelay:       30 * time.Minute,
			JitterFactor:   0.2,
			AttemptTimeout: 10 * time.Second,
			PollInterval:   5 * time.Second,
			BatchSize:      20,
			Concurrency:    8,
			LockTTL:        30 * time.Second,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"port too low", 0},
		{"port negative", -1},
		{"port too high", 99999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestConfig_Validate_MissingDatabaseHost(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database.host")
}

func TestConfig_Validate_InvalidWebhookSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"zero max attempts", func(c *Config) { c.Webhook.MaxAttempts = 0 }, "webhook.max_attempts"},
		{"zero initial delay", func(c *Config) { c.Webhook.InitialDelay = 0 }, "webhook.initial_delay"},
		{"max delay below initial", func(c *Config) { c.Webhook.MaxDelay = time.Second }, "webhook.max_delay"},
		{"jitter out of range", func(c *Config) { c.Webhook.JitterFactor = 1.5 }, "webhook.jitter_factor"},
		{"zero attempt timeout", func(c *Config) { c.Webhook.AttemptTimeout = 0 }, "webhook.attempt_timeout"},
		{"zero poll interval", func(c *Config) { c.Webhook.PollInterval = 0 }, "webhook.poll_interval"},
		{"zero batch size", func(c *Config) { c.Webhook.BatchSize = 0 }, "webhook.batch_size"},
		{"zero concurrency", func(c *Config) { c.Webhook.Concurrency = 0 }, "webhook.concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestConfig_Validate_InvalidPaymentSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Payment.ProcessingTimeout = 0
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "payment.processing_timeout")

	cfg = validConfig()
	cfg.Payment.IdempotencyTTL = 0
	err = cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "payment.idempotency_ttl")
}

func TestConfig_Validate_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Database.Host = ""
	cfg.Webhook.BatchSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "database.host")
	assert.Contains(t, err.Error(), "webhook.batch_size")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "mock", cfg.Payment.Processor)
	assert.Equal(t, 24*time.Hour, cfg.Payment.IdempotencyTTL)
	assert.Equal(t, 5, cfg.Webhook.MaxAttempts)
	assert.Equal(t, "webhook-dispatchers", cfg.Webhook.ConsumerGroup)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GATEWAY_INSTANCE_ID", "gateway-test-7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gateway-test-7", cfg.InstanceID)
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Database: "gateway", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=gateway sslmode=disable", c.DatabaseDSN())
}

func TestRedisAddr(t *testing.T) {
	c := RedisConfig{Host: "cache", Port: 6379}
	assert.Equal(t, "cache:6379", c.RedisAddr())
}
