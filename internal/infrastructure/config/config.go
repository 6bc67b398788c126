package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Webhook       WebhookConfig       `mapstructure:"webhook"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

type PaymentConfig struct {
	Processor               string        `mapstructure:"processor"`
	ProcessingTimeout       time.Duration `mapstructure:"processing_timeout"`
	IdempotencyTTL          time.Duration `mapstructure:"idempotency_ttl"`
	CircuitBreakerThreshold int           `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `mapstructure:"circuit_breaker_timeout"`
}

type WebhookConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialDelay   time.Duration `mapstructure:"initial_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
	JitterFactor   float64       `mapstructure:"jitter_factor"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	BatchSize      int           `mapstructure:"batch_size"`
	Concurrency    int           `mapstructure:"concurrency"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	ConsumerGroup  string        `mapstructure:"consumer_group"`
	BlockDuration  time.Duration `mapstructure:"block_duration"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("GATEWAY")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/gateway")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Payment.ProcessingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("payment.processing_timeout must be positive"))
	}
	if c.Payment.IdempotencyTTL <= 0 {
		errs = append(errs, fmt.Errorf("payment.idempotency_ttl must be positive"))
	}
	if c.Webhook.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("webhook.max_attempts must be positive"))
	}
	if c.Webhook.InitialDelay <= 0 {
		errs = append(errs, fmt.Errorf("webhook.initial_delay must be positive"))
	}
	if c.Webhook.MaxDelay < c.Webhook.InitialDelay {
		errs = append(errs, fmt.Errorf("webhook.max_delay must be >= webhook.initial_delay"))
	}
	if c.Webhook.JitterFactor < 0 || c.Webhook.JitterFactor > 1 {
		errs = append(errs, fmt.Errorf("webhook.jitter_factor must be between 0 and 1"))
	}
	if c.Webhook.AttemptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("webhook.attempt_timeout must be positive"))
	}
	if c.Webhook.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("webhook.poll_interval must be positive"))
	}
	if c.Webhook.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("webhook.batch_size must be positive"))
	}
	if c.Webhook.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("webhook.concurrency must be positive"))
	}
	if c.Webhook.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("webhook.lock_ttl must be positive"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gateway")
	v.SetDefault("database.database", "gateway")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Payment defaults
	v.SetDefault("payment.processor", "mock")
	v.SetDefault("payment.processing_timeout", "30s")
	v.SetDefault("payment.idempotency_ttl", "24h")
	v.SetDefault("payment.circuit_breaker_threshold", 10)
	v.SetDefault("payment.circuit_breaker_timeout", "30s")

	// Webhook defaults
	v.SetDefault("webhook.max_attempts", 5)
	v.SetDefault("webhook.initial_delay", "30s")
	v.SetDefault("webhook.max_delay", "30m")
	v.SetDefault("webhook.jitter_factor", 0.2)
	v.SetDefault("webhook.attempt_timeout", "10s")
	v.SetDefault("webhook.poll_interval", "5s")
	v.SetDefault("webhook.batch_size", 20)
	v.SetDefault("webhook.concurrency", 8)
	v.SetDefault("webhook.lock_ttl", "30s")
	v.SetDefault("webhook.consumer_group", "webhook-dispatchers")
	v.SetDefault("webhook.block_duration", "1s")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Instance ID
	v.SetDefault("instance_id", "gateway-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
