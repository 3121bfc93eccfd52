// internal/config/config.go
package config

import (
	"fmt"
	"net"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	Environment string          `env:"ENVIRONMENT" envDefault:"development"`
	Server      ServerConfig    `envPrefix:"SERVER_"`
	Database    DatabaseConfig  `envPrefix:"DB_"`
	JWT         JWTConfig       `envPrefix:"JWT_"`
	Redis       RedisConfig     `envPrefix:"REDIS_"`
	Kafka       KafkaConfig     `envPrefix:"KAFKA_"`
	AWS         AWSConfig       `envPrefix:"AWS_"`
	Log         LogConfig       `envPrefix:"LOG_"`
	RateLimit   RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	CORS        CORSConfig      `envPrefix:"CORS_"`
	Workflow    WorkflowConfig  `envPrefix:"WORKFLOW_"`
	I18n        I18nConfig
}

type ServerConfig struct {
	Port         string `env:"PORT" envDefault:"8080"`
	// Host is the listen interface; empty listens on all of them.
	Host         string `env:"HOST"`
	ReadTimeout  int    `env:"READ_TIMEOUT" envDefault:"15"`
	WriteTimeout int    `env:"WRITE_TIMEOUT" envDefault:"15"`
	IdleTimeout  int    `env:"IDLE_TIMEOUT" envDefault:"60"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver       string `env:"DRIVER" envDefault:"postgres"`
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         string `env:"PORT" envDefault:"5432"`
	User         string `env:"USER" envDefault:"postgres"`
	Password     string `env:"PASSWORD"`
	Database     string `env:"NAME" envDefault:"shree_anna"`
	SSLMode      string `env:"SSL_MODE" envDefault:"disable"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"shree_anna.db"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS" envDefault:"25"`
	MaxLifetime  int    `env:"MAX_LIFETIME" envDefault:"300"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"warn"`
}

type JWTConfig struct {
	SecretKey string `env:"SECRET" envDefault:"your-secret-key-change-in-production"`
	Issuer    string `env:"ISSUER" envDefault:"shree-anna-connect"`
}

// RedisConfig backs the idempotency-key store. An empty Addr keeps keys in process memory.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// KafkaConfig backs the domain event publisher. No brokers means events are dropped.
type KafkaConfig struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"marketplace.events"`
}

type AWSConfig struct {
	Region          string `env:"REGION" envDefault:"ap-south-1"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	S3Bucket        string `env:"S3_BUCKET" envDefault:"shree-anna-provenance"`
	CloudFrontURL   string `env:"CLOUDFRONT_URL"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `env:"RPS" envDefault:"10"`
	Burst             int     `env:"BURST" envDefault:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

type WorkflowConfig struct {
	// MaxWriteRetries bounds the optimistic read-modify-write loop on a single aggregate.
	MaxWriteRetries     int  `env:"MAX_WRITE_RETRIES" envDefault:"5"`
	StrictTransitions   bool `env:"STRICT_TRANSITIONS" envDefault:"false"`
	IdempotencyTTLHours int  `env:"IDEMPOTENCY_TTL_HOURS" envDefault:"24"`
}

type I18nConfig struct {
	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == defaultJWTSecret && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Driver == "postgres" && c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.I18n.DefaultLocale != "en" && c.I18n.DefaultLocale != "hi" {
		return fmt.Errorf("unsupported default locale %q", c.I18n.DefaultLocale)
	}

	if c.Workflow.MaxWriteRetries < 1 {
		return fmt.Errorf("WORKFLOW_MAX_WRITE_RETRIES must be at least 1")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ListenAddr is the address the HTTP server binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}
