// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, with 'joho/godotenv' loading an optional .env file beforehand for
local development.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Once loaded, configuration is read-only and passed to components through
their constructors.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Notification drivers accepted by NOTIFY_DRIVER.
const (
	NotifyDriverLog   = "log"
	NotifyDriverSMTP  = "smtp"
	NotifyDriverKafka = "kafka"
)

// # Configuration Schema

// Config holds all runtime configuration for the auth API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// MigrationPath is the source URL of the SQL migrations directory.
	MigrationPath  string `env:"MIGRATION_PATH"   envDefault:"file://migrations"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	JWT      JWTConfig      `envPrefix:"JWT_"`
	Security SecurityConfig
	Notify   NotifyConfig `envPrefix:"NOTIFY_"`
	SMTP     SMTPConfig   `envPrefix:"SMTP_"`
	Kafka    KafkaConfig  `envPrefix:"KAFKA_"`
	Seed     SeedConfig   `envPrefix:"SEED_ADMIN_"`

	// AdminEmail receives new-signup notices. Empty disables them.
	AdminEmail string `env:"ADMIN_EMAIL"`

	// OTLPEndpoint enables tracing when set.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Cross-Origin Resource Sharing
	CORSOrigins string `env:"CORS_ORIGINS"`
}

// JWTConfig selects the access-token signing material.
// RSA key paths take precedence over the shared secret.
type JWTConfig struct {
	AccessSecret   string        `env:"ACCESS_SECRET"`
	PrivateKeyPath string        `env:"PRIVATE_KEY_PATH"`
	PublicKeyPath  string        `env:"PUBLIC_KEY_PATH"`
	AccessTTL      time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
}

// SecurityConfig carries the credential lifecycle policy.
type SecurityConfig struct {
	RefreshTokenTTL          time.Duration `env:"REFRESH_TOKEN_TTL"           envDefault:"720h"`
	OTPTTL                   time.Duration `env:"OTP_TTL"                     envDefault:"10m"`
	BcryptCost               int           `env:"BCRYPT_COST"                 envDefault:"12"`
	LockoutMaxAttempts       int           `env:"LOCKOUT_MAX_ATTEMPTS"        envDefault:"5"`
	LockoutDuration          time.Duration `env:"LOCKOUT_DURATION"            envDefault:"15m"`
	PasswordMaxAge           time.Duration `env:"PASSWORD_MAX_AGE"            envDefault:"2160h"`
	ForgotPasswordMinLatency time.Duration `env:"FORGOT_PASSWORD_MIN_LATENCY" envDefault:"500ms"`
	LoginRateLimit           int           `env:"LOGIN_RATE_LIMIT"            envDefault:"5"`
	LoginRateWindow          time.Duration `env:"LOGIN_RATE_WINDOW"           envDefault:"15m"`
}

// NotifyConfig selects the notification backend.
type NotifyConfig struct {
	Driver    string `env:"DRIVER"     envDefault:"log"`
	QueueSize int    `env:"QUEUE_SIZE" envDefault:"256"`
}

// SMTPConfig is used when NOTIFY_DRIVER=smtp.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

// KafkaConfig is used when NOTIFY_DRIVER=kafka.
type KafkaConfig struct {
	Brokers  []string `env:"BROKERS" envSeparator:","`
	Topic    string   `env:"TOPIC"   envDefault:"auth.notifications"`
	Username string   `env:"USERNAME"`
	Password string   `env:"PASSWORD"`
}

// SeedConfig describes the administrator created by cmd/seed.
type SeedConfig struct {
	Username string `env:"USERNAME" envDefault:"admin"`
	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
}

// # Configuration Loading

// Load reads an optional .env file and parses environment variables into a [Config].
func Load() (*Config, error) {

	// Variables already present in the environment win over the file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read .env file: %w", err)
	}

	return Parse()
}

// Parse maps the current environment into a [Config] and validates it.
func Parse() (*Config, error) {
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field rules that struct tags cannot express.
func (c *Config) Validate() error {
	if c.JWT.AccessSecret == "" && (c.JWT.PrivateKeyPath == "" || c.JWT.PublicKeyPath == "") {
		return errors.New("config: JWT_ACCESS_SECRET or both JWT key paths must be set")
	}

	switch c.Notify.Driver {
	case NotifyDriverLog:
	case NotifyDriverSMTP:
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			return errors.New("config: SMTP_HOST and SMTP_FROM are required for the smtp driver")
		}
	case NotifyDriverKafka:
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("config: KAFKA_BROKERS is required for the kafka driver")
		}
	default:
		return fmt.Errorf("config: unknown NOTIFY_DRIVER %q", c.Notify.Driver)
	}

	if c.Security.LockoutMaxAttempts < 1 {
		return errors.New("config: LOCKOUT_MAX_ATTEMPTS must be at least 1")
	}

	return nil
}

// UseRSA reports whether access tokens are signed with the RSA key pair.
func (c *Config) UseRSA() bool {
	return c.JWT.PrivateKeyPath != "" && c.JWT.PublicKeyPath != ""
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
