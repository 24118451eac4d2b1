// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Yomira auth HTTP API server.
//
// # Startup Sequence
//
//  1. Load configuration from the environment (and an optional .env file).
//  2. Initialize structured logger.
//  3. Register the tracer provider.
//  4. Connect to PostgreSQL (pgxpool) and run migrations.
//  5. Connect to Redis.
//  6. Build the notifier, audit recorder and token services.
//  7. Wire HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/yomira-auth/internal/api"
	"github.com/taibuivan/yomira-auth/internal/audit"
	"github.com/taibuivan/yomira-auth/internal/notify"
	"github.com/taibuivan/yomira-auth/internal/platform/config"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/middleware"
	"github.com/taibuivan/yomira-auth/internal/platform/migration"
	pgstore "github.com/taibuivan/yomira-auth/internal/platform/postgres"
	"github.com/taibuivan/yomira-auth/internal/platform/ratelimit"
	redisstore "github.com/taibuivan/yomira-auth/internal/platform/redis"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/platform/telemetry"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
)

func main() {
	// ── 1. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("startup failure", slog.String("context", "load configuration"), slog.Any("error", err))
		os.Exit(1)
	}

	// ── 2. Logger ─────────────────────────────────────────────────────────
	log := newLogger(cfg)
	slog.SetDefault(log)

	log.Info("[Yomira] service_initializing",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("notify_driver", cfg.Notify.Driver),
	)

	// Root context that lives for the whole process. Cancelling it stops the
	// background loops (rate-limit eviction).
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Use a 30s deadline so misconfiguration is caught quickly rather than
	// hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. Telemetry ──────────────────────────────────────────────────────
	shutdownTelemetry, err := telemetry.Setup(startupCtx, constants.AppName, constants.AppVersion, cfg.OTLPEndpoint)
	must(log, err, "set up telemetry")
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			log.Error("telemetry shutdown error", slog.Any("error", err))
		}
	}()

	// ── 4. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	if cfg.MigrateOnStart {
		must(log, migration.RunUp(cfg.MigrationPath, cfg.DatabaseURL, log), "run migrations")
	}

	// ── 5. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 6. Infrastructure Services ────────────────────────────────────────
	backend, closeBackend := newNotifier(cfg, log)
	defer closeBackend()

	// Deliveries run off the request path. Close drains the queue and runs
	// before the backend is closed (deferred calls run last-in first-out).
	dispatcher := notify.NewDispatcher(backend, cfg.Notify.QueueSize, log)
	defer dispatcher.Close()

	recorder := audit.NewRecorder(audit.NewPostgresRepository(pool), log)
	transactor := pgstore.NewTxManager(pool)

	signer, err := newTokenService(cfg)
	must(log, err, "initialize jwt service")

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	users := auth.NewUserRepository(pool)
	tokens := auth.NewTokenIssuer(
		signer,
		auth.NewRefreshTokenRepository(pool),
		transactor,
		cfg.JWT.AccessTTL,
		cfg.Security.RefreshTokenTTL,
		nil,
	)

	settings := auth.SettingsFromConfig(cfg)

	authService := auth.NewService(auth.Dependencies{
		Users:      users,
		OTPs:       auth.NewOTPRepository(pool),
		Transactor: transactor,
		Tokens:     tokens,
		Notifier:   dispatcher,
		Audit:      recorder,
	}, settings)

	accountService := account.NewService(account.Dependencies{
		Users:      users,
		Accounts:   account.NewPostgresRepository(pool),
		Sessions:   tokens,
		Transactor: transactor,
		Notifier:   dispatcher,
		Audit:      recorder,
	}, settings.BcryptCost)

	loginLimiter := ratelimit.NewFixedWindow(rdb, constants.RedisPrefixLoginLimit, cfg.Security.LoginRateLimit, cfg.Security.LoginRateWindow)

	// ── 8. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService, loginLimiter),
		Accounts:  account.NewHandler(accountService),
	}

	server := api.NewServer(rootCtx, api.Options{
		Port:        cfg.ServerPort,
		CORSOrigins: middleware.ParseOrigins(cfg.CORSOrigins),
		Development: cfg.IsDevelopment(),
	}, log, signer, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the JSON logger, or a text logger in development.
// DEBUG=true lowers the level to debug.
func newLogger(cfg *config.Config) *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Debug {
		options.Level = slog.LevelDebug
	}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, options)
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, options)
	}

	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// newNotifier selects the delivery backend from NOTIFY_DRIVER. The returned
// func releases the backend's resources.
func newNotifier(cfg *config.Config, log *slog.Logger) (notify.Notifier, func()) {
	switch cfg.Notify.Driver {
	case config.NotifyDriverSMTP:
		return notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}), func() {}

	case config.NotifyDriverKafka:
		notifier := notify.NewKafkaNotifier(notify.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			Username: cfg.Kafka.Username,
			Password: cfg.Kafka.Password,
		})
		return notifier, func() {
			if err := notifier.Close(); err != nil {
				log.Error("kafka writer close error", slog.Any("error", err))
			}
		}

	default:
		return notify.NewLogNotifier(log), func() {}
	}
}

// newTokenService prefers the RSA key pair and falls back to the shared secret.
func newTokenService(cfg *config.Config) (*sec.TokenService, error) {
	if cfg.UseRSA() {
		return sec.NewRSATokenService(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath, constants.AuthIssuer)
	}
	return sec.NewHMACTokenService(cfg.JWT.AccessSecret, constants.AuthIssuer)
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors must be returned
// and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
