// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command seed creates the bootstrap administrator and exits.
//
// It reads SEED_ADMIN_USERNAME, SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD on
// top of the regular server configuration. Running it again promotes the
// existing account instead of creating a second one.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/taibuivan/yomira-auth/internal/audit"
	"github.com/taibuivan/yomira-auth/internal/platform/config"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/migration"
	pgstore "github.com/taibuivan/yomira-auth/internal/platform/postgres"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("app", constants.AppName+"-seed"))

	cfg, err := config.Load()
	must(log, err, "load configuration")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer pool.Close()

	if cfg.MigrateOnStart {
		must(log, migration.RunUp(cfg.MigrationPath, cfg.DatabaseURL, log), "run migrations")
	}

	users := auth.NewUserRepository(pool)
	service := account.NewService(account.Dependencies{
		Users:      users,
		Accounts:   account.NewPostgresRepository(pool),
		Transactor: pgstore.NewTxManager(pool),
		Audit:      audit.NewRecorder(audit.NewPostgresRepository(pool), log),
	}, cfg.Security.BcryptCost)

	admin, created, err := service.EnsureAdmin(ctx, account.AdminSeed{
		Username: cfg.Seed.Username,
		Email:    cfg.Seed.Email,
		Password: cfg.Seed.Password,
	})
	must(log, err, "seed administrator")

	log.Info("admin_seeded",
		slog.String("user_id", admin.ID),
		slog.String("username", admin.Username),
		slog.Bool("created", created),
	)
}

func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("seed failure", slog.String("context", context), slog.Any("error", err))
		os.Exit(1)
	}
}
