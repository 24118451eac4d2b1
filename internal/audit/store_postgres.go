// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yomira-auth/internal/platform/database/schema"
	"github.com/taibuivan/yomira-auth/internal/platform/postgres"
)

// PostgresRepository implements [Repository] on system.auditlog.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates the audit store.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Insert appends an event.

Parameters:
  - context: context.Context
  - event: *Event (Details is stored as JSONB)

Returns:
  - error: Database execution failure
*/
func (repository *PostgresRepository) Insert(context context.Context, event *Event) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		schema.SystemAuditLog.Table,
		schema.SystemAuditLog.ID, schema.SystemAuditLog.UserID, schema.SystemAuditLog.Event,
		schema.SystemAuditLog.Details, schema.SystemAuditLog.IPAddress, schema.SystemAuditLog.CreatedAt,
	)

	details := event.Details
	if details == nil {
		details = map[string]any{}
	}

	_, err := postgres.Conn(context, repository.pool).Exec(context, query,
		event.ID,
		event.UserID,
		string(event.Kind),
		details,
		event.IP,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_audit_repo_insert_failed: %w", err)
	}

	return nil
}
