// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yomira-auth/internal/platform/database/schema"
	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
	"github.com/taibuivan/yomira-auth/internal/platform/postgres"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
	"github.com/taibuivan/yomira-auth/pkg/slice"
)

// likeEscaper quotes the LIKE wildcards of a search term.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// # Repository Implementation

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Postgres implementation for account administration.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
List returns a filtered, paginated slice of accounts and the total count.

Description: The total comes from COUNT(*) OVER() on the same query. A page
past the end has no row to carry it, so only then a separate count runs.

Parameters:
  - context: context.Context
  - filter: ListFilter (normalized pagination)

Returns:
  - []*auth.User: The page, newest first
  - int: Total count matching filters
  - error: Database execution errors
*/
func (repository *PostgresRepository) List(context context.Context, filter ListFilter) ([]*auth.User, int, error) {
	where, args := listConditions(filter)

	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM %s
		WHERE %s
		ORDER BY %s DESC, %s DESC
		LIMIT $%d OFFSET $%d`,
		auth.UserSelectColumns,
		schema.UserAccount.Table,
		where,
		schema.UserAccount.CreatedAt, schema.UserAccount.ID,
		len(args)+1, len(args)+2,
	)

	conn := postgres.Conn(context, repository.pool)

	rows, err := conn.Query(context, query, append(args, filter.Params.Limit, filter.Params.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to list accounts: %w", err)
	}
	defer rows.Close()

	users := []*auth.User{}
	total := 0

	for rows.Next() {
		user, err := auth.ScanUser(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: failed to scan account: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to iterate accounts: %w", err)
	}

	if len(users) == 0 && filter.Params.Offset() > 0 {
		countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, schema.UserAccount.Table, where)
		if err := conn.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("postgres: failed to count accounts: %w", err)
		}
	}

	return users, total, nil
}

// listConditions renders the WHERE clause for filter and its arguments.
func listConditions(filter ListFilter) (string, []any) {
	conditions := []string{"TRUE"}
	var args []any

	// Search across username and email
	if filter.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(%s ILIKE $%d OR %s ILIKE $%d)",
			schema.UserAccount.Username, len(args), schema.UserAccount.Email, len(args)))
	}

	// Status filtering
	if len(filter.Statuses) > 0 {
		args = append(args, slice.Map(filter.Statuses, func(status auth.Status) string { return string(status) }))
		conditions = append(conditions, fmt.Sprintf("%s = ANY($%d)", schema.UserAccount.Status, len(args)))
	}

	// Active flag filtering
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.UserAccount.IsActive, len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

/*
Update persists the mutable fields of an account.

Parameters:
  - context: context.Context
  - user: *auth.User

Returns:
  - error: auth.ErrDuplicateUser, apperr.NotFound or database errors
*/
func (repository *PostgresRepository) Update(context context.Context, user *auth.User) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5,
		    %s = $6, %s = $7, %s = $8, %s = $9, %s = $10,
		    %s = $11
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.Username, schema.UserAccount.Email, schema.UserAccount.FirstName, schema.UserAccount.LastName,
		schema.UserAccount.Status, schema.UserAccount.Role, schema.UserAccount.IsActive, schema.UserAccount.IsVerified,
		schema.UserAccount.ForcePasswordChange,
		schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	tag, err := postgres.Conn(context, repository.pool).Exec(context, query,
		user.ID,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		string(user.Status),
		string(user.Role),
		user.IsActive,
		user.IsVerified,
		user.ForcePasswordChange,
		user.UpdatedAt,
	)
	if err != nil {
		return auth.MapUserWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "User")
	}

	return nil
}

// SoftDelete deactivates the account. The row is kept for auditing.
func (repository *PostgresRepository) SoftDelete(context context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = FALSE, %s = now() WHERE %s = $1`,
		schema.UserAccount.Table, schema.UserAccount.IsActive, schema.UserAccount.UpdatedAt, schema.UserAccount.ID)

	tag, err := postgres.Conn(context, repository.pool).Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "User")
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "User")
	}

	return nil
}
