// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yomira-auth/internal/platform/database/schema"
	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
	"github.com/taibuivan/yomira-auth/internal/platform/postgres"
)

// # User Repository

// UserSelectColumns is the column list matched by [ScanUser].
var UserSelectColumns = strings.Join(schema.UserAccount.Columns(), ", ")

// ScanUser hydrates a [User] from a row selected with [UserSelectColumns].
// Extra destinations receive any columns selected after the account columns.
func ScanUser(row pgx.Row, extra ...any) (*User, error) {
	user := &User{}
	dest := []any{
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.Status,
		&user.Role,
		&user.IsActive,
		&user.IsVerified,
		&user.FailedAttempts,
		&user.LockedUntil,
		&user.PasswordChangedAt,
		&user.ForcePasswordChange,
		&user.CreatedAt,
		&user.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return user, nil
}

// MapUserWriteError converts unique violations on users.account into
// [ErrDuplicateUser] and everything else through [dberr.Wrap].
func MapUserWriteError(err error) error {
	if dberr.IsUniqueViolation(err) {
		switch dberr.ConstraintName(err) {
		case schema.UserAccount.UsernameKey, schema.UserAccount.UsernameLowerKey:
			return ErrDuplicateUser.WithMessage("Username is already taken").WithCause(err)
		case schema.UserAccount.EmailKey:
			return ErrDuplicateUser.WithMessage("Email is already registered").WithCause(err)
		}
		return ErrDuplicateUser.WithCause(err)
	}
	return dberr.Wrap(err, "User")
}

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Create persists a new user record into the users.account table.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: ErrDuplicateUser on unique violations, or database errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	columns := schema.UserAccount.Columns()
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		schema.UserAccount.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	_, err := postgres.Conn(context, repository.pool).Exec(context, query,
		user.ID,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		string(user.Status),
		string(user.Role),
		user.IsActive,
		user.IsVerified,
		user.FailedAttempts,
		user.LockedUntil,
		user.PasswordChangedAt,
		user.ForcePasswordChange,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return MapUserWriteError(err)
	}

	return nil
}

// FindByID retrieves an account by primary key.
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	return repository.findOne(context, schema.UserAccount.ID+" = $1", id)
}

// FindByEmail retrieves an account by its normalized email.
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	return repository.findOne(context, schema.UserAccount.Email+" = $1", email)
}

/*
FindByIdentifier resolves a login identifier in a single query.

Description: The identifier matches either the username or the email. Email
is unique and lower-cased, so an email-shaped identifier can only hit one row.

Parameters:
  - context: context.Context
  - identifier: string (normalized)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByIdentifier(context context.Context, identifier string) (*User, error) {
	where := fmt.Sprintf("%s = $1 OR %s = $1", schema.UserAccount.Username, schema.UserAccount.Email)
	return repository.findOne(context, where, identifier)
}

func (repository *PostgresUserRepository) findOne(context context.Context, where string, args ...any) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s LIMIT 1`,
		UserSelectColumns, schema.UserAccount.Table, where)

	user, err := ScanUser(postgres.Conn(context, repository.pool).QueryRow(context, query, args...))
	if err != nil {
		return nil, dberr.Wrap(err, "User")
	}
	return user, nil
}

// ExistsByUsernameOrEmail reports whether either identifier is already taken.
// Usernames compare case-insensitively, matching account_username_lower_key.
func (repository *PostgresUserRepository) ExistsByUsernameOrEmail(context context.Context, username, email string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE lower(%s) = lower($1) OR %s = $2)`,
		schema.UserAccount.Table, schema.UserAccount.Username, schema.UserAccount.Email)

	var exists bool
	if err := postgres.Conn(context, repository.pool).QueryRow(context, query, username, email).Scan(&exists); err != nil {
		return false, dberr.Wrap(err, "User")
	}
	return exists, nil
}

// MarkVerified flags the account's email as verified.
func (repository *PostgresUserRepository) MarkVerified(context context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = TRUE, %s = now() WHERE %s = $1`,
		schema.UserAccount.Table, schema.UserAccount.IsVerified, schema.UserAccount.UpdatedAt, schema.UserAccount.ID)

	return repository.execOne(context, query, id)
}

/*
UpdatePassword stores a new hash and resets the credential counters.

Parameters:
  - context: context.Context
  - id: string
  - hash: string (bcrypt)
  - changedAt: time.Time

Returns:
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, id, hash string, changedAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = FALSE, %s = 0, %s = NULL, %s = now()
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.Password, schema.UserAccount.PasswordChangedAt, schema.UserAccount.ForcePasswordChange,
		schema.UserAccount.FailedAttempts, schema.UserAccount.LockedUntil, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	return repository.execOne(context, query, id, hash, changedAt)
}

/*
RecordFailedLogin increments the failed-login counter atomically.

Description: The increment and the lock decision are one UPDATE, so the row
lock serializes concurrent failures and none is lost.

Parameters:
  - context: context.Context
  - id: string
  - maxAttempts: int
  - lockedUntil: time.Time (applied when the new count reaches maxAttempts)

Returns:
  - int: Failed attempts after the update
  - *time.Time: The lock expiry after the update
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) RecordFailedLogin(context context.Context, id string, maxAttempts int, lockedUntil time.Time) (int, *time.Time, error) {
	query := fmt.Sprintf(`
		UPDATE %[1]s
		SET %[2]s = %[2]s + 1,
		    %[3]s = CASE WHEN %[2]s + 1 >= $2 THEN $3 ELSE %[3]s END,
		    %[4]s = now()
		WHERE %[5]s = $1
		RETURNING %[2]s, %[3]s`,
		schema.UserAccount.Table, schema.UserAccount.FailedAttempts, schema.UserAccount.LockedUntil,
		schema.UserAccount.UpdatedAt, schema.UserAccount.ID,
	)

	var attempts int
	var until *time.Time
	err := postgres.Conn(context, repository.pool).QueryRow(context, query, id, maxAttempts, lockedUntil).Scan(&attempts, &until)
	if err != nil {
		return 0, nil, dberr.Wrap(err, "User")
	}

	return attempts, until, nil
}

// ResetFailedLogins clears the counter and the lock.
func (repository *PostgresUserRepository) ResetFailedLogins(context context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = 0, %s = NULL, %s = now() WHERE %s = $1`,
		schema.UserAccount.Table, schema.UserAccount.FailedAttempts, schema.UserAccount.LockedUntil,
		schema.UserAccount.UpdatedAt, schema.UserAccount.ID)

	return repository.execOne(context, query, id)
}

// execOne runs an UPDATE that must touch exactly one account.
func (repository *PostgresUserRepository) execOne(context context.Context, query string, args ...any) error {
	tag, err := postgres.Conn(context, repository.pool).Exec(context, query, args...)
	if err != nil {
		return dberr.Wrap(err, "User")
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "User")
	}
	return nil
}
