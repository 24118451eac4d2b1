// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yomira-auth/internal/platform/database/schema"
	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
	"github.com/taibuivan/yomira-auth/internal/platform/postgres"
)

// # OTP Repository

// PostgresOTPRepository implements [OTPRepository] on users.otp.
type PostgresOTPRepository struct {
	pool *pgxpool.Pool
}

// NewOTPRepository creates the OTP store.
func NewOTPRepository(pool *pgxpool.Pool) *PostgresOTPRepository {
	return &PostgresOTPRepository{pool: pool}
}

// Create persists an unused code.
func (repository *PostgresOTPRepository) Create(context context.Context, otp *OTP) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)`,
		schema.UserOTP.Table,
		schema.UserOTP.ID, schema.UserOTP.UserID, schema.UserOTP.Code, schema.UserOTP.Type,
		schema.UserOTP.ExpiresAt, schema.UserOTP.Used, schema.UserOTP.CreatedAt,
	)

	_, err := postgres.Conn(context, repository.pool).Exec(context, query,
		otp.ID, otp.UserID, otp.Code, string(otp.Purpose), otp.ExpiresAt, otp.CreatedAt)
	if err != nil {
		return dberr.Wrap(err, "User")
	}

	return nil
}

/*
Consume marks the newest matching code of an active account as used.

Description: The candidate row is picked and locked in the sub-select; the
outer "used = FALSE" guard makes a second consumer update nothing. SKIP LOCKED
lets a concurrent consumer fall through to "no match" instead of waiting.

Parameters:
  - context: context.Context
  - email: string
  - code: string
  - purpose: OTPPurpose
  - now: time.Time

Returns:
  - *OTP: The consumed row
  - error: ErrInvalidOrExpiredCode or database errors
*/
func (repository *PostgresOTPRepository) Consume(context context.Context, email, code string, purpose OTPPurpose, now time.Time) (*OTP, error) {
	query := fmt.Sprintf(`
		UPDATE %[1]s
		SET %[2]s = TRUE
		WHERE %[3]s = (
			SELECT o.%[3]s
			FROM %[1]s o
			JOIN %[4]s a ON a.%[5]s = o.%[6]s
			WHERE a.%[7]s = $1
			  AND a.%[12]s = TRUE
			  AND o.%[8]s = $2
			  AND o.%[9]s = $3
			  AND o.%[2]s = FALSE
			  AND o.%[10]s > $4
			ORDER BY o.%[11]s DESC
			LIMIT 1
			FOR UPDATE OF o SKIP LOCKED
		) AND %[2]s = FALSE
		RETURNING %[3]s, %[6]s, %[8]s, %[9]s, %[10]s, %[2]s, %[11]s`,
		schema.UserOTP.Table, schema.UserOTP.Used, schema.UserOTP.ID,
		schema.UserAccount.Table, schema.UserAccount.ID, schema.UserOTP.UserID,
		schema.UserAccount.Email, schema.UserOTP.Code, schema.UserOTP.Type,
		schema.UserOTP.ExpiresAt, schema.UserOTP.CreatedAt,
		schema.UserAccount.IsActive,
	)

	otp := &OTP{}
	err := postgres.Conn(context, repository.pool).QueryRow(context, query, email, code, string(purpose), now).Scan(
		&otp.ID,
		&otp.UserID,
		&otp.Code,
		&otp.Purpose,
		&otp.ExpiresAt,
		&otp.Used,
		&otp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidOrExpiredCode
		}
		return nil, dberr.Wrap(err, "Code")
	}

	return otp, nil
}

// # Refresh Token Repository

// PostgresRefreshTokenRepository implements [RefreshTokenRepository] on
// users.refreshtoken.
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepository creates the refresh token store.
func NewRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

// Create persists a hashed refresh token.
func (repository *PostgresRefreshTokenRepository) Create(context context.Context, token *RefreshToken) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`,
		schema.UserRefreshToken.Table,
		schema.UserRefreshToken.ID, schema.UserRefreshToken.UserID, schema.UserRefreshToken.TokenHash,
		schema.UserRefreshToken.IPAddress, schema.UserRefreshToken.UserAgent, schema.UserRefreshToken.Revoked,
		schema.UserRefreshToken.ExpiresAt, schema.UserRefreshToken.CreatedAt,
	)

	_, err := postgres.Conn(context, repository.pool).Exec(context, query,
		token.ID, token.UserID, token.TokenHash, token.IPAddress, token.UserAgent, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return dberr.Wrap(err, "Refresh token")
	}

	return nil
}

// RevokeActive revokes an unrevoked, unexpired token and returns it.
func (repository *PostgresRefreshTokenRepository) RevokeActive(context context.Context, tokenHash string, now time.Time) (*RefreshToken, error) {
	where := fmt.Sprintf("%s = $1 AND %s = FALSE AND %s > $2",
		schema.UserRefreshToken.TokenHash, schema.UserRefreshToken.Revoked, schema.UserRefreshToken.ExpiresAt)

	token, err := repository.revokeReturning(context, where, tokenHash, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, dberr.Wrap(err, "Refresh token")
	}

	return token, nil
}

// Revoke revokes the token if it is still unrevoked. It returns nil, nil when
// nothing matched.
func (repository *PostgresRefreshTokenRepository) Revoke(context context.Context, tokenHash string, now time.Time) (*RefreshToken, error) {
	where := fmt.Sprintf("%s = $1 AND %s = FALSE",
		schema.UserRefreshToken.TokenHash, schema.UserRefreshToken.Revoked)

	token, err := repository.revokeReturning(context, where, tokenHash, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dberr.Wrap(err, "Refresh token")
	}

	return token, nil
}

// revokeReturning flips revoked on the row selected by where. $1 and $2 are
// bound to the token hash and now; where must reference $1 and may use $2.
func (repository *PostgresRefreshTokenRepository) revokeReturning(context context.Context, where string, tokenHash string, now time.Time) (*RefreshToken, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = TRUE, %s = $2::timestamptz
		WHERE %s
		RETURNING %s, %s, %s, %s, %s, %s, %s, %s, %s`,
		schema.UserRefreshToken.Table,
		schema.UserRefreshToken.Revoked, schema.UserRefreshToken.RevokedAt,
		where,
		schema.UserRefreshToken.ID, schema.UserRefreshToken.UserID, schema.UserRefreshToken.TokenHash,
		schema.UserRefreshToken.IPAddress, schema.UserRefreshToken.UserAgent, schema.UserRefreshToken.Revoked,
		schema.UserRefreshToken.ExpiresAt, schema.UserRefreshToken.RevokedAt, schema.UserRefreshToken.CreatedAt,
	)

	token := &RefreshToken{}
	err := postgres.Conn(context, repository.pool).QueryRow(context, query, tokenHash, now).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.IPAddress,
		&token.UserAgent,
		&token.Revoked,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return token, nil
}

// RevokeAllForUser revokes every outstanding token of the user.
func (repository *PostgresRefreshTokenRepository) RevokeAllForUser(context context.Context, userID string, now time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = TRUE, %s = $2 WHERE %s = $1 AND %s = FALSE`,
		schema.UserRefreshToken.Table, schema.UserRefreshToken.Revoked, schema.UserRefreshToken.RevokedAt,
		schema.UserRefreshToken.UserID, schema.UserRefreshToken.Revoked)

	if _, err := postgres.Conn(context, repository.pool).Exec(context, query, userID, now); err != nil {
		return dberr.Wrap(err, "Refresh token")
	}
	return nil
}

// RevokeOthersForUser revokes every outstanding token of the user except keepHash.
func (repository *PostgresRefreshTokenRepository) RevokeOthersForUser(context context.Context, userID, keepHash string, now time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = TRUE, %s = $2 WHERE %s = $1 AND %s = FALSE AND %s <> $3`,
		schema.UserRefreshToken.Table, schema.UserRefreshToken.Revoked, schema.UserRefreshToken.RevokedAt,
		schema.UserRefreshToken.UserID, schema.UserRefreshToken.Revoked, schema.UserRefreshToken.TokenHash)

	if _, err := postgres.Conn(context, repository.pool).Exec(context, query, userID, now, keepHash); err != nil {
		return dberr.Wrap(err, "Refresh token")
	}
	return nil
}
