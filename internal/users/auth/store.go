// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # Repository Contracts

// UserRepository defines the persistence contract for user accounts.
//
// Lookups return an error matching [apperr.IsNotFound] when no row exists.
type UserRepository interface {
	LockoutRepository

	// Create persists a new account. Unique violations map to [ErrDuplicateUser].
	Create(ctx context.Context, user *User) error

	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByIdentifier resolves a username or an email in one query.
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)

	// ExistsByUsernameOrEmail reports whether either value is taken. The
	// username comparison ignores case.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	MarkVerified(ctx context.Context, id string) error

	// UpdatePassword stores hash, stamps changedAt, clears the force-change
	// flag and resets the lockout counters.
	UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error
}

// LockoutRepository holds the failed-login counters.
type LockoutRepository interface {
	// RecordFailedLogin increments the counter and sets lockedUntil when the
	// new count reaches maxAttempts, in one atomic statement. It returns the
	// values after the update.
	RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockedUntil time.Time) (int, *time.Time, error)

	// ResetFailedLogins clears the counter and the lock.
	ResetFailedLogins(ctx context.Context, id string) error
}

// OTPRepository defines the persistence contract for one-time passcodes.
type OTPRepository interface {
	Create(ctx context.Context, otp *OTP) error

	// Consume marks the newest unused, unexpired code matching email, code and
	// purpose as used and returns it. Codes of inactive accounts never match. It fails with [ErrInvalidOrExpiredCode]
	// when nothing matches. Concurrent calls consume a row at most once.
	Consume(ctx context.Context, email, code string, purpose OTPPurpose, now time.Time) (*OTP, error)
}

// RefreshTokenRepository defines the persistence contract for refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error

	// RevokeActive revokes the token only if it is unrevoked and unexpired at
	// now, returning the row. It fails with [ErrInvalidRefreshToken] otherwise.
	RevokeActive(ctx context.Context, tokenHash string, now time.Time) (*RefreshToken, error)

	// Revoke revokes the token if present. The returned row is nil when no
	// unrevoked token matched.
	Revoke(ctx context.Context, tokenHash string, now time.Time) (*RefreshToken, error)

	RevokeAllForUser(ctx context.Context, userID string, now time.Time) error

	// RevokeOthersForUser revokes every token of the user except keepHash.
	RevokeOthersForUser(ctx context.Context, userID, keepHash string, now time.Time) error
}

// Transactor runs fn inside a single database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
