// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package usertest

import (
	"context"
	"time"

	"github.com/taibuivan/yomira-auth/internal/audit"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
)

// # One-Time Passcodes

// OTPRepository implements [auth.OTPRepository].
type OTPRepository struct {
	store *Store
}

var _ auth.OTPRepository = (*OTPRepository)(nil)

func (repository *OTPRepository) Create(_ context.Context, otp *auth.OTP) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.failure("otps.Create"); err != nil {
		return err
	}

	store.otps = append(store.otps, *otp)
	return nil
}

// Consume marks the newest matching code as used, like the Postgres store.
// Among codes created at the same instant the last one stored wins.
func (repository *OTPRepository) Consume(_ context.Context, email, code string, purpose auth.OTPPurpose, now time.Time) (*auth.OTP, error) {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.failure("otps.Consume"); err != nil {
		return nil, err
	}

	newest := -1
	for i, otp := range store.otps {
		owner, ok := store.users[otp.UserID]
		if !ok || owner.Email != email || !owner.IsActive {
			continue
		}
		if otp.Code != code || otp.Purpose != purpose || otp.Used || !otp.ExpiresAt.After(now) {
			continue
		}
		if newest < 0 || !otp.CreatedAt.Before(store.otps[newest].CreatedAt) {
			newest = i
		}
	}

	if newest < 0 {
		return nil, auth.ErrInvalidOrExpiredCode
	}

	store.otps[newest].Used = true
	consumed := store.otps[newest]
	return &consumed, nil
}

// Codes returns every stored code of userID for purpose, oldest first.
func (repository *OTPRepository) Codes(userID string, purpose auth.OTPPurpose) []auth.OTP {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	var codes []auth.OTP
	for _, otp := range store.otps {
		if otp.UserID == userID && otp.Purpose == purpose {
			codes = append(codes, otp)
		}
	}
	return codes
}

// # Refresh Tokens

// TokenRepository implements [auth.RefreshTokenRepository].
type TokenRepository struct {
	store *Store
}

var _ auth.RefreshTokenRepository = (*TokenRepository)(nil)

func (repository *TokenRepository) Create(_ context.Context, token *auth.RefreshToken) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.failure("tokens.Create"); err != nil {
		return err
	}

	store.tokens = append(store.tokens, *token)
	return nil
}

func (repository *TokenRepository) RevokeActive(_ context.Context, tokenHash string, now time.Time) (*auth.RefreshToken, error) {
	revoked, err := repository.revoke("tokens.RevokeActive", tokenHash, now, true)
	if err != nil {
		return nil, err
	}
	if revoked == nil {
		return nil, auth.ErrInvalidRefreshToken
	}
	return revoked, nil
}

func (repository *TokenRepository) Revoke(_ context.Context, tokenHash string, now time.Time) (*auth.RefreshToken, error) {
	return repository.revoke("tokens.Revoke", tokenHash, now, false)
}

func (repository *TokenRepository) revoke(op, tokenHash string, now time.Time, unexpiredOnly bool) (*auth.RefreshToken, error) {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.failure(op); err != nil {
		return nil, err
	}

	for i, token := range store.tokens {
		if token.TokenHash != tokenHash || token.Revoked {
			continue
		}
		if unexpiredOnly && !token.ExpiresAt.After(now) {
			continue
		}

		revokedAt := now
		store.tokens[i].Revoked = true
		store.tokens[i].RevokedAt = &revokedAt

		revoked := store.tokens[i]
		return &revoked, nil
	}

	return nil, nil
}

func (repository *TokenRepository) RevokeAllForUser(_ context.Context, userID string, now time.Time) error {
	return repository.revokeWhere("tokens.RevokeAllForUser", now, func(token auth.RefreshToken) bool {
		return token.UserID == userID
	})
}

func (repository *TokenRepository) RevokeOthersForUser(_ context.Context, userID, keepHash string, now time.Time) error {
	return repository.revokeWhere("tokens.RevokeOthersForUser", now, func(token auth.RefreshToken) bool {
		return token.UserID == userID && token.TokenHash != keepHash
	})
}

func (repository *TokenRepository) revokeWhere(op string, now time.Time, match func(auth.RefreshToken) bool) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.failure(op); err != nil {
		return err
	}

	for i, token := range store.tokens {
		if token.Revoked || !match(token) {
			continue
		}
		revokedAt := now
		store.tokens[i].Revoked = true
		store.tokens[i].RevokedAt = &revokedAt
	}
	return nil
}

// Active counts the unrevoked tokens of userID.
func (repository *TokenRepository) Active(userID string) int {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	count := 0
	for _, token := range store.tokens {
		if token.UserID == userID && !token.Revoked {
			count++
		}
	}
	return count
}

// # Audit Log

// AuditRepository implements [audit.Repository].
type AuditRepository struct {
	store *Store
}

var _ audit.Repository = (*AuditRepository)(nil)

func (repository *AuditRepository) Insert(_ context.Context, event *audit.Event) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.failure("audit.Insert"); err != nil {
		return err
	}

	store.events = append(store.events, *event)
	return nil
}

// Events returns the recorded events in insertion order.
func (repository *AuditRepository) Events() []audit.Event {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	return append([]audit.Event(nil), repository.store.events...)
}

// Kinds returns the kinds of the recorded events in insertion order.
func (repository *AuditRepository) Kinds() []audit.Kind {
	events := repository.Events()
	kinds := make([]audit.Kind, len(events))
	for i, event := range events {
		kinds[i] = event.Kind
	}
	return kinds
}

// Last returns the most recent event of kind, or nil.
func (repository *AuditRepository) Last(kind audit.Kind) *audit.Event {
	events := repository.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == kind {
			return &events[i]
		}
	}
	return nil
}
