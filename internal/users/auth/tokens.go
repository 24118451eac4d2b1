// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// # Token Issuer

// AccessTokenSigner defines the contract for generating access tokens.
type AccessTokenSigner interface {
	GenerateAccessToken(subject sec.TokenSubject, timeToLive time.Duration) (string, error)
}

// TokenPair is what a successful login or refresh returns to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// OwnerCheck re-validates the owner of a refresh token during rotation. It
// returns the user to issue the new pair for.
type OwnerCheck func(ctx context.Context, userID string) (*User, error)

// TokenIssuer issues JWT access tokens and opaque, persisted refresh tokens.
type TokenIssuer struct {
	signer     AccessTokenSigner
	repository RefreshTokenRepository
	transactor Transactor
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates a [TokenIssuer].
func NewTokenIssuer(
	signer AccessTokenSigner,
	repository RefreshTokenRepository,
	transactor Transactor,
	accessTTL, refreshTTL time.Duration,
	now func() time.Time,
) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{
		signer:     signer,
		repository: repository,
		transactor: transactor,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}
}

// IssueAccessToken signs a short-lived JWT for user.
func (issuer *TokenIssuer) IssueAccessToken(user *User) (string, error) {
	token, err := issuer.signer.GenerateAccessToken(sec.TokenSubject{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}, issuer.accessTTL)
	if err != nil {
		return "", fmt.Errorf("auth_token_sign_failed: %w", err)
	}
	return token, nil
}

/*
IssueRefreshToken generates an opaque token and persists its hash.

Parameters:
  - context: context.Context
  - userID: string
  - meta: ClientMeta (device information stored with the token)

Returns:
  - string: The plaintext token, returned to the client only
  - error: Generation or storage failures
*/
func (issuer *TokenIssuer) IssueRefreshToken(context context.Context, userID string, meta ClientMeta) (string, error) {
	plaintext, err := sec.GenerateSecureToken(sec.RefreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("auth_refresh_token_generate_failed: %w", err)
	}

	now := issuer.now()
	token := &RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: sec.HashToken(plaintext),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		ExpiresAt: now.Add(issuer.refreshTTL),
		CreatedAt: now,
	}

	if err := issuer.repository.Create(context, token); err != nil {
		return "", fmt.Errorf("auth_refresh_token_create_failed: %w", err)
	}

	return plaintext, nil
}

// IssuePair issues an access token and a refresh token for user.
func (issuer *TokenIssuer) IssuePair(context context.Context, user *User, meta ClientMeta) (*TokenPair, error) {
	accessToken, err := issuer.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := issuer.IssueRefreshToken(context, user.ID, meta)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

/*
Rotate exchanges a refresh token for a new pair inside one transaction.

The old token is revoked first with a conditional update, so of two
concurrent rotations of the same token exactly one proceeds. The owner is then
re-checked with check before anything is issued.

Parameters:
  - ctx: context.Context
  - plaintext: string (the presented refresh token)
  - meta: ClientMeta
  - check: OwnerCheck

Returns:
  - *TokenPair: The new pair
  - string: The owner's ID, empty when the token was never valid
  - error: ErrInvalidRefreshToken or storage failures
*/
func (issuer *TokenIssuer) Rotate(ctx context.Context, plaintext string, meta ClientMeta, check OwnerCheck) (*TokenPair, string, error) {
	if plaintext == "" {
		return nil, "", ErrInvalidRefreshToken
	}

	var pair *TokenPair
	var ownerID string

	err := issuer.transactor.WithinTx(ctx, func(txCtx context.Context) error {
		revoked, err := issuer.repository.RevokeActive(txCtx, sec.HashToken(plaintext), issuer.now())
		if err != nil {
			return err
		}
		ownerID = revoked.UserID

		user, err := check(txCtx, revoked.UserID)
		if err != nil {
			return err
		}

		pair, err = issuer.IssuePair(txCtx, user, meta)
		return err
	})
	if err != nil {
		return nil, ownerID, err
	}

	return pair, ownerID, nil
}

// Revoke revokes a refresh token. Unknown and already revoked tokens are not
// an error. It returns the owner's ID when a token was revoked.
func (issuer *TokenIssuer) Revoke(context context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	revoked, err := issuer.repository.Revoke(context, sec.HashToken(plaintext), issuer.now())
	if err != nil {
		return "", fmt.Errorf("auth_refresh_token_revoke_failed: %w", err)
	}
	if revoked == nil {
		return "", nil
	}

	return revoked.UserID, nil
}

// RevokeAll revokes every refresh token issued to userID.
func (issuer *TokenIssuer) RevokeAll(context context.Context, userID string) error {
	if err := issuer.repository.RevokeAllForUser(context, userID, issuer.now()); err != nil {
		return fmt.Errorf("auth_refresh_token_revoke_all_failed: %w", err)
	}
	return nil
}

// RevokeOthers revokes every refresh token of userID except keep. An empty
// keep revokes them all.
func (issuer *TokenIssuer) RevokeOthers(context context.Context, userID, keep string) error {
	if keep == "" {
		return issuer.RevokeAll(context, userID)
	}

	if err := issuer.repository.RevokeOthersForUser(context, userID, sec.HashToken(keep), issuer.now()); err != nil {
		return fmt.Errorf("auth_refresh_token_revoke_others_failed: %w", err)
	}
	return nil
}
