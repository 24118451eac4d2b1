// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package usertest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/yomira-auth/internal/audit"
	"github.com/taibuivan/yomira-auth/internal/notify"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// Password satisfies the strong-password rule and is used by [Harness.SeedUser].
const Password = "Str0ng!Pass"

// Signing secret for test access tokens.
const Secret = "usertest-secret"

// # Notifications

// Outbox is a [notify.Notifier] that keeps every message.
type Outbox struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (outbox *Outbox) Send(_ context.Context, message notify.Message) error {
	outbox.mu.Lock()
	defer outbox.mu.Unlock()

	outbox.messages = append(outbox.messages, message)
	return nil
}

// Messages returns the sent messages in order.
func (outbox *Outbox) Messages() []notify.Message {
	outbox.mu.Lock()
	defer outbox.mu.Unlock()

	return append([]notify.Message(nil), outbox.messages...)
}

// Count returns how many messages of kind went to recipient.
func (outbox *Outbox) Count(to string, kind notify.Kind) int {
	count := 0
	for _, message := range outbox.Messages() {
		if message.To == to && message.Kind == kind {
			count++
		}
	}
	return count
}

// # Clock

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a [Clock] at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (clock *Clock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

// Advance moves the clock forward by d.
func (clock *Clock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(d)
}

// # Harness

// Harness wires the users domain over an in-memory [Store].
type Harness struct {
	Store    *Store
	Outbox   *Outbox
	Clock    *Clock
	Signer   *sec.TokenService
	Tokens   *auth.TokenIssuer
	Auth     *auth.Service
	Accounts *account.Service
	Settings auth.Settings
}

// Settings returns the production defaults with the cheapest bcrypt cost and
// no forgot-password padding.
func Settings() auth.Settings {
	return auth.Settings{
		BcryptCost:         bcrypt.MinCost,
		OTPTTL:             10 * time.Minute,
		LockoutMaxAttempts: 5,
		LockoutDuration:    15 * time.Minute,
		PasswordMaxAge:     90 * 24 * time.Hour,
		AdminEmail:         "admin@example.com",
	}
}

// NewHarness builds the services with settings.
func NewHarness(t testing.TB, settings auth.Settings) *Harness {
	t.Helper()

	store := NewStore()
	outbox := &Outbox{}
	clock := NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	signer, err := sec.NewHMACTokenService(Secret, constants.AuthIssuer)
	require.NoError(t, err)
	signer.WithClock(clock.Now)

	recorder := audit.NewRecorder(store.Audit(), slog.New(slog.NewTextHandler(io.Discard, nil))).WithClock(clock.Now)
	tokens := auth.NewTokenIssuer(signer, store.Tokens(), store, 15*time.Minute, 30*24*time.Hour, clock.Now)

	authService := auth.NewService(auth.Dependencies{
		Users:      store.Users(),
		OTPs:       store.OTPs(),
		Transactor: store,
		Tokens:     tokens,
		Notifier:   outbox,
		Audit:      recorder,
		Now:        clock.Now,
	}, settings)

	accountService := account.NewService(account.Dependencies{
		Users:      store.Users(),
		Accounts:   store.Users(),
		Sessions:   tokens,
		Transactor: store,
		Notifier:   outbox,
		Audit:      recorder,
		Now:        clock.Now,
	}, settings.BcryptCost)

	return &Harness{
		Store:    store,
		Outbox:   outbox,
		Clock:    clock,
		Signer:   signer,
		Tokens:   tokens,
		Auth:     authService,
		Accounts: accountService,
		Settings: settings,
	}
}

// SeedUser stores an active, verified USER with [Password]. Options adjust
// the record before it is stored.
func (harness *Harness) SeedUser(t testing.TB, username string, options ...func(*auth.User)) *auth.User {
	t.Helper()

	hash, err := sec.NewHasher(harness.Settings.BcryptCost).Hash(Password)
	require.NoError(t, err)

	now := harness.Clock.Now()
	user := &auth.User{
		ID:                uuid.New(),
		Username:          username,
		Email:             username + "@example.com",
		FirstName:         "Test",
		LastName:          "User",
		PasswordHash:      hash,
		Status:            auth.StatusActive,
		Role:              sec.RoleUser,
		IsActive:          true,
		IsVerified:        true,
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, option := range options {
		option(user)
	}

	harness.Store.Users().Seed(user)
	return user
}

// Admin makes a seeded user an administrator.
func Admin(user *auth.User) { user.Role = sec.RoleAdmin }

// LatestCode returns the newest code issued to userID for purpose.
func (harness *Harness) LatestCode(t testing.TB, userID string, purpose auth.OTPPurpose) string {
	t.Helper()

	codes := harness.Store.OTPs().Codes(userID, purpose)
	require.NotEmpty(t, codes, "no %s code issued", purpose)

	latest := codes[0]
	for _, otp := range codes[1:] {
		if !otp.CreatedAt.Before(latest.CreatedAt) {
			latest = otp
		}
	}
	return latest.Code
}

// AccessToken signs an access token for user the way login does.
func (harness *Harness) AccessToken(t testing.TB, user *auth.User) string {
	t.Helper()

	token, err := harness.Tokens.IssueAccessToken(user)
	require.NoError(t, err)
	return token
}
