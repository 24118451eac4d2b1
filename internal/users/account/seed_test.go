// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
	"github.com/taibuivan/yomira-auth/internal/users/usertest"
)

func TestEnsureAdmin_IsIdempotent(t *testing.T) {
	harness := usertest.NewHarness(t, usertest.Settings())
	seed := account.AdminSeed{Username: "admin", Email: "Admin@Example.com", Password: usertest.Password}

	first, created, err := harness.Accounts.EnsureAdmin(context.Background(), seed)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, sec.RoleAdmin, first.Role)
	assert.True(t, first.CanAuthenticate(harness.Clock.Now()))

	second, created, err := harness.Accounts.EnsureAdmin(context.Background(), seed)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	_, err = harness.Auth.Login(context.Background(), auth.LoginInput{Identifier: "admin@example.com", Password: usertest.Password})
	assert.NoError(t, err)
}

func TestEnsureAdmin_PromotesExistingAccount(t *testing.T) {
	harness := usertest.NewHarness(t, usertest.Settings())
	existing := harness.SeedUser(t, "admin", func(u *auth.User) {
		u.Email = "old-address@example.com"
		u.Status = auth.StatusPending
		u.IsVerified = false
	})

	admin, created, err := harness.Accounts.EnsureAdmin(context.Background(), account.AdminSeed{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "Другой!1Pass",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, admin.ID)

	stored := harness.Store.Users().Get(existing.ID)
	assert.Equal(t, sec.RoleAdmin, stored.Role)
	assert.Equal(t, auth.StatusActive, stored.Status)
	assert.True(t, stored.IsVerified)
	assert.Equal(t, existing.PasswordHash, stored.PasswordHash, "password is left alone")
}

func TestEnsureAdmin_RequiresCredentials(t *testing.T) {
	harness := usertest.NewHarness(t, usertest.Settings())

	_, _, err := harness.Accounts.EnsureAdmin(context.Background(), account.AdminSeed{Username: "admin", Email: "admin@example.com"})
	assert.Error(t, err)
	assert.Empty(t, harness.Store.Audit().Events())
}
