// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/audit"
	"github.com/taibuivan/yomira-auth/internal/notify"
	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
	"github.com/taibuivan/yomira-auth/internal/users/usertest"
	"github.com/taibuivan/yomira-auth/pkg/pagination"
	"github.com/taibuivan/yomira-auth/pkg/pointer"
)

const ip = "198.51.100.4"

func setup(t *testing.T) (*usertest.Harness, *auth.User, *auth.User) {
	t.Helper()

	harness := usertest.NewHarness(t, usertest.Settings())
	admin := harness.SeedUser(t, "root", usertest.Admin)
	member := harness.SeedUser(t, "member")
	return harness, admin, member
}

func createdAt(offset time.Duration) func(*auth.User) {
	return func(u *auth.User) { u.CreatedAt = u.CreatedAt.Add(offset) }
}

// # Actor Resolution

func TestService_RejectsMissingOrInactiveActor(t *testing.T) {
	harness, _, member := setup(t)

	_, err := harness.Accounts.Get(context.Background(), "ghost", member.ID, ip)
	assert.ErrorIs(t, err, apperr.InvalidToken())

	inactive := harness.SeedUser(t, "gone", usertest.Admin, func(u *auth.User) { u.IsActive = false })
	_, _, err = harness.Accounts.List(context.Background(), inactive.ID, account.ListFilter{}, ip)
	assert.ErrorIs(t, err, apperr.InvalidToken())

	event := harness.Store.Audit().Last(audit.KindUnauthorizedAccess)
	require.NotNil(t, event)
	assert.Equal(t, inactive.ID, event.Details["subject"])
}

// # List

func TestList_AdminOnly(t *testing.T) {
	harness, _, member := setup(t)

	_, _, err := harness.Accounts.List(context.Background(), member.ID, account.ListFilter{}, ip)
	assert.ErrorIs(t, err, apperr.Forbidden(""))
}

func TestList_FiltersAndPaginates(t *testing.T) {
	harness, admin, _ := setup(t)
	harness.SeedUser(t, "pending-one", createdAt(time.Minute), func(u *auth.User) { u.Status = auth.StatusPending })
	harness.SeedUser(t, "pending-two", createdAt(2*time.Minute), func(u *auth.User) { u.Status = auth.StatusPending })
	harness.SeedUser(t, "rejected", createdAt(3*time.Minute), func(u *auth.User) { u.Status = auth.StatusRejected })
	harness.SeedUser(t, "deleted", createdAt(4*time.Minute), func(u *auth.User) { u.IsActive = false })

	list := func(filter account.ListFilter) ([]*auth.User, int) {
		t.Helper()
		users, total, err := harness.Accounts.List(context.Background(), admin.ID, filter, ip)
		require.NoError(t, err)
		return users, total
	}

	users, total := list(account.ListFilter{})
	assert.Equal(t, 6, total)
	assert.Equal(t, "deleted", users[0].Username, "newest first")

	users, total = list(account.ListFilter{Statuses: []auth.Status{auth.StatusPending}})
	assert.Equal(t, 2, total)
	assert.Equal(t, "pending-two", users[0].Username)

	_, total = list(account.ListFilter{Search: "PENDING"})
	assert.Equal(t, 2, total)

	_, total = list(account.ListFilter{Search: "rejected@example"})
	assert.Equal(t, 1, total)

	_, total = list(account.ListFilter{Active: pointer.To(false)})
	assert.Equal(t, 1, total)

	users, total = list(account.ListFilter{Params: pagination.Params{Page: 2, Limit: 4}})
	assert.Equal(t, 6, total)
	assert.Len(t, users, 2)

	users, _ = list(account.ListFilter{Params: pagination.Params{Page: 1, Limit: 1000}})
	assert.Len(t, users, 6, "limit is clamped, not rejected")
}

// # Get

func TestGet_Permissions(t *testing.T) {
	harness, admin, member := setup(t)
	other := harness.SeedUser(t, "other")

	user, err := harness.Accounts.Get(context.Background(), member.ID, member.ID, ip)
	require.NoError(t, err)
	assert.Equal(t, member.ID, user.ID)

	_, err = harness.Accounts.Get(context.Background(), member.ID, other.ID, ip)
	assert.ErrorIs(t, err, apperr.Forbidden(""))

	user, err = harness.Accounts.Get(context.Background(), admin.ID, other.ID, ip)
	require.NoError(t, err)
	assert.Equal(t, "other", user.Username)

	_, err = harness.Accounts.Get(context.Background(), admin.ID, "missing", ip)
	assert.True(t, apperr.IsNotFound(err))
}

// # Create

func TestCreate_NonAdminCreationsAreForcedPending(t *testing.T) {
	harness, _, member := setup(t)

	user, err := harness.Accounts.Create(context.Background(), member.ID, account.CreateInput{
		Username:   "invitee",
		Email:      "Invitee@Example.com",
		FirstName:  "In",
		LastName:   "Vitee",
		Password:   usertest.Password,
		Status:     pointer.To(auth.StatusActive),
		Role:       pointer.To(sec.RoleAdmin),
		IsVerified: pointer.To(true),
		IP:         ip,
	})
	require.NoError(t, err)

	assert.Equal(t, "invitee@example.com", user.Email)
	assert.Equal(t, auth.StatusPending, user.Status)
	assert.Equal(t, sec.RoleUser, user.Role)
	assert.False(t, user.IsVerified)
	assert.Empty(t, harness.Store.OTPs().Codes(user.ID, auth.PurposeVerification), "no code is issued")

	event := harness.Store.Audit().Last(audit.KindUserCreated)
	require.NotNil(t, event)
	assert.Equal(t, member.ID, event.Details["createdBy"])
}

func TestCreate_AdminChoosesState(t *testing.T) {
	harness, admin, _ := setup(t)

	user, err := harness.Accounts.Create(context.Background(), admin.ID, account.CreateInput{
		Username:   "staff",
		Email:      "staff@example.com",
		Password:   usertest.Password,
		Status:     pointer.To(auth.StatusActive),
		Role:       pointer.To(sec.RoleAdmin),
		IsVerified: pointer.To(true),
	})
	require.NoError(t, err)
	assert.Equal(t, auth.StatusActive, user.Status)
	assert.Equal(t, sec.RoleAdmin, user.Role)
	assert.True(t, user.IsVerified)

	_, err = harness.Auth.Login(context.Background(), auth.LoginInput{Identifier: "staff", Password: usertest.Password})
	assert.NoError(t, err)

	_, err = harness.Accounts.Create(context.Background(), admin.ID, account.CreateInput{
		Username: "staff",
		Email:    "another@example.com",
		Password: usertest.Password,
	})
	assert.ErrorIs(t, err, auth.ErrDuplicateUser)
}

// # Update

func TestUpdate_SelfProfile(t *testing.T) {
	harness, _, member := setup(t)

	user, err := harness.Accounts.Update(context.Background(), member.ID, member.ID, account.UpdateInput{
		Email:     pointer.To("New.Address@Example.com"),
		FirstName: pointer.To("  Mem   Ber "),
		IP:        ip,
	})
	require.NoError(t, err)
	assert.Equal(t, "new.address@example.com", user.Email)
	assert.Equal(t, "Mem Ber", user.FirstName)
	assert.Equal(t, "member", user.Username)

	event := harness.Store.Audit().Last(audit.KindEmailChanged)
	require.NotNil(t, event)
	assert.Equal(t, "member@example.com", event.Details["oldEmail"])
}

func TestUpdate_ManageFieldsNeedAdmin(t *testing.T) {
	harness, _, member := setup(t)
	other := harness.SeedUser(t, "other")

	_, err := harness.Accounts.Update(context.Background(), member.ID, member.ID, account.UpdateInput{
		Role: pointer.To(sec.RoleAdmin),
	})
	assert.ErrorIs(t, err, apperr.Forbidden(""))
	assert.Equal(t, sec.RoleUser, harness.Store.Users().Get(member.ID).Role)

	_, err = harness.Accounts.Update(context.Background(), member.ID, other.ID, account.UpdateInput{
		FirstName: pointer.To("Hijacked"),
	})
	assert.ErrorIs(t, err, apperr.Forbidden(""))
}

func TestUpdate_ApprovalSendsOutcome(t *testing.T) {
	harness, admin, _ := setup(t)
	approved := harness.SeedUser(t, "approved", func(u *auth.User) { u.Status = auth.StatusPending })
	rejected := harness.SeedUser(t, "rejected", func(u *auth.User) { u.Status = auth.StatusPending })

	_, err := harness.Accounts.Update(context.Background(), admin.ID, approved.ID, account.UpdateInput{
		Status: pointer.To(auth.StatusActive),
	})
	require.NoError(t, err)

	_, err = harness.Accounts.Update(context.Background(), admin.ID, rejected.ID, account.UpdateInput{
		Status: pointer.To(auth.StatusRejected),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, harness.Outbox.Count(approved.Email, notify.KindUserApproved))
	assert.Equal(t, 1, harness.Outbox.Count(rejected.Email, notify.KindUserRejected))

	event := harness.Store.Audit().Last(audit.KindUserStatusChanged)
	require.NotNil(t, event)
	assert.Equal(t, "pending", event.Details["oldStatus"])
	assert.Equal(t, "rejected", event.Details["newStatus"])
	assert.Equal(t, admin.ID, event.Details["changedBy"])

	_, err = harness.Auth.Login(context.Background(), auth.LoginInput{Identifier: "approved", Password: usertest.Password})
	assert.NoError(t, err)
}

func TestUpdate_AuditsEveryManagedField(t *testing.T) {
	harness, admin, member := setup(t)

	_, err := harness.Accounts.Update(context.Background(), admin.ID, member.ID, account.UpdateInput{
		Role:                pointer.To(sec.RoleAdmin),
		IsVerified:          pointer.To(false),
		ForcePasswordChange: pointer.To(true),
	})
	require.NoError(t, err)

	kinds := harness.Store.Audit().Kinds()
	assert.Contains(t, kinds, audit.KindUserRoleChanged)
	assert.Contains(t, kinds, audit.KindUserVerifiedStatusChanged)
	assert.NotContains(t, kinds, audit.KindUserStatusChanged)
	assert.True(t, harness.Store.Users().Get(member.ID).ForcePasswordChange)
}

func TestUpdate_DeactivationRevokesSessions(t *testing.T) {
	harness, admin, member := setup(t)

	_, err := harness.Auth.Login(context.Background(), auth.LoginInput{Identifier: "member", Password: usertest.Password})
	require.NoError(t, err)
	require.Equal(t, 1, harness.Store.Tokens().Active(member.ID))

	_, err = harness.Accounts.Update(context.Background(), admin.ID, member.ID, account.UpdateInput{
		IsActive: pointer.To(false),
	})
	require.NoError(t, err)

	assert.Zero(t, harness.Store.Tokens().Active(member.ID))
	assert.NotNil(t, harness.Store.Audit().Last(audit.KindUserActiveStatusChanged))
}

func TestUpdate_DuplicateAndMissing(t *testing.T) {
	harness, admin, member := setup(t)

	_, err := harness.Accounts.Update(context.Background(), member.ID, member.ID, account.UpdateInput{
		Email: pointer.To("ROOT@example.com"),
	})
	assert.ErrorIs(t, err, auth.ErrDuplicateUser)
	assert.Equal(t, "member@example.com", harness.Store.Users().Get(member.ID).Email)

	_, err = harness.Accounts.Update(context.Background(), member.ID, member.ID, account.UpdateInput{
		Username: pointer.To("Root"),
	})
	assert.ErrorIs(t, err, auth.ErrDuplicateUser)
	assert.Equal(t, "member", harness.Store.Users().Get(member.ID).Username)

	_, err = harness.Accounts.Update(context.Background(), admin.ID, "missing", account.UpdateInput{
		FirstName: pointer.To("Nobody"),
	})
	assert.True(t, apperr.IsNotFound(err))
}

// # Delete

func TestDelete_SoftDeletesAndSignsOut(t *testing.T) {
	harness, admin, member := setup(t)

	_, err := harness.Auth.Login(context.Background(), auth.LoginInput{Identifier: "member", Password: usertest.Password})
	require.NoError(t, err)

	require.NoError(t, harness.Accounts.Delete(context.Background(), admin.ID, member.ID, ip))

	stored := harness.Store.Users().Get(member.ID)
	require.NotNil(t, stored, "the row is kept")
	assert.False(t, stored.IsActive)
	assert.Zero(t, harness.Store.Tokens().Active(member.ID))

	event := harness.Store.Audit().Last(audit.KindUserSoftDeleted)
	require.NotNil(t, event)
	assert.Equal(t, admin.ID, event.Details["deletedBy"])

	_, err = harness.Auth.Login(context.Background(), auth.LoginInput{Identifier: "member", Password: usertest.Password})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = harness.Accounts.Get(context.Background(), member.ID, member.ID, ip)
	assert.ErrorIs(t, err, apperr.InvalidToken())
}

func TestDelete_Permissions(t *testing.T) {
	harness, admin, member := setup(t)

	assert.ErrorIs(t, harness.Accounts.Delete(context.Background(), member.ID, admin.ID, ip), apperr.Forbidden(""))
	assert.ErrorIs(t, harness.Accounts.Delete(context.Background(), member.ID, member.ID, ip), apperr.Forbidden(""))
	assert.ErrorIs(t, harness.Accounts.Delete(context.Background(), admin.ID, admin.ID, ip), account.ErrSelfDelete)
	assert.True(t, apperr.IsNotFound(harness.Accounts.Delete(context.Background(), admin.ID, "missing", ip)))

	assert.True(t, harness.Store.Users().Get(admin.ID).IsActive)
}
