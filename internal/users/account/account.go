// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles administration of registered users.

It lets administrators search, create, approve, update and soft-delete
accounts, and lets every user read and edit their own profile.

# Architecture

  - Entities: the [auth.User] aggregate, owned by the auth package.
  - Domain: Authorization per call through [sec.Authorize], with the actor
    reloaded from storage so a deactivated caller loses access immediately.
  - Security: Deleting or deactivating an account revokes its refresh tokens.
*/
package account

import (
	"context"

	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
	"github.com/taibuivan/yomira-auth/pkg/pagination"
)

// # Query & Input Types

// ListFilter narrows the user listing.
type ListFilter struct {
	// Search matches username or email, case-insensitively.
	Search   string
	Statuses []auth.Status

	// Active filters on the soft-delete flag. Nil lists both.
	Active *bool
	Params pagination.Params
}

// CreateInput holds a user created by another authenticated user.
//
// Status, Role and IsVerified are honoured for administrators only.
type CreateInput struct {
	Username   string
	Email      string
	FirstName  string
	LastName   string
	Password   string
	Status     *auth.Status
	Role       *sec.UserRole
	IsVerified *bool
	IP         string
}

// UpdateInput carries a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	// Profile fields
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string

	// Manage fields
	Status              *auth.Status
	Role                *sec.UserRole
	IsActive            *bool
	IsVerified          *bool
	ForcePasswordChange *bool

	IP string
}

// managesAccount reports whether the update touches administrator-only fields.
func (input UpdateInput) managesAccount() bool {
	return input.Status != nil || input.Role != nil || input.IsActive != nil ||
		input.IsVerified != nil || input.ForcePasswordChange != nil
}

// # Repository Contracts

// Repository defines the administrative persistence contract for accounts.
type Repository interface {
	/*
		List retrieves a page of accounts matching filter, newest first.

		Parameters:
		  - context: context.Context
		  - filter: ListFilter

		Returns:
		  - []*auth.User: The page
		  - int: Total matches across all pages
		  - error: Database errors
	*/
	List(context context.Context, filter ListFilter) ([]*auth.User, int, error)

	// Update persists the profile and manage fields of user.
	// Unique violations map to [auth.ErrDuplicateUser].
	Update(context context.Context, user *auth.User) error

	// SoftDelete clears the active flag.
	SoftDelete(context context.Context, id string) error
}

// SessionRevoker ends every refresh token of a user.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}
