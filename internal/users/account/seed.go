// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/taibuivan/yomira-auth/internal/audit"
	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
	"github.com/taibuivan/yomira-auth/pkg/normalize"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// seedActor is recorded as the creator of seeded accounts.
const seedActor = "seed"

// AdminSeed describes the bootstrap administrator.
type AdminSeed struct {
	Username string
	Email    string
	Password string
}

/*
EnsureAdmin makes sure an active, verified ADMIN account exists for seed.

Description: An account matching the email (or else the username) is promoted
in place and keeps its password. Otherwise a new account is created. Running
it twice leaves a single account.

Returns:
  - *auth.User: The administrator
  - bool: Whether a new account was created
  - error: Storage errors
*/
func (service *Service) EnsureAdmin(ctx context.Context, seed AdminSeed) (*auth.User, bool, error) {
	username := normalize.Username(seed.Username)
	email := normalize.Email(seed.Email)
	if username == "" || email == "" || seed.Password == "" {
		return nil, false, errors.New("account_service_seed_incomplete: username, email and password are required")
	}

	existing, err := service.users.FindByEmail(ctx, email)
	if apperr.IsNotFound(err) {
		existing, err = service.users.FindByIdentifier(ctx, username)
	}
	if err != nil && !apperr.IsNotFound(err) {
		return nil, false, fmt.Errorf("account_service_seed_lookup_failed: %w", err)
	}

	if existing != nil {
		promoted := *existing
		promoted.Role = sec.RoleAdmin
		promoted.Status = auth.StatusActive
		promoted.IsActive = true
		promoted.IsVerified = true
		promoted.UpdatedAt = service.now()

		if err := service.accounts.Update(ctx, &promoted); err != nil {
			return nil, false, fmt.Errorf("account_service_seed_promote_failed: %w", err)
		}
		return &promoted, false, nil
	}

	hashedPassword, err := service.hasher.Hash(seed.Password)
	if err != nil {
		return nil, false, fmt.Errorf("account_service_hash_failed: %w", err)
	}

	now := service.now()
	admin := &auth.User{
		ID:                uuid.New(),
		Username:          username,
		Email:             email,
		FirstName:         "System",
		LastName:          "Administrator",
		PasswordHash:      hashedPassword,
		Status:            auth.StatusActive,
		Role:              sec.RoleAdmin,
		IsActive:          true,
		IsVerified:        true,
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := service.users.Create(ctx, admin); err != nil {
		return nil, false, fmt.Errorf("account_service_seed_create_failed: %w", err)
	}

	service.record(ctx, audit.KindUserCreated, admin.ID, "", map[string]any{
		"username":  admin.Username,
		"email":     admin.Email,
		"createdBy": seedActor,
	})

	return admin, true, nil
}
