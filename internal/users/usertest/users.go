// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package usertest

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
)

// UserRepository implements [auth.UserRepository] and [account.Repository].
type UserRepository struct {
	store *Store
}

var (
	_ auth.UserRepository = (*UserRepository)(nil)
	_ account.Repository  = (*UserRepository)(nil)
)

func notFound() error { return apperr.NotFound("User") }

// Seed stores user as-is, bypassing uniqueness checks.
func (repository *UserRepository) Seed(user *auth.User) {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	repository.store.users[user.ID] = *user
}

// Get returns a copy of the stored user, or nil.
func (repository *UserRepository) Get(id string) *auth.User {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	user, ok := repository.store.users[id]
	if !ok {
		return nil
	}
	return &user
}

// # auth.UserRepository

func (repository *UserRepository) Create(_ context.Context, user *auth.User) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.failure("users.Create"); err != nil {
		return err
	}
	if err := repository.checkUnique(user); err != nil {
		return err
	}

	store.users[user.ID] = *user
	return nil
}

// checkUnique mirrors the account_username_lower_key and account_email_key
// constraints. It must be called with mu held.
func (repository *UserRepository) checkUnique(user *auth.User) error {
	for id, existing := range repository.store.users {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(existing.Username, user.Username) {
			return auth.ErrDuplicateUser.WithMessage("Username is already taken")
		}
		if existing.Email == user.Email {
			return auth.ErrDuplicateUser.WithMessage("Email is already registered")
		}
	}
	return nil
}

func (repository *UserRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	return repository.findOne("users.FindByID", func(user auth.User) bool { return user.ID == id })
}

func (repository *UserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return repository.findOne("users.FindByEmail", func(user auth.User) bool { return user.Email == email })
}

func (repository *UserRepository) FindByIdentifier(_ context.Context, identifier string) (*auth.User, error) {
	return repository.findOne("users.FindByIdentifier", func(user auth.User) bool {
		return user.Username == identifier || user.Email == identifier
	})
}

func (repository *UserRepository) findOne(op string, match func(auth.User) bool) (*auth.User, error) {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.failure(op); err != nil {
		return nil, err
	}

	for _, user := range store.users {
		if match(user) {
			return &user, nil
		}
	}
	return nil, notFound()
}

func (repository *UserRepository) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.failure("users.ExistsByUsernameOrEmail"); err != nil {
		return false, err
	}

	for _, user := range store.users {
		if strings.EqualFold(user.Username, username) || user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (repository *UserRepository) MarkVerified(_ context.Context, id string) error {
	return repository.mutate("users.MarkVerified", id, func(user *auth.User) {
		user.IsVerified = true
	})
}

func (repository *UserRepository) UpdatePassword(_ context.Context, id, hash string, changedAt time.Time) error {
	return repository.mutate("users.UpdatePassword", id, func(user *auth.User) {
		user.PasswordHash = hash
		user.PasswordChangedAt = changedAt
		user.ForcePasswordChange = false
		user.FailedAttempts = 0
		user.LockedUntil = nil
	})
}

func (repository *UserRepository) RecordFailedLogin(_ context.Context, id string, maxAttempts int, lockedUntil time.Time) (int, *time.Time, error) {
	var attempts int
	var until *time.Time

	err := repository.mutate("users.RecordFailedLogin", id, func(user *auth.User) {
		user.FailedAttempts++
		if user.FailedAttempts >= maxAttempts {
			locked := lockedUntil
			user.LockedUntil = &locked
		}
		attempts, until = user.FailedAttempts, user.LockedUntil
	})
	if err != nil {
		return 0, nil, err
	}

	return attempts, until, nil
}

func (repository *UserRepository) ResetFailedLogins(_ context.Context, id string) error {
	return repository.mutate("users.ResetFailedLogins", id, func(user *auth.User) {
		user.FailedAttempts = 0
		user.LockedUntil = nil
	})
}

// mutate applies change to the stored user atomically.
func (repository *UserRepository) mutate(op, id string, change func(*auth.User)) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.failure(op); err != nil {
		return err
	}

	user, ok := store.users[id]
	if !ok {
		return notFound()
	}

	change(&user)
	store.users[id] = user
	return nil
}

// # account.Repository

func (repository *UserRepository) List(_ context.Context, filter account.ListFilter) ([]*auth.User, int, error) {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.failure("users.List"); err != nil {
		return nil, 0, err
	}

	search := strings.ToLower(filter.Search)
	matches := []*auth.User{}

	for _, user := range store.users {
		if search != "" &&
			!strings.Contains(strings.ToLower(user.Username), search) &&
			!strings.Contains(strings.ToLower(user.Email), search) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, user.Status) {
			continue
		}
		if filter.Active != nil && user.IsActive != *filter.Active {
			continue
		}
		matches = append(matches, &user)
	}

	slices.SortFunc(matches, func(a, b *auth.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	total := len(matches)
	start := min(filter.Params.Offset(), total)
	end := min(start+filter.Params.Limit, total)

	return matches[start:end], total, nil
}

func (repository *UserRepository) Update(_ context.Context, user *auth.User) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.failure("users.Update"); err != nil {
		return err
	}

	stored, ok := store.users[user.ID]
	if !ok {
		return notFound()
	}
	if err := repository.checkUnique(user); err != nil {
		return err
	}

	stored.Username = user.Username
	stored.Email = user.Email
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.Status = user.Status
	stored.Role = user.Role
	stored.IsActive = user.IsActive
	stored.IsVerified = user.IsVerified
	stored.ForcePasswordChange = user.ForcePasswordChange
	stored.UpdatedAt = user.UpdatedAt

	store.users[user.ID] = stored
	return nil
}

func (repository *UserRepository) SoftDelete(_ context.Context, id string) error {
	return repository.mutate("users.SoftDelete", id, func(user *auth.User) {
		user.IsActive = false
	})
}
