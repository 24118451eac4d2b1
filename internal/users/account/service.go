// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/taibuivan/yomira-auth/internal/audit"
	"github.com/taibuivan/yomira-auth/internal/notify"
	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/ctxutil"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
	"github.com/taibuivan/yomira-auth/pkg/normalize"
	"github.com/taibuivan/yomira-auth/pkg/pointer"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// TracerName identifies spans emitted by this package.
const TracerName = "github.com/taibuivan/yomira-auth/internal/users/account"

// # Service Definition

// Dependencies are the collaborators injected into [Service].
type Dependencies struct {
	Users      auth.UserRepository
	Accounts   Repository
	Sessions   SessionRevoker
	Transactor auth.Transactor
	Notifier   notify.Notifier
	Audit      *audit.Recorder

	// Now overrides the clock. Defaults to [time.Now].
	Now func() time.Time
}

// Service implements user administration and self-service profile updates.
type Service struct {
	users      auth.UserRepository
	accounts   Repository
	sessions   SessionRevoker
	transactor auth.Transactor
	hasher     *sec.Hasher
	notifier   notify.Notifier
	audit      *audit.Recorder
	tracer     trace.Tracer
	now        func() time.Time
}

// NewService constructs a new account [Service].
func NewService(deps Dependencies, bcryptCost int) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		users:      deps.Users,
		accounts:   deps.Accounts,
		sessions:   deps.Sessions,
		transactor: deps.Transactor,
		hasher:     sec.NewHasher(bcryptCost),
		notifier:   deps.Notifier,
		audit:      deps.Audit,
		tracer:     otel.Tracer(TracerName),
		now:        now,
	}
}

// # Read Operations

/*
List returns a page of accounts.

Parameters:
  - ctx: context.Context
  - actorID: string (token subject)
  - filter: ListFilter
  - ip: string

Returns:
  - []*auth.User: The page
  - int: Total matches
  - error: InvalidToken, Forbidden or storage errors
*/
func (service *Service) List(ctx context.Context, actorID string, filter ListFilter, ip string) ([]*auth.User, int, error) {
	ctx, span := service.tracer.Start(ctx, "account.List")
	defer span.End()

	actor, err := service.resolveActor(ctx, actorID, ip)
	if err != nil {
		return nil, 0, err
	}
	if err := sec.Authorize(actor.Actor(), sec.ActionList, sec.Resource{}); err != nil {
		return nil, 0, err
	}

	filter.Params = filter.Params.Normalize()
	filter.Search = normalize.Identifier(filter.Search)

	users, total, err := service.accounts.List(ctx, filter)
	if err != nil {
		return nil, 0, service.fail(span, fmt.Errorf("account_service_list_failed: %w", err))
	}

	return users, total, nil
}

// Get returns one account. Non-administrators may only read their own.
func (service *Service) Get(ctx context.Context, actorID, id, ip string) (*auth.User, error) {
	ctx, span := service.tracer.Start(ctx, "account.Get")
	defer span.End()

	actor, err := service.resolveActor(ctx, actorID, ip)
	if err != nil {
		return nil, err
	}
	if err := sec.Authorize(actor.Actor(), sec.ActionRead, sec.Resource{OwnerID: id}); err != nil {
		return nil, err
	}

	return service.find(ctx, span, id)
}

// # Write Operations

/*
Create enrolls an account on behalf of the actor.

Description: No verification code is issued. Non-administrators always create
a pending, unverified USER; administrators may choose the status, role and
verification flag.

Parameters:
  - ctx: context.Context
  - actorID: string
  - input: CreateInput

Returns:
  - *auth.User: Created entity
  - error: ErrDuplicateUser, InvalidToken or storage errors
*/
func (service *Service) Create(ctx context.Context, actorID string, input CreateInput) (*auth.User, error) {
	ctx, span := service.tracer.Start(ctx, "account.Create")
	defer span.End()

	actor, err := service.resolveActor(ctx, actorID, input.IP)
	if err != nil {
		return nil, err
	}
	if err := sec.Authorize(actor.Actor(), sec.ActionCreate, sec.Resource{}); err != nil {
		return nil, err
	}

	username := normalize.Username(input.Username)
	email := normalize.Email(input.Email)

	taken, err := service.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, service.fail(span, fmt.Errorf("account_service_create_lookup_failed: %w", err))
	}
	if taken {
		return nil, auth.ErrDuplicateUser
	}

	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, service.fail(span, fmt.Errorf("account_service_hash_failed: %w", err))
	}

	now := service.now()
	user := &auth.User{
		ID:                uuid.New(),
		Username:          username,
		Email:             email,
		FirstName:         normalize.Name(input.FirstName),
		LastName:          normalize.Name(input.LastName),
		PasswordHash:      hashedPassword,
		Status:            auth.StatusPending,
		Role:              sec.RoleUser,
		IsActive:          true,
		IsVerified:        false,
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if actor.Actor().IsAdmin() {
		user.Status = pointer.Fallback(input.Status, user.Status)
		user.Role = pointer.Fallback(input.Role, user.Role)
		user.IsVerified = pointer.Fallback(input.IsVerified, user.IsVerified)
	}

	if err := service.users.Create(ctx, user); err != nil {
		if errors.Is(err, auth.ErrDuplicateUser) {
			return nil, err
		}
		return nil, service.fail(span, fmt.Errorf("account_service_create_failed: %w", err))
	}

	service.record(ctx, audit.KindUserCreated, user.ID, input.IP, map[string]any{
		"username":  user.Username,
		"email":     user.Email,
		"createdBy": actor.ID,
	})

	span.SetAttributes(attribute.String("user.id", user.ID))
	return user, nil
}

/*
Update applies a partial update to an account.

Description: Profile fields may be changed by the owner or an administrator.
Manage fields (status, role and the account flags) need an administrator.
Moving a pending account to active or rejected emails the outcome, and
deactivating an account revokes its refresh tokens.

Parameters:
  - ctx: context.Context
  - actorID: string
  - id: string
  - input: UpdateInput

Returns:
  - *auth.User: The updated entity
  - error: NotFound, Forbidden, ErrDuplicateUser, validation or storage errors
*/
func (service *Service) Update(ctx context.Context, actorID, id string, input UpdateInput) (*auth.User, error) {
	ctx, span := service.tracer.Start(ctx, "account.Update")
	defer span.End()

	actor, err := service.resolveActor(ctx, actorID, input.IP)
	if err != nil {
		return nil, err
	}
	if err := sec.Authorize(actor.Actor(), sec.ActionUpdate, sec.Resource{OwnerID: id}); err != nil {
		return nil, err
	}
	if input.managesAccount() {
		if err := sec.Authorize(actor.Actor(), sec.ActionManage, sec.Resource{OwnerID: id}); err != nil {
			return nil, err
		}
	}

	current, err := service.find(ctx, span, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	applyUpdate(&updated, input)
	updated.UpdatedAt = service.now()

	deactivated := current.IsActive && !updated.IsActive

	err = service.transactor.WithinTx(ctx, func(txCtx context.Context) error {
		if err := service.accounts.Update(txCtx, &updated); err != nil {
			return err
		}
		if deactivated {
			return service.sessions.RevokeAll(txCtx, updated.ID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateUser) || apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, service.fail(span, fmt.Errorf("account_service_update_failed: %w", err))
	}

	service.announceChanges(ctx, actor, current, &updated, input.IP)
	return &updated, nil
}

// applyUpdate copies the non-nil fields of input onto user.
func applyUpdate(user *auth.User, input UpdateInput) {
	if input.Username != nil {
		user.Username = normalize.Username(*input.Username)
	}
	if input.Email != nil {
		user.Email = normalize.Email(*input.Email)
	}
	if input.FirstName != nil {
		user.FirstName = normalize.Name(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = normalize.Name(*input.LastName)
	}
	user.Status = pointer.Fallback(input.Status, user.Status)
	user.Role = pointer.Fallback(input.Role, user.Role)
	user.IsActive = pointer.Fallback(input.IsActive, user.IsActive)
	user.IsVerified = pointer.Fallback(input.IsVerified, user.IsVerified)
	user.ForcePasswordChange = pointer.Fallback(input.ForcePasswordChange, user.ForcePasswordChange)
}

// announceChanges audits every changed sensitive field and sends the
// approval outcome email.
func (service *Service) announceChanges(ctx context.Context, actor *auth.User, before, after *auth.User, ip string) {
	changedBy := actor.ID

	if before.Email != after.Email {
		service.record(ctx, audit.KindEmailChanged, after.ID, ip, map[string]any{
			"oldEmail":  before.Email,
			"newEmail":  after.Email,
			"changedBy": changedBy,
		})
	}

	if before.Status != after.Status {
		service.record(ctx, audit.KindUserStatusChanged, after.ID, ip, map[string]any{
			"oldStatus": string(before.Status),
			"newStatus": string(after.Status),
			"changedBy": changedBy,
		})

		if before.Status == auth.StatusPending {
			switch after.Status {
			case auth.StatusActive:
				service.send(ctx, notify.UserApproved(after.Email))
			case auth.StatusRejected:
				service.send(ctx, notify.UserRejected(after.Email))
			}
		}
	}

	if before.IsActive != after.IsActive {
		service.record(ctx, audit.KindUserActiveStatusChanged, after.ID, ip, map[string]any{
			"isActive":  after.IsActive,
			"changedBy": changedBy,
		})
	}

	if before.IsVerified != after.IsVerified {
		service.record(ctx, audit.KindUserVerifiedStatusChanged, after.ID, ip, map[string]any{
			"isVerified": after.IsVerified,
			"changedBy":  changedBy,
		})
	}

	if before.Role != after.Role {
		service.record(ctx, audit.KindUserRoleChanged, after.ID, ip, map[string]any{
			"oldRole":   string(before.Role),
			"newRole":   string(after.Role),
			"changedBy": changedBy,
		})
	}
}

/*
Delete soft-deletes an account and signs it out everywhere.

Parameters:
  - ctx: context.Context
  - actorID: string
  - id: string
  - ip: string

Returns:
  - error: Forbidden (including self-deletion), NotFound or storage errors
*/
func (service *Service) Delete(ctx context.Context, actorID, id, ip string) error {
	ctx, span := service.tracer.Start(ctx, "account.Delete")
	defer span.End()

	actor, err := service.resolveActor(ctx, actorID, ip)
	if err != nil {
		return err
	}
	if err := sec.Authorize(actor.Actor(), sec.ActionDelete, sec.Resource{OwnerID: id}); err != nil {
		return err
	}
	if actor.ID == id {
		return ErrSelfDelete
	}

	target, err := service.find(ctx, span, id)
	if err != nil {
		return err
	}

	err = service.transactor.WithinTx(ctx, func(txCtx context.Context) error {
		if err := service.accounts.SoftDelete(txCtx, target.ID); err != nil {
			return err
		}
		return service.sessions.RevokeAll(txCtx, target.ID)
	})
	if err != nil {
		if apperr.IsNotFound(err) {
			return err
		}
		return service.fail(span, fmt.Errorf("account_service_delete_failed: %w", err))
	}

	service.record(ctx, audit.KindUserSoftDeleted, target.ID, ip, map[string]any{
		"username":  target.Username,
		"deletedBy": actor.ID,
	})

	return nil
}

// # Helpers

// resolveActor reloads the caller. A token that outlived its account is
// treated as invalid.
func (service *Service) resolveActor(ctx context.Context, actorID, ip string) (*auth.User, error) {
	actor, err := service.users.FindByID(ctx, actorID)
	if err != nil && !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("account_service_actor_lookup_failed: %w", err)
	}

	if actor == nil || !actor.IsActive {
		service.record(ctx, audit.KindUnauthorizedAccess, "", ip, map[string]any{
			"subject": actorID,
		})
		return nil, apperr.InvalidToken()
	}

	return actor, nil
}

func (service *Service) find(ctx context.Context, span trace.Span, id string) (*auth.User, error) {
	user, err := service.users.FindByID(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, service.fail(span, fmt.Errorf("account_service_find_failed: %w", err))
	}
	return user, nil
}

func (service *Service) send(ctx context.Context, message notify.Message) {
	if service.notifier == nil {
		return
	}
	if err := service.notifier.Send(ctx, message); err != nil {
		ctxutil.GetLogger(ctx).Warn("notification_enqueue_failed",
			slog.String("kind", string(message.Kind)),
			slog.Any("error", err),
		)
	}
}

func (service *Service) record(ctx context.Context, kind audit.Kind, userID, ip string, details map[string]any) {
	if service.audit == nil {
		return
	}
	service.audit.Record(ctx, kind, userID, ip, details)
}

func (service *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
