// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

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
	"github.com/taibuivan/yomira-auth/internal/platform/config"
	"github.com/taibuivan/yomira-auth/internal/platform/ctxutil"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/pkg/normalize"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// TracerName identifies spans emitted by this package.
const TracerName = "github.com/taibuivan/yomira-auth/internal/users/auth"

// # Contracts & Types

// Settings is the credential policy applied by [Service].
type Settings struct {
	BcryptCost               int
	OTPTTL                   time.Duration
	LockoutMaxAttempts       int
	LockoutDuration          time.Duration
	PasswordMaxAge           time.Duration
	ForgotPasswordMinLatency time.Duration

	// AdminEmail receives new-signup notices. Empty disables them.
	AdminEmail string
}

// SettingsFromConfig extracts the policy from the loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		BcryptCost:               cfg.Security.BcryptCost,
		OTPTTL:                   cfg.Security.OTPTTL,
		LockoutMaxAttempts:       cfg.Security.LockoutMaxAttempts,
		LockoutDuration:          cfg.Security.LockoutDuration,
		PasswordMaxAge:           cfg.Security.PasswordMaxAge,
		ForgotPasswordMinLatency: cfg.Security.ForgotPasswordMinLatency,
		AdminEmail:               cfg.AdminEmail,
	}
}

// Dependencies are the collaborators injected into [Service].
type Dependencies struct {
	Users      UserRepository
	OTPs       OTPRepository
	Transactor Transactor
	Tokens     *TokenIssuer
	Notifier   notify.Notifier
	Audit      *audit.Recorder

	// Now overrides the clock. Defaults to [time.Now].
	Now func() time.Time
}

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, lockout,
// OTP or token handling must be reviewed by the security team.
type Service struct {
	users      UserRepository
	transactor Transactor
	otp        *OTPEngine
	tokens     *TokenIssuer
	lockout    *LockoutPolicy
	hasher     *sec.Hasher
	notifier   notify.Notifier
	audit      *audit.Recorder
	tracer     trace.Tracer
	settings   Settings
	now        func() time.Time
}

// NewService constructs a new [Service].
func NewService(deps Dependencies, settings Settings) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		users:      deps.Users,
		transactor: deps.Transactor,
		otp:        NewOTPEngine(deps.OTPs, settings.OTPTTL, now),
		tokens:     deps.Tokens,
		lockout:    NewLockoutPolicy(deps.Users, settings.LockoutMaxAttempts, settings.LockoutDuration, now),
		hasher:     sec.NewHasher(settings.BcryptCost),
		notifier:   deps.Notifier,
		audit:      deps.Audit,
		tracer:     otel.Tracer(TracerName),
		settings:   settings,
		now:        now,
	}
}

// # Registration Flow

// SignUpInput holds the data required to enroll a new member.
type SignUpInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	IP        string
}

/*
SignUp creates a pending account and emails a verification code.

Description: The account starts with status pending, unverified and role USER.
The administrator is told a registration is waiting for review.

Parameters:
  - ctx: context.Context
  - input: SignUpInput

Returns:
  - *User: Created entity
  - error: ErrDuplicateUser or storage errors
*/
func (service *Service) SignUp(ctx context.Context, input SignUpInput) (*User, error) {
	ctx, span := service.tracer.Start(ctx, "auth.SignUp")
	defer span.End()

	username := normalize.Username(input.Username)
	email := normalize.Email(input.Email)

	// Pre-check for a friendly error. The unique indexes still decide races.
	taken, err := service.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, service.fail(span, fmt.Errorf("auth_service_signup_lookup_failed: %w", err))
	}
	if taken {
		return nil, ErrDuplicateUser
	}

	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, service.fail(span, fmt.Errorf("auth_service_hash_failed: %w", err))
	}

	now := service.now()
	user := &User{
		ID:                uuid.New(),
		Username:          username,
		Email:             email,
		FirstName:         normalize.Name(input.FirstName),
		LastName:          normalize.Name(input.LastName),
		PasswordHash:      hashedPassword,
		Status:            StatusPending,
		Role:              sec.RoleUser,
		IsActive:          true,
		IsVerified:        false,
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var code string
	err = service.transactor.WithinTx(ctx, func(txCtx context.Context) error {
		if err := service.users.Create(txCtx, user); err != nil {
			return err
		}
		code, err = service.otp.Issue(txCtx, user.ID, PurposeVerification)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return nil, ErrDuplicateUser
		}
		return nil, service.fail(span, fmt.Errorf("auth_service_signup_failed: %w", err))
	}

	service.send(ctx, notify.OTPCode(user.Email, code, notify.PurposeVerification, service.otp.TTL()))
	if service.settings.AdminEmail != "" {
		service.send(ctx, notify.AdminNewSignup(service.settings.AdminEmail, user.Username, user.Email))
	}

	service.record(ctx, audit.KindUserCreated, user.ID, input.IP, map[string]any{
		"username": user.Username,
		"email":    user.Email,
	})

	span.SetAttributes(attribute.String("user.id", user.ID))
	return user, nil
}

/*
VerifyOTP consumes a verification code and marks the account verified.

Parameters:
  - ctx: context.Context
  - email: string
  - code: string
  - ip: string

Returns:
  - error: ErrInvalidOrExpiredCode or storage errors
*/
func (service *Service) VerifyOTP(ctx context.Context, email, code, ip string) error {
	ctx, span := service.tracer.Start(ctx, "auth.VerifyOTP")
	defer span.End()

	email = normalize.Email(email)

	var userID string
	err := service.transactor.WithinTx(ctx, func(txCtx context.Context) error {
		otp, err := service.otp.Verify(txCtx, email, code, PurposeVerification)
		if err != nil {
			return err
		}
		userID = otp.UserID
		return service.users.MarkVerified(txCtx, otp.UserID)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredCode) {
			service.record(ctx, audit.KindOTPVerificationFailed, "", ip, map[string]any{
				"email": email,
				"type":  string(PurposeVerification),
			})
			return ErrInvalidOrExpiredCode
		}
		return service.fail(span, fmt.Errorf("auth_service_verify_otp_failed: %w", err))
	}

	service.send(ctx, notify.AccountVerified(email))
	service.record(ctx, audit.KindAccountVerified, userID, ip, map[string]any{"email": email})

	return nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Identifier string // Can be Username or Email
	Password   string
	IP         string
	UserAgent  string
}

/*
Login validates credentials and issues a token pair.

Description: The checks run in a fixed order (existence, approval,
verification, lockout, password age, password) and each rejection is audited
with its reason. Only a wrong password counts towards the lockout.

Parameters:
  - ctx: context.Context
  - input: LoginInput

Returns:
  - *TokenPair: Access and refresh tokens
  - error: One of the login errors in errors.go, or storage errors
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*TokenPair, error) {
	ctx, span := service.tracer.Start(ctx, "auth.Login")
	defer span.End()

	user, err := service.users.FindByIdentifier(ctx, normalize.Identifier(input.Identifier))
	if err != nil && !apperr.IsNotFound(err) {
		return nil, service.fail(span, fmt.Errorf("auth_service_login_lookup_failed: %w", err))
	}

	// Unknown and soft-deleted accounts still pay for one bcrypt comparison.
	if user == nil || !user.IsActive {
		service.hasher.CompareDummy(input.Password)
		service.record(ctx, audit.KindLoginFailed, userIDOf(user), input.IP, map[string]any{
			"reason": "not_found_or_inactive",
			"ip":     input.IP,
		})
		return nil, service.reject(span, ErrInvalidCredentials)
	}

	if user.Status != StatusActive {
		service.record(ctx, audit.KindLoginFailed, user.ID, input.IP, map[string]any{
			"reason": statusReason(user.Status),
			"ip":     input.IP,
		})
		return nil, service.reject(span, notApproved(user.Status))
	}

	if !user.IsVerified {
		service.record(ctx, audit.KindLoginFailed, user.ID, input.IP, map[string]any{
			"reason": "not_verified",
			"ip":     input.IP,
		})
		return nil, service.reject(span, ErrAccountNotVerified)
	}

	if locked, remaining := service.lockout.Locked(user); locked {
		service.record(ctx, audit.KindLoginBlocked, user.ID, input.IP, map[string]any{
			"lockedUntil": user.LockedUntil.UTC().Format(time.RFC3339),
			"ip":          input.IP,
		})
		return nil, service.reject(span, accountLocked(remaining))
	}

	if service.passwordExpired(user) {
		service.record(ctx, audit.KindPasswordExpired, user.ID, input.IP, map[string]any{
			"forced": user.ForcePasswordChange,
			"ip":     input.IP,
		})
		return nil, service.reject(span, ErrPasswordExpired)
	}

	if !service.hasher.Compare(input.Password, user.PasswordHash) {
		return nil, service.failedPassword(ctx, span, user, input.IP)
	}

	if err := service.lockout.RegisterSuccess(ctx, user); err != nil {
		return nil, service.fail(span, fmt.Errorf("auth_service_login_failed: %w", err))
	}

	pair, err := service.tokens.IssuePair(ctx, user, ClientMeta{IP: input.IP, UserAgent: input.UserAgent})
	if err != nil {
		return nil, service.fail(span, fmt.Errorf("auth_service_login_failed: %w", err))
	}

	service.record(ctx, audit.KindLoginSuccess, user.ID, input.IP, map[string]any{"ip": input.IP})
	span.SetAttributes(attribute.String("user.id", user.ID))

	return pair, nil
}

// failedPassword applies the lockout transition for a wrong password and
// sends the matching warning or lock notice.
func (service *Service) failedPassword(ctx context.Context, span trace.Span, user *User, ip string) error {
	outcome, err := service.lockout.RegisterFailure(ctx, user)
	if err != nil {
		return service.fail(span, fmt.Errorf("auth_service_login_failed: %w", err))
	}

	switch {
	case outcome.Locked:
		service.send(ctx, notify.AccountLocked(user.Email, service.lockout.Duration()))
		service.record(ctx, audit.KindAccountLocked, user.ID, ip, map[string]any{
			"attempts":    outcome.Attempts,
			"lockedUntil": outcome.LockedUntil.UTC().Format(time.RFC3339),
			"ip":          ip,
		})
	case outcome.Warn:
		service.send(ctx, notify.AttemptsWarning(user.Email, outcome.Remaining))
	}

	service.record(ctx, audit.KindLoginFailed, user.ID, ip, map[string]any{
		"reason":            "invalid_password",
		"attempts":          outcome.Attempts,
		"remainingAttempts": outcome.Remaining,
		"ip":                ip,
	})

	return service.reject(span, ErrInvalidCredentials)
}

func (service *Service) passwordExpired(user *User) bool {
	if user.ForcePasswordChange {
		return true
	}
	if service.settings.PasswordMaxAge <= 0 {
		return false
	}
	return service.now().Sub(user.PasswordChangedAt) > service.settings.PasswordMaxAge
}

// # Password Recovery

/*
ForgotPassword emails a reset code when the address belongs to an active
account.

Description: The outcome is never reported to the caller. Both paths take at
least the configured minimum latency, and internal failures are only logged.

Parameters:
  - ctx: context.Context
  - email: string
  - ip: string
*/
func (service *Service) ForgotPassword(ctx context.Context, email, ip string) {
	ctx, span := service.tracer.Start(ctx, "auth.ForgotPassword")
	defer span.End()

	started := time.Now()
	defer service.padLatency(ctx, started)

	email = normalize.Email(email)

	user, err := service.users.FindByEmail(ctx, email)
	if err != nil && !apperr.IsNotFound(err) {
		ctxutil.GetLogger(ctx).Error("forgot_password_lookup_failed", slog.Any("error", err))
		span.RecordError(err)
		return
	}

	exists := user != nil && user.IsActive
	if exists {
		code, err := service.otp.Issue(ctx, user.ID, PurposeReset)
		if err != nil {
			ctxutil.GetLogger(ctx).Error("forgot_password_issue_failed", slog.Any("error", err))
			span.RecordError(err)
			return
		}
		service.send(ctx, notify.OTPCode(user.Email, code, notify.PurposeReset, service.otp.TTL()))
	}

	service.record(ctx, audit.KindForgotPasswordRequested, userIDOf(user), ip, map[string]any{
		"email":  email,
		"exists": exists,
	})
}

// padLatency sleeps until minimum latency has elapsed since started.
func (service *Service) padLatency(ctx context.Context, started time.Time) {
	remaining := service.settings.ForgotPasswordMinLatency - time.Since(started)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

/*
ResendOTP issues a fresh code of the given purpose.

Parameters:
  - ctx: context.Context
  - email: string
  - purpose: OTPPurpose
  - ip: string

Returns:
  - error: ErrUserNotFound or storage errors
*/
func (service *Service) ResendOTP(ctx context.Context, email string, purpose OTPPurpose, ip string) error {
	ctx, span := service.tracer.Start(ctx, "auth.ResendOTP")
	defer span.End()

	user, err := service.users.FindByEmail(ctx, normalize.Email(email))
	if err != nil {
		if apperr.IsNotFound(err) {
			return ErrUserNotFound
		}
		return service.fail(span, fmt.Errorf("auth_service_resend_otp_failed: %w", err))
	}
	if !user.IsActive {
		return ErrUserNotFound
	}

	code, err := service.otp.Issue(ctx, user.ID, purpose)
	if err != nil {
		return service.fail(span, fmt.Errorf("auth_service_resend_otp_failed: %w", err))
	}

	service.send(ctx, notify.OTPCode(user.Email, code, notify.OTPPurpose(purpose), service.otp.TTL()))
	service.record(ctx, audit.KindOTPResent, user.ID, ip, map[string]any{"type": string(purpose)})

	return nil
}

// ResetPasswordInput carries a reset code and the replacement password.
type ResetPasswordInput struct {
	Email       string
	Code        string
	NewPassword string
	IP          string
}

/*
ResetPassword completes the forgot-password flow.

Description: The new hash is computed before the transaction opens. Inside it,
the reset code is consumed, the password stored with its counters reset, and
every refresh token revoked.

Parameters:
  - ctx: context.Context
  - input: ResetPasswordInput

Returns:
  - error: ErrInvalidOrExpiredCode or storage errors
*/
func (service *Service) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	ctx, span := service.tracer.Start(ctx, "auth.ResetPassword")
	defer span.End()

	email := normalize.Email(input.Email)

	hashedPassword, err := service.hasher.Hash(input.NewPassword)
	if err != nil {
		return service.fail(span, fmt.Errorf("auth_service_reset_password_hash_failed: %w", err))
	}

	var userID string
	err = service.transactor.WithinTx(ctx, func(txCtx context.Context) error {
		otp, err := service.otp.Verify(txCtx, email, input.Code, PurposeReset)
		if err != nil {
			return err
		}
		userID = otp.UserID

		if err := service.users.UpdatePassword(txCtx, otp.UserID, hashedPassword, service.now()); err != nil {
			return err
		}
		return service.tokens.RevokeAll(txCtx, otp.UserID)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredCode) {
			service.record(ctx, audit.KindOTPVerificationFailed, "", input.IP, map[string]any{
				"email": email,
				"type":  string(PurposeReset),
			})
			return ErrInvalidOrExpiredCode
		}
		return service.fail(span, fmt.Errorf("auth_service_reset_password_failed: %w", err))
	}

	service.send(ctx, notify.PasswordReset(email))
	service.record(ctx, audit.KindPasswordReset, userID, input.IP, map[string]any{"email": email})

	return nil
}

// ChangePasswordInput carries an authenticated password change.
type ChangePasswordInput struct {
	UserID      string
	OldPassword string
	NewPassword string

	// KeepRefreshToken is the caller's own refresh token, left valid.
	KeepRefreshToken string
	IP               string
}

/*
ChangePassword replaces the password of an authenticated user.

Description: Verifies the current password, then signs out every other device
by revoking all refresh tokens except the presented one.

Parameters:
  - ctx: context.Context
  - input: ChangePasswordInput

Returns:
  - error: ErrInvalidCredentials, validation or storage errors
*/
func (service *Service) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	ctx, span := service.tracer.Start(ctx, "auth.ChangePassword")
	defer span.End()

	user, err := service.users.FindByID(ctx, input.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.InvalidToken()
		}
		return service.fail(span, fmt.Errorf("auth_service_change_password_failed: %w", err))
	}
	if !user.IsActive {
		return apperr.InvalidToken()
	}

	if !service.hasher.Compare(input.OldPassword, user.PasswordHash) {
		return service.reject(span, ErrInvalidCredentials.WithMessage("Current password is incorrect"))
	}

	if input.NewPassword == input.OldPassword {
		return apperr.ValidationError("Validation failed", apperr.FieldError{
			Field:   FieldNewPassword,
			Message: "must differ from the current password",
		})
	}

	hashedPassword, err := service.hasher.Hash(input.NewPassword)
	if err != nil {
		return service.fail(span, fmt.Errorf("auth_service_change_password_hash_failed: %w", err))
	}

	err = service.transactor.WithinTx(ctx, func(txCtx context.Context) error {
		if err := service.users.UpdatePassword(txCtx, user.ID, hashedPassword, service.now()); err != nil {
			return err
		}
		return service.tokens.RevokeOthers(txCtx, user.ID, input.KeepRefreshToken)
	})
	if err != nil {
		return service.fail(span, fmt.Errorf("auth_service_change_password_failed: %w", err))
	}

	service.send(ctx, notify.PasswordChanged(user.Email))
	service.record(ctx, audit.KindPasswordChanged, user.ID, input.IP, map[string]any{"email": user.Email})

	return nil
}

// # Session Management

/*
RefreshToken rotates a refresh token.

Parameters:
  - ctx: context.Context
  - token: string
  - meta: ClientMeta

Returns:
  - *TokenPair: The rotated pair
  - error: ErrInvalidRefreshToken or storage errors
*/
func (service *Service) RefreshToken(ctx context.Context, token string, meta ClientMeta) (*TokenPair, error) {
	ctx, span := service.tracer.Start(ctx, "auth.RefreshToken")
	defer span.End()

	pair, ownerID, err := service.tokens.Rotate(ctx, token, meta, service.tokenOwner)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			service.record(ctx, audit.KindRefreshFailed, ownerID, meta.IP, map[string]any{"ip": meta.IP})
			return nil, service.reject(span, ErrInvalidRefreshToken)
		}
		return nil, service.fail(span, fmt.Errorf("auth_service_refresh_failed: %w", err))
	}

	service.record(ctx, audit.KindRefreshSuccess, ownerID, meta.IP, map[string]any{"ip": meta.IP})
	return pair, nil
}

// tokenOwner admits the owner of a refresh token only while the account
// could still log in.
func (service *Service) tokenOwner(ctx context.Context, userID string) (*User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	if !user.IsActive || !user.IsVerified || user.Status != StatusActive {
		return nil, ErrInvalidRefreshToken
	}

	return user, nil
}

/*
Logout revokes a refresh token. Unknown or already revoked tokens succeed.

Parameters:
  - ctx: context.Context
  - token: string
  - ip: string

Returns:
  - error: Storage failures only
*/
func (service *Service) Logout(ctx context.Context, token, ip string) error {
	ctx, span := service.tracer.Start(ctx, "auth.Logout")
	defer span.End()

	ownerID, err := service.tokens.Revoke(ctx, token)
	if err != nil {
		return service.fail(span, fmt.Errorf("auth_service_logout_failed: %w", err))
	}

	service.record(ctx, audit.KindLogout, ownerID, ip, map[string]any{"ip": ip})
	return nil
}

// # Helpers

// send hands message to the notifier. Delivery is best-effort.
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

// reject marks the span with a client-facing rejection.
func (service *Service) reject(span trace.Span, err *apperr.AppError) error {
	span.SetAttributes(attribute.String("auth.rejection", err.Code))
	return err
}

// fail records an unexpected error on the span.
func (service *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func statusReason(status Status) string {
	switch status {
	case StatusPending:
		return "pending_approval"
	case StatusRejected:
		return "rejected"
	default:
		return "not_approved"
	}
}

func userIDOf(user *User) string {
	if user == nil {
		return ""
	}
	return user.ID
}
