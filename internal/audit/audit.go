// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package audit records security-relevant events in the system.auditlog table.

Every event is also emitted as a structured log line, so a failed insert never
makes an event disappear entirely.

# Durability

Writes are detached from the request context with [context.WithoutCancel] and
bounded by [constants.AuditWriteTimeout]: a client that disconnects mid-login
still leaves its login_failed row behind.
*/
package audit

import (
	"context"
	"time"
)

// # Event Kinds

// Kind names an audited event.
type Kind string

const (
	KindUserCreated             Kind = "user_created"
	KindAccountVerified         Kind = "account_verified"
	KindOTPVerificationFailed   Kind = "otp_verification_failed"
	KindOTPResent               Kind = "otp_resent"
	KindLoginFailed             Kind = "login_failed"
	KindLoginBlocked            Kind = "login_blocked"
	KindLoginSuccess            Kind = "login_success"
	KindAccountLocked           Kind = "account_locked"
	KindPasswordExpired         Kind = "password_expired"
	KindForgotPasswordRequested Kind = "forgot_password_requested"
	KindPasswordReset           Kind = "password_reset"
	KindPasswordChanged         Kind = "password_changed"
	KindRefreshSuccess          Kind = "refresh_success"
	KindRefreshFailed           Kind = "refresh_failed"
	KindLogout                  Kind = "logout"

	KindEmailChanged              Kind = "email_changed"
	KindUserStatusChanged         Kind = "user_status_changed"
	KindUserActiveStatusChanged   Kind = "user_active_status_changed"
	KindUserVerifiedStatusChanged Kind = "user_verified_status_changed"
	KindUserRoleChanged           Kind = "user_role_changed"
	KindUserSoftDeleted           Kind = "user_soft_deleted"
	KindUnauthorizedAccess        Kind = "unauthorized_access"
)

// # Domain Entity

// Event is one append-only audit row.
type Event struct {
	ID string `json:"id"`

	// UserID is nil for events without a resolved account.
	UserID    *string        `json:"user_id,omitempty"`
	Kind      Kind           `json:"event"`
	Details   map[string]any `json:"details"`
	IP        string         `json:"ip_address"`
	CreatedAt time.Time      `json:"created_at"`
}

// Repository persists audit events.
type Repository interface {
	Insert(ctx context.Context, event *Event) error
}
