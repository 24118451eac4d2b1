// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the authentication state machine and credential
lifecycle: signup with OTP email verification, login with lockout, refresh
token rotation and password reset/change.

# Architecture

  - Entities (this file): User, OTP and RefreshToken with no storage concerns.
  - Components: [OTPEngine], [TokenIssuer] and [LockoutPolicy], each owning
    one credential.
  - [Service]: the orchestrator that sequences the components for a use case.
  - Repositories: Postgres implementations of the contracts in store.go.
*/
package auth

import (
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/sec"
)

// # Account Status

// Status is the approval state of an account.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusRejected:
		return true
	}
	return false
}

// OTPPurpose distinguishes verification codes from reset codes.
type OTPPurpose string

const (
	PurposeVerification OTPPurpose = "verification"
	PurposeReset        OTPPurpose = "reset"
)

// Valid reports whether p is a known purpose.
func (p OTPPurpose) Valid() bool {
	return p == PurposeVerification || p == PurposeReset
}

// # Domain Entities

// User is a registered account.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PasswordHash string `json:"-"` // Explicitly omitted from JSON for security.

	Status     Status       `json:"status"`
	Role       sec.UserRole `json:"role"`
	IsActive   bool         `json:"is_active"`
	IsVerified bool         `json:"is_verified"`

	FailedAttempts      int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	PasswordChangedAt   time.Time  `json:"-"`
	ForcePasswordChange bool       `json:"force_password_change"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsLocked reports whether the account is inside a lockout window at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// CanAuthenticate reports whether the account state allows a login at now.
// The password itself is checked separately.
func (u *User) CanAuthenticate(now time.Time) bool {
	return u.Status == StatusActive && u.IsActive && u.IsVerified && !u.IsLocked(now)
}

// Actor returns the policy view of the user.
func (u *User) Actor() sec.Actor {
	return sec.Actor{ID: u.ID, Role: u.Role}
}

// OTP is a one-time passcode row.
type OTP struct {
	ID        string
	UserID    string
	Code      string
	Purpose   OTPPurpose
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// RefreshToken is the persisted half of an opaque refresh token. Only the
// SHA-256 of the plaintext is stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	IPAddress string
	UserAgent string
	Revoked   bool
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// ClientMeta describes the device a token is issued to.
type ClientMeta struct {
	IP        string
	UserAgent string
}
