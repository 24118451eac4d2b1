// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"
)

// # Lockout Policy

// LockoutOutcome describes the account state after a failed login.
type LockoutOutcome struct {
	Attempts    int
	Remaining   int
	Locked      bool
	LockedUntil *time.Time

	// Warn is set on the failure right before the one that locks.
	Warn bool
}

// LockoutPolicy locks an account for a fixed duration after too many
// consecutive failed logins.
type LockoutPolicy struct {
	repository  LockoutRepository
	maxAttempts int
	duration    time.Duration
	now         func() time.Time
}

// NewLockoutPolicy creates a [LockoutPolicy].
func NewLockoutPolicy(repository LockoutRepository, maxAttempts int, duration time.Duration, now func() time.Time) *LockoutPolicy {
	if now == nil {
		now = time.Now
	}
	return &LockoutPolicy{
		repository:  repository,
		maxAttempts: max(maxAttempts, 1),
		duration:    duration,
		now:         now,
	}
}

// Duration returns the length of a lockout window.
func (policy *LockoutPolicy) Duration() time.Duration { return policy.duration }

// Locked reports whether user is locked and for how much longer.
func (policy *LockoutPolicy) Locked(user *User) (bool, time.Duration) {
	now := policy.now()
	if !user.IsLocked(now) {
		return false, 0
	}
	return true, user.LockedUntil.Sub(now)
}

/*
RegisterFailure counts a failed login. The increment and the lock decision
happen in one statement, so concurrent failures are counted exactly.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - LockoutOutcome: Counters after the failure
  - error: Storage failures
*/
func (policy *LockoutPolicy) RegisterFailure(context context.Context, user *User) (LockoutOutcome, error) {
	lockedUntil := policy.now().Add(policy.duration)

	attempts, until, err := policy.repository.RecordFailedLogin(context, user.ID, policy.maxAttempts, lockedUntil)
	if err != nil {
		return LockoutOutcome{}, fmt.Errorf("auth_lockout_record_failed: %w", err)
	}

	user.FailedAttempts = attempts
	user.LockedUntil = until

	return LockoutOutcome{
		Attempts:    attempts,
		Remaining:   max(policy.maxAttempts-attempts, 0),
		Locked:      attempts >= policy.maxAttempts,
		LockedUntil: until,
		Warn:        attempts == policy.maxAttempts-1,
	}, nil
}

// RegisterSuccess clears the counters after a successful login. Clean
// accounts are left untouched.
func (policy *LockoutPolicy) RegisterSuccess(context context.Context, user *User) error {
	if user.FailedAttempts == 0 && user.LockedUntil == nil {
		return nil
	}

	if err := policy.repository.ResetFailedLogins(context, user.ID); err != nil {
		return fmt.Errorf("auth_lockout_reset_failed: %w", err)
	}

	user.FailedAttempts = 0
	user.LockedUntil = nil
	return nil
}
