// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/notify"
)

// # Domain Errors

var (
	ErrDuplicateUser        = apperr.New(http.StatusBadRequest, "DUPLICATE_USER", "Username or email is already registered")
	ErrInvalidOrExpiredCode = apperr.New(http.StatusBadRequest, "INVALID_OR_EXPIRED_CODE", "Invalid or expired code")
	ErrInvalidCredentials   = apperr.New(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
	ErrInvalidRefreshToken  = apperr.New(http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Invalid or expired refresh token")
	ErrAccountNotVerified   = apperr.New(http.StatusUnauthorized, "ACCOUNT_NOT_VERIFIED", "Account is not verified. Check your email and verify your account before logging in")
	ErrAccountNotApproved   = apperr.New(http.StatusForbidden, "ACCOUNT_NOT_APPROVED", "You cannot log in at this time")
	ErrAccountLocked        = apperr.New(http.StatusForbidden, "ACCOUNT_LOCKED", "Account is temporarily locked")
	ErrPasswordExpired      = apperr.New(http.StatusForbidden, "PASSWORD_EXPIRED", "You must change your password before continuing")
	ErrUserNotFound         = apperr.NotFound("User")
)

// notApproved returns [ErrAccountNotApproved] with the status-specific reason.
func notApproved(status Status) *apperr.AppError {
	switch status {
	case StatusPending:
		return ErrAccountNotApproved.WithMessage("Your account is pending approval by an administrator")
	case StatusRejected:
		return ErrAccountNotApproved.WithMessage("Your registration request was rejected")
	default:
		return ErrAccountNotApproved
	}
}

// accountLocked returns [ErrAccountLocked] with the minutes left in the window.
func accountLocked(remaining time.Duration) *apperr.AppError {
	return ErrAccountLocked.WithMessage(fmt.Sprintf(
		"Account is temporarily locked. Try again in %d minutes", notify.Minutes(remaining)))
}
