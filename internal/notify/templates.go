// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"fmt"
	"math"
	"time"
)

// # Templates

// OTPPurpose mirrors the OTP types stored by the auth package.
type OTPPurpose string

const (
	PurposeVerification OTPPurpose = "verification"
	PurposeReset        OTPPurpose = "reset"
)

// OTPCode renders the message carrying a one-time passcode.
func OTPCode(to, code string, purpose OTPPurpose, validity time.Duration) Message {
	subject := "Your verification code"
	action := "verify your account"
	if purpose == PurposeReset {
		subject = "Your password reset code"
		action = "reset your password"
	}

	return Message{
		Kind:    KindOTP,
		To:      to,
		Subject: subject,
		Body: fmt.Sprintf("Use the code %s to %s. It is valid for %d minutes.",
			code, action, Minutes(validity)),
	}
}

// AccountVerified confirms a successful email verification.
func AccountVerified(to string) Message {
	return Message{
		Kind:    KindAccountVerified,
		To:      to,
		Subject: "Your account has been verified",
		Body:    "Your email address is verified. You can log in once an administrator approves your account.",
	}
}

// AttemptsWarning warns that the next failed login locks the account.
func AttemptsWarning(to string, remaining int) Message {
	return Message{
		Kind:    KindAttemptsWarning,
		To:      to,
		Subject: "Multiple failed login attempts",
		Body: fmt.Sprintf("We detected several failed login attempts on your account. "+
			"%d attempt(s) remain before it is temporarily locked.", remaining),
	}
}

// AccountLocked tells the user for how long the account is locked.
func AccountLocked(to string, duration time.Duration) Message {
	return Message{
		Kind:    KindAccountLocked,
		To:      to,
		Subject: "Your account has been temporarily locked",
		Body: fmt.Sprintf("Too many failed login attempts. Your account is locked for %d minutes.",
			Minutes(duration)),
	}
}

// PasswordReset confirms a completed password reset.
func PasswordReset(to string) Message {
	return Message{
		Kind:    KindPasswordReset,
		To:      to,
		Subject: "Your password has been reset",
		Body:    "Your password was reset and every active session was signed out. If this was not you, contact support.",
	}
}

// PasswordChanged confirms a password change by the account owner.
func PasswordChanged(to string) Message {
	return Message{
		Kind:    KindPasswordChanged,
		To:      to,
		Subject: "Your password has been changed",
		Body:    "Your password was changed. If this was not you, reset it immediately.",
	}
}

// AdminNewSignup tells the administrator a registration awaits review.
func AdminNewSignup(to, username, email string) Message {
	return Message{
		Kind:    KindAdminNewSignup,
		To:      to,
		Subject: "New registration pending approval",
		Body:    fmt.Sprintf("User %s (%s) signed up and is waiting for approval.", username, email),
	}
}

// UserApproved tells the user an administrator approved the account.
func UserApproved(to string) Message {
	return Message{
		Kind:    KindUserApproved,
		To:      to,
		Subject: "Your account has been approved",
		Body:    "An administrator approved your account. You can now log in.",
	}
}

// UserRejected tells the user the registration was declined.
func UserRejected(to string) Message {
	return Message{
		Kind:    KindUserRejected,
		To:      to,
		Subject: "Your registration was declined",
		Body:    "An administrator declined your registration request.",
	}
}

// Minutes rounds d up to whole minutes, with a minimum of one.
func Minutes(d time.Duration) int {
	return max(int(math.Ceil(d.Minutes())), 1)
}
