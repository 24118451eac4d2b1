// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Request Field Identifiers

// JSON field names used in validation errors for the auth endpoints.
const (
	FieldUsername           = "username"
	FieldEmail              = "email"
	FieldFirstName          = "first_name"
	FieldLastName           = "last_name"
	FieldPassword           = "password"
	FieldPasswordConfirm    = "passwordConfirm"
	FieldUser               = "user"
	FieldCode               = "code"
	FieldType               = "type"
	FieldOldPassword        = "oldPassword"
	FieldNewPassword        = "newPassword"
	FieldNewPasswordConfirm = "newPasswordConfirm"
	FieldRefreshToken       = "refreshToken"
)

// # Input Limits

const (
	// UsernameMaxLength bounds stored usernames.
	UsernameMaxLength = 30

	// NameMaxLength bounds first and last names.
	NameMaxLength = 100

	// EmailMaxLength follows the SMTP path limit.
	EmailMaxLength = 254

	// PasswordMaxBytes is the bcrypt input limit. It counts encoded bytes,
	// so multi-byte characters use more than one.
	PasswordMaxBytes = 72
)

// # Client Messages

const (
	MessageSignedUp        = "Signup successful. Check your email for the verification code"
	MessageVerified        = "Account verified successfully"
	MessageForgotPassword  = "If the email is registered, a reset code has been sent"
	MessageOTPResent       = "A new code has been sent"
	MessagePasswordReset   = "Password reset successfully"
	MessagePasswordChanged = "Password changed successfully"
	MessageLoggedOut       = "Logged out successfully"
)
