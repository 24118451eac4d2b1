// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package notify delivers user-facing notifications (OTP codes, lockout warnings,
approval decisions) through a pluggable backend.

Backends:

  - [SMTPNotifier]: plain-text email over SMTP with STARTTLS.
  - [KafkaNotifier]: JSON messages on a Kafka topic for a downstream mailer.
  - [LogNotifier]: structured log lines, for development.

Callers never talk to a backend directly. They enqueue on a [Dispatcher], which
delivers in the background so a slow mail server cannot hold a request open.
*/
package notify

import "context"

// Kind tags a message with the template it was rendered from.
type Kind string

const (
	KindOTP             Kind = "otp"
	KindAccountVerified Kind = "account_verified"
	KindAttemptsWarning Kind = "failed_attempts_warning"
	KindAccountLocked   Kind = "account_locked"
	KindPasswordReset   Kind = "password_reset"
	KindPasswordChanged Kind = "password_changed"
	KindAdminNewSignup  Kind = "admin_new_signup"
	KindUserApproved    Kind = "user_approved"
	KindUserRejected    Kind = "user_rejected"
)

// Message is a rendered notification addressed to one recipient.
type Message struct {
	Kind    Kind   `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier delivers a [Message].
type Notifier interface {
	Send(ctx context.Context, message Message) error
}
