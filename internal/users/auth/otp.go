// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// # OTP Engine

// OTPEngine issues and consumes six-digit one-time passcodes.
type OTPEngine struct {
	repository OTPRepository
	ttl        time.Duration
	random     io.Reader
	now        func() time.Time
}

// NewOTPEngine creates an [OTPEngine] whose codes live for ttl.
func NewOTPEngine(repository OTPRepository, ttl time.Duration, now func() time.Time) *OTPEngine {
	if now == nil {
		now = time.Now
	}
	return &OTPEngine{
		repository: repository,
		ttl:        ttl,
		random:     rand.Reader,
		now:        now,
	}
}

// TTL returns how long issued codes stay valid.
func (engine *OTPEngine) TTL() time.Duration { return engine.ttl }

/*
Issue creates and persists a fresh code for the user. Outstanding codes of the
same purpose stay valid until they expire.

Parameters:
  - context: context.Context
  - userID: string
  - purpose: OTPPurpose

Returns:
  - string: The plaintext code to deliver
  - error: Generation or storage failures
*/
func (engine *OTPEngine) Issue(context context.Context, userID string, purpose OTPPurpose) (string, error) {
	code, err := sec.GenerateNumericCode(engine.random, constants.OTPDigits)
	if err != nil {
		return "", fmt.Errorf("auth_otp_generate_failed: %w", err)
	}

	now := engine.now()
	otp := &OTP{
		ID:        uuid.New(),
		UserID:    userID,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(engine.ttl),
		CreatedAt: now,
	}

	if err := engine.repository.Create(context, otp); err != nil {
		return "", fmt.Errorf("auth_otp_create_failed: %w", err)
	}

	return code, nil
}

/*
Verify consumes a code. Malformed, wrong, expired and already-used codes, as
well as unknown emails, all fail with [ErrInvalidOrExpiredCode].

Parameters:
  - context: context.Context
  - email: string (normalized)
  - code: string
  - purpose: OTPPurpose

Returns:
  - *OTP: The consumed row
  - error: ErrInvalidOrExpiredCode or storage failures
*/
func (engine *OTPEngine) Verify(context context.Context, email, code string, purpose OTPPurpose) (*OTP, error) {
	if !isNumericCode(code) || !purpose.Valid() {
		return nil, ErrInvalidOrExpiredCode
	}

	otp, err := engine.repository.Consume(context, email, code, purpose, engine.now())
	if err != nil {
		return nil, err
	}

	return otp, nil
}

func isNumericCode(code string) bool {
	if len(code) != constants.OTPDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
