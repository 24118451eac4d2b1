// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/middleware"
	"github.com/taibuivan/yomira-auth/internal/platform/ratelimit"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
	"github.com/taibuivan/yomira-auth/internal/users/usertest"
)

type denyAfter struct {
	allowed int
	seen    *int
}

func (limiter denyAfter) Allow(context.Context, string) (ratelimit.Decision, error) {
	*limiter.seen++
	if *limiter.seen > limiter.allowed {
		return ratelimit.Decision{RetryAfter: 90 * time.Second}, nil
	}
	return ratelimit.Decision{Allowed: true}, nil
}

func newRouter(harness *usertest.Harness, limiter middleware.AttemptLimiter) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Authenticate(harness.Signer))
	router.Mount("/auth", auth.NewHandler(harness.Auth, limiter).Routes())
	return router
}

func post(t *testing.T, handler http.Handler, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	switch value := body.(type) {
	case string:
		payload = []byte(value)
	default:
		var err error
		payload, err = json.Marshal(value)
		require.NoError(t, err)
	}

	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		request.Header.Set(headers[i], headers[i+1])
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestHandler_SignUpValidation(t *testing.T) {
	harness := newHarness(t)
	router := newRouter(harness, nil)

	recorder := post(t, router, "/auth/signup", map[string]string{
		"username":        "x",
		"email":           "not-an-email",
		"first_name":      "",
		"last_name":       "Doe",
		"password":        "weak",
		"passwordConfirm": "different",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	body := decode(t, recorder)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	fields := map[string]bool{}
	for _, detail := range body["details"].([]any) {
		fields[detail.(map[string]any)["field"].(string)] = true
	}
	for _, field := range []string{"username", "email", "first_name", "password", "passwordConfirm"} {
		assert.True(t, fields[field], field)
	}
}

func TestHandler_MultibytePasswordOverBcryptLimit(t *testing.T) {
	harness := newHarness(t)
	router := newRouter(harness, nil)

	// 64 characters, 124 bytes.
	password := "Aa1!" + strings.Repeat("é", 60)

	recorder := post(t, router, "/auth/signup", map[string]string{
		"username":        "eloise",
		"email":           "eloise@example.com",
		"first_name":      "Eloise",
		"last_name":       "Bridge",
		"password":        password,
		"passwordConfirm": password,
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code, recorder.Body.String())
	assert.Equal(t, "VALIDATION_ERROR", decode(t, recorder)["code"])

	user := harness.SeedUser(t, "fern")
	post(t, router, "/auth/forgot-password", map[string]string{"email": "fern@example.com"})

	recorder = post(t, router, "/auth/reset-password", map[string]string{
		"email":              "fern@example.com",
		"code":               harness.LatestCode(t, user.ID, auth.PurposeReset),
		"newPassword":        password,
		"newPasswordConfirm": password,
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code, recorder.Body.String())
	assert.Equal(t, "VALIDATION_ERROR", decode(t, recorder)["code"])
}

func TestHandler_SignUpVerifyLogin(t *testing.T) {
	harness := newHarness(t)
	router := newRouter(harness, nil)

	recorder := post(t, router, "/auth/signup", map[string]string{
		"username":        "alice",
		"email":           "alice@example.com",
		"first_name":      "Alice",
		"last_name":       "Liddell",
		"password":        usertest.Password,
		"passwordConfirm": usertest.Password,
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	assert.Equal(t, auth.MessageSignedUp, decode(t, recorder)["message"])

	duplicate := post(t, router, "/auth/signup", map[string]string{
		"username":        "alice",
		"email":           "other@example.com",
		"first_name":      "Alice",
		"last_name":       "Liddell",
		"password":        usertest.Password,
		"passwordConfirm": usertest.Password,
	})
	assert.Equal(t, http.StatusBadRequest, duplicate.Code)
	assert.Equal(t, "DUPLICATE_USER", decode(t, duplicate)["code"])

	user, err := harness.Store.Users().FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)

	recorder = post(t, router, "/auth/verify-otp", map[string]string{
		"email": "alice@example.com",
		"code":  harness.LatestCode(t, user.ID, auth.PurposeVerification),
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = post(t, router, "/auth/login", map[string]string{"user": "alice", "password": usertest.Password})
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Equal(t, "ACCOUNT_NOT_APPROVED", decode(t, recorder)["code"])
}

func TestHandler_LoginAndRefresh(t *testing.T) {
	harness := newHarness(t)
	harness.SeedUser(t, "bob")
	router := newRouter(harness, nil)

	recorder := post(t, router, "/auth/login", map[string]string{"user": "bob", "password": usertest.Password})
	require.Equal(t, http.StatusOK, recorder.Code)

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &pair))
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	recorder = post(t, router, "/auth/refresh-token", map[string]string{"refreshToken": pair.RefreshToken})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = post(t, router, "/auth/refresh-token", map[string]string{"refreshToken": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", decode(t, recorder)["code"])

	recorder = post(t, router, "/auth/refresh-token", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandler_WrongPasswordIsUnauthorized(t *testing.T) {
	harness := newHarness(t)
	harness.SeedUser(t, "carl")
	router := newRouter(harness, nil)

	recorder := post(t, router, "/auth/login", map[string]string{"user": "carl", "password": "Wr0ng!Pass"})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode(t, recorder)["code"])
}

func TestHandler_LoginRateLimit(t *testing.T) {
	harness := newHarness(t)
	harness.SeedUser(t, "dora")

	seen := 0
	router := newRouter(harness, denyAfter{allowed: 2, seen: &seen})

	for range 2 {
		recorder := post(t, router, "/auth/login", map[string]string{"user": "dora", "password": "Wr0ng!Pass"})
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	}

	recorder := post(t, router, "/auth/login", map[string]string{"user": "dora", "password": usertest.Password})
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "90", recorder.Header().Get("Retry-After"))

	// Other routes do not spend the login budget.
	recorder = post(t, router, "/auth/logout", map[string]string{"refreshToken": "x"})
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 3, seen)
}

func TestHandler_ForgotPasswordIsUniform(t *testing.T) {
	harness := newHarness(t)
	harness.SeedUser(t, "eve")
	router := newRouter(harness, nil)

	known := post(t, router, "/auth/forgot-password", map[string]string{"email": "eve@example.com"})
	unknown := post(t, router, "/auth/forgot-password", map[string]string{"email": "ghost@example.com"})
	malformed := post(t, router, "/auth/forgot-password", "{not json")

	for _, recorder := range []*httptest.ResponseRecorder{known, unknown, malformed} {
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, known.Body.String(), recorder.Body.String())
	}
	assert.Contains(t, known.Body.String(), auth.MessageForgotPassword)
}

func TestHandler_ResendOTP(t *testing.T) {
	harness := newHarness(t)
	harness.SeedUser(t, "fay", func(u *auth.User) { u.IsVerified = false })
	router := newRouter(harness, nil)

	recorder := post(t, router, "/auth/resend-otp", map[string]string{"email": "fay@example.com", "type": "sms"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = post(t, router, "/auth/resend-otp", map[string]string{"email": "ghost@example.com", "type": "verification"})
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = post(t, router, "/auth/resend-otp", map[string]string{"email": "fay@example.com", "type": "verification"})
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestHandler_ResetPassword(t *testing.T) {
	harness := newHarness(t)
	user := harness.SeedUser(t, "gus")
	router := newRouter(harness, nil)

	post(t, router, "/auth/forgot-password", map[string]string{"email": "gus@example.com"})
	code := harness.LatestCode(t, user.ID, auth.PurposeReset)

	recorder := post(t, router, "/auth/reset-password", map[string]string{
		"email":              "gus@example.com",
		"code":               code,
		"newPassword":        "N3w!Secret",
		"newPasswordConfirm": "Mismatch!1",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, recorder)["code"])

	recorder = post(t, router, "/auth/reset-password", map[string]string{
		"email":              "gus@example.com",
		"code":               code,
		"newPassword":        "N3w!Secret",
		"newPasswordConfirm": "N3w!Secret",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = post(t, router, "/auth/reset-password", map[string]string{
		"email":              "gus@example.com",
		"code":               code,
		"newPassword":        "N3w!Secret",
		"newPasswordConfirm": "N3w!Secret",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "INVALID_OR_EXPIRED_CODE", decode(t, recorder)["code"])
}

func TestHandler_ChangePasswordRequiresToken(t *testing.T) {
	harness := newHarness(t)
	user := harness.SeedUser(t, "hal")
	router := newRouter(harness, nil)

	body := map[string]string{
		"oldPassword":        usertest.Password,
		"newPassword":        "N3w!Secret",
		"newPasswordConfirm": "N3w!Secret",
	}

	recorder := post(t, router, "/auth/change-password", body)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "INVALID_TOKEN", decode(t, recorder)["code"])

	recorder = post(t, router, "/auth/change-password", body, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = post(t, router, "/auth/change-password", body, "Authorization", "Bearer "+harness.AccessToken(t, user))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.True(t, strings.Contains(recorder.Body.String(), auth.MessagePasswordChanged))
}

func TestHandler_LogoutAlwaysSucceeds(t *testing.T) {
	harness := newHarness(t)
	router := newRouter(harness, nil)

	for _, token := range []string{"", "unknown"} {
		recorder := post(t, router, "/auth/logout", map[string]string{"refreshToken": token})
		assert.Equal(t, http.StatusOK, recorder.Code)
	}
}
