// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/notify"
	"github.com/taibuivan/yomira-auth/internal/platform/middleware"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
	"github.com/taibuivan/yomira-auth/internal/users/usertest"
)

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newClient(t *testing.T, harness *usertest.Harness, as *auth.User) *client {
	router := chi.NewRouter()
	router.Use(middleware.Authenticate(harness.Signer))
	router.Mount("/users", account.NewHandler(harness.Accounts).Routes())

	token := ""
	if as != nil {
		token = harness.AccessToken(t, as)
	}
	return &client{t: t, handler: router, token: token}
}

func (client *client) do(method, path string, body any) *httptest.ResponseRecorder {
	client.t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(client.t, err)
	}

	request := httptest.NewRequest(method, path, bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	if client.token != "" {
		request.Header.Set("Authorization", "Bearer "+client.token)
	}

	recorder := httptest.NewRecorder()
	client.handler.ServeHTTP(recorder, request)
	return recorder
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]int  `json:"meta"`
	Code  string          `json:"code"`
	Error string          `json:"error"`
}

func read(t *testing.T, recorder *httptest.ResponseRecorder) envelope {
	t.Helper()

	var body envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body), recorder.Body.String())
	return body
}

func readUser(t *testing.T, recorder *httptest.ResponseRecorder) account.UserResponse {
	t.Helper()

	var user account.UserResponse
	require.NoError(t, json.Unmarshal(read(t, recorder).Data, &user))
	return user
}

func TestHandler_RequiresToken(t *testing.T) {
	harness, _, _ := setup(t)
	anonymous := newClient(t, harness, nil)

	for _, path := range []string{"/users", "/users/me"} {
		recorder := anonymous.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code, path)
		assert.Equal(t, "INVALID_TOKEN", read(t, recorder).Code)
	}
}

func TestHandler_List(t *testing.T) {
	harness, admin, member := setup(t)
	harness.SeedUser(t, "waiting", createdAt(1), func(u *auth.User) { u.Status = auth.StatusPending })

	recorder := newClient(t, harness, admin).do(http.MethodGet, "/users?status=pending&limit=10", nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	body := read(t, recorder)
	var users []account.UserResponse
	require.NoError(t, json.Unmarshal(body.Data, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "waiting", users[0].Username)
	assert.Equal(t, 1, body.Meta["total"])
	assert.Equal(t, 10, body.Meta["limit"])

	recorder = newClient(t, harness, admin).do(http.MethodGet, "/users?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "VALIDATION_ERROR", read(t, recorder).Code)

	recorder = newClient(t, harness, member).do(http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestHandler_GetAndMe(t *testing.T) {
	harness, admin, member := setup(t)
	memberClient := newClient(t, harness, member)

	recorder := memberClient.do(http.MethodGet, "/users/me", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	me := readUser(t, recorder)
	assert.Equal(t, member.ID, me.ID)
	assert.Equal(t, "active", me.Status)
	assert.NotContains(t, recorder.Body.String(), "hash")

	recorder = memberClient.do(http.MethodGet, "/users/"+admin.ID, nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = newClient(t, harness, admin).do(http.MethodGet, "/users/missing", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestHandler_Create(t *testing.T) {
	harness, admin, _ := setup(t)
	adminClient := newClient(t, harness, admin)

	body := map[string]any{
		"username":        "created",
		"email":           "created@example.com",
		"first_name":      "Cre",
		"last_name":       "Ated",
		"password":        usertest.Password,
		"passwordConfirm": usertest.Password,
		"status":          "active",
		"is_verified":     true,
	}

	recorder := adminClient.do(http.MethodPost, "/users", body)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	created := readUser(t, recorder)
	assert.Equal(t, "active", created.Status)
	assert.Equal(t, "USER", created.Role)
	assert.True(t, created.IsVerified)

	recorder = adminClient.do(http.MethodPost, "/users", body)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "DUPLICATE_USER", read(t, recorder).Code)

	body["username"] = "another"
	body["role"] = "OWNER"
	recorder = adminClient.do(http.MethodPost, "/users", body)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "VALIDATION_ERROR", read(t, recorder).Code)
}

func TestHandler_UpdateApproval(t *testing.T) {
	harness, admin, member := setup(t)
	pending := harness.SeedUser(t, "pending", func(u *auth.User) { u.Status = auth.StatusPending })

	recorder := newClient(t, harness, member).do(http.MethodPatch, "/users/"+pending.ID, map[string]any{"status": "active"})
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = newClient(t, harness, admin).do(http.MethodPatch, "/users/"+pending.ID, map[string]any{"status": "active"})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, "active", readUser(t, recorder).Status)
	assert.Equal(t, 1, harness.Outbox.Count(pending.Email, notify.KindUserApproved))

	recorder = newClient(t, harness, member).do(http.MethodPatch, "/users/"+member.ID, map[string]any{"first_name": "Renamed"})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Renamed", readUser(t, recorder).FirstName)

	recorder = newClient(t, harness, member).do(http.MethodPatch, "/users/"+member.ID, map[string]any{"email": "broken"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandler_Delete(t *testing.T) {
	harness, admin, member := setup(t)
	adminClient := newClient(t, harness, admin)

	recorder := newClient(t, harness, member).do(http.MethodDelete, "/users/"+admin.ID, nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = adminClient.do(http.MethodDelete, "/users/"+admin.ID, nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = adminClient.do(http.MethodDelete, "/users/"+member.ID, nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.False(t, harness.Store.Users().Get(member.ID).IsActive)

	// The access token is still well-signed but its owner is gone.
	recorder = newClient(t, harness, member).do(http.MethodGet, "/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
