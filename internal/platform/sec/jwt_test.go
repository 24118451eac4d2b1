// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/sec"
)

var subject = sec.TokenSubject{UserID: "user-1", Username: "alice", Role: sec.RoleUser}

func TestTokenService_HMACRoundTrip(t *testing.T) {
	service, err := sec.NewHMACTokenService("secret", "issuer")
	require.NoError(t, err)

	token, err := service.GenerateAccessToken(subject, time.Minute)
	require.NoError(t, err)

	claims, err := service.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, sec.RoleUser, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenService_RSARoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	service := sec.NewRSATokenServiceFromKeys(key, &key.PublicKey, "issuer")

	token, err := service.GenerateAccessToken(subject, time.Minute)
	require.NoError(t, err)

	claims, err := service.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestTokenService_RejectsUniformly(t *testing.T) {
	service, err := sec.NewHMACTokenService("secret", "issuer")
	require.NoError(t, err)

	other, err := sec.NewHMACTokenService("other-secret", "issuer")
	require.NoError(t, err)

	otherIssuer, err := sec.NewHMACTokenService("secret", "someone-else")
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	expired, err := sec.NewHMACTokenService("secret", "issuer")
	require.NoError(t, err)
	expired.WithClock(func() time.Time { return past })

	wrongSignature, _ := other.GenerateAccessToken(subject, time.Minute)
	wrongIssuer, _ := otherIssuer.GenerateAccessToken(subject, time.Minute)
	expiredToken, _ := expired.GenerateAccessToken(subject, time.Minute)
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "issuer",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"wrong signature", wrongSignature},
		{"wrong issuer", wrongIssuer},
		{"expired", expiredToken},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.VerifyToken(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, sec.ErrInvalidToken)
		})
	}
}

func TestNewHMACTokenService_EmptySecret(t *testing.T) {
	_, err := sec.NewHMACTokenService("", "issuer")
	assert.Error(t, err)
}
