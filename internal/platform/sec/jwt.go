// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives, token signing and the
// authorization policy.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing, random
// credentials) from the domain logic. Services receive its types through their
// constructors and never touch key material directly.
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for every access-token verification failure.
// Expired, mis-signed and malformed tokens are deliberately indistinguishable.
var ErrInvalidToken = errors.New("sec: invalid token")

// AuthClaims represents the payload embedded inside a JWT Access Token.
//
// Subject always carries the user id. The abbreviated custom claims let the
// middleware build a request identity without a database query; services that
// need the current account state still load it.
type AuthClaims struct {
	jwt.RegisteredClaims

	UserID   string   `json:"uid"`
	Username string   `json:"unm"`
	Role     UserRole `json:"rol"`
}

// TokenSubject is the identity a token is minted for.
type TokenSubject struct {
	UserID   string
	Username string
	Role     UserRole
}

// TokenService signs and verifies access tokens.
//
// It supports HS256 with a shared secret and RS256 with a key pair. The
// accepted algorithm is pinned at construction so tokens signed with any
// other method (including "none") are rejected.
type TokenService struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	now       func() time.Time
}

// NewHMACTokenService creates a [TokenService] signing with HS256.
func NewHMACTokenService(secret, issuer string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("sec: empty signing secret")
	}

	key := []byte(secret)
	return &TokenService{
		method:    jwt.SigningMethodHS256,
		signKey:   key,
		verifyKey: key,
		issuer:    issuer,
		now:       time.Now,
	}, nil
}

// NewRSATokenService creates a [TokenService] signing with RS256.
// It reads RSA keys from the provided filesystem paths.
func NewRSATokenService(privateKeyPath, publicKeyPath, issuer string) (*TokenService, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return NewRSATokenServiceFromKeys(privateKey, publicKey, issuer), nil
}

// NewRSATokenServiceFromKeys creates an RS256 [TokenService] from parsed keys.
func NewRSATokenServiceFromKeys(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer string) *TokenService {
	return &TokenService{
		method:    jwt.SigningMethodRS256,
		signKey:   privateKey,
		verifyKey: publicKey,
		issuer:    issuer,
		now:       time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (service *TokenService) WithClock(now func() time.Time) *TokenService {
	service.now = now
	return service
}

// GenerateAccessToken creates a signed access token for subject.
func (service *TokenService) GenerateAccessToken(subject TokenSubject, timeToLive time.Duration) (string, error) {
	currentTime := service.now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject.UserID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			NotBefore: jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:   subject.UserID,
		Username: subject.Username,
		Role:     subject.Role,
	}

	token := jwt.NewWithClaims(service.method, claims)
	signedToken, err := token.SignedString(service.signKey)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature and validity of a JWT string.
// Every failure wraps [ErrInvalidToken].
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{},
		func(*jwt.Token) (any, error) { return service.verifyKey, nil },
		jwt.WithValidMethods([]string{service.method.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
