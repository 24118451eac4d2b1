// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
)

// RefreshTokenBytes is the entropy of an opaque refresh token.
const RefreshTokenBytes = 32

// GenerateSecureToken returns n random bytes encoded as unpadded base64url.
func GenerateSecureToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the hex SHA-256 digest used to store opaque tokens at rest.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateNumericCode returns a uniformly random decimal string of exactly
// digits characters, leading zeros included, read from source.
func GenerateNumericCode(source io.Reader, digits int) (string, error) {
	if digits < 1 || digits > 18 {
		return "", fmt.Errorf("sec: unsupported code length %d", digits)
	}

	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(source, upper)
	if err != nil {
		return "", fmt.Errorf("sec: failed to generate code: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
