// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"bytes"
	"crypto/rand"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/sec"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestGenerateNumericCode_Format(t *testing.T) {
	for range 200 {
		code, err := sec.GenerateNumericCode(rand.Reader, 6)
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
	}
}

func TestGenerateNumericCode_KeepsLeadingZeros(t *testing.T) {
	// An all-zero source makes rand.Int return 0.
	code, err := sec.GenerateNumericCode(bytes.NewReader(make([]byte, 64)), 6)
	require.NoError(t, err)
	assert.Equal(t, "000000", code)
}

func TestGenerateNumericCode_InvalidLength(t *testing.T) {
	_, err := sec.GenerateNumericCode(rand.Reader, 0)
	assert.Error(t, err)
}

func TestGenerateSecureToken_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		token, err := sec.GenerateSecureToken(sec.RefreshTokenBytes)
		require.NoError(t, err)
		assert.Len(t, token, 43)

		_, dup := seen[token]
		assert.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestHashToken_Deterministic(t *testing.T) {
	assert.Equal(t, sec.HashToken("abc"), sec.HashToken("abc"))
	assert.NotEqual(t, sec.HashToken("abc"), sec.HashToken("abd"))
	assert.Len(t, sec.HashToken("abc"), 64)
}
