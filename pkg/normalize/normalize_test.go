// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/yomira-auth/pkg/normalize"
)

func TestEmail(t *testing.T) {
	assert.Equal(t, "alice@x.com", normalize.Email("  Alice@X.com "))
	// "e" followed by a combining acute accent composes to "é".
	assert.Equal(t, "jos\u00e9@x.com", normalize.Email("Jose\u0301@X.com"))
}

func TestUsername(t *testing.T) {
	assert.Equal(t, "Alice", normalize.Username(" Alice "))
	assert.Equal(t, "Ren\u00e9", normalize.Username("Rene\u0301"))
}

func TestName(t *testing.T) {
	assert.Equal(t, "Mary Ann", normalize.Name("  Mary \t  Ann\u0007 "))
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "alice@x.com", normalize.Identifier("ALICE@x.com"))
	assert.Equal(t, "Alice", normalize.Identifier(" Alice"))
}
