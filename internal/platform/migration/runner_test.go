// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertToPgx5DSN(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/auth":   "pgx5://u:p@db:5432/auth",
		"postgresql://u:p@db:5432/auth": "pgx5://u:p@db:5432/auth",
		"pgx5://u:p@db:5432/auth":       "pgx5://u:p@db:5432/auth",
		"host=db user=u":                "host=db user=u",
	}

	for input, want := range tests {
		assert.Equal(t, want, convertToPgx5DSN(input), input)
	}
}

func TestNormalizeSourceURL(t *testing.T) {
	assert.Equal(t, "file://migrations", normalizeSourceURL("migrations"))
	assert.Equal(t, "file:///srv/migrations", normalizeSourceURL("file:///srv/migrations"))
}
