// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
)

func TestWrap(t *testing.T) {
	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "account_email_key"}

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"no rows", pgx.ErrNoRows, "NOT_FOUND"},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), "NOT_FOUND"},
		{"unique violation", unique, "CONFLICT"},
		{"foreign key", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, "NOT_FOUND"},
		{"canceled", &pgconn.PgError{Code: pgerrcode.QueryCanceled}, "SERVICE_UNAVAILABLE"},
		{"other", errors.New("boom"), "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ae := apperr.As(dberr.Wrap(tt.err, "User"))
			if assert.NotNil(t, ae) {
				assert.Equal(t, tt.code, ae.Code)
			}
		})
	}

	assert.NoError(t, dberr.Wrap(nil, "User"))
	assert.True(t, dberr.IsUniqueViolation(fmt.Errorf("insert: %w", unique)))
	assert.Equal(t, "account_email_key", dberr.ConstraintName(unique))
	assert.Empty(t, dberr.ConstraintName(errors.New("boom")))
}
