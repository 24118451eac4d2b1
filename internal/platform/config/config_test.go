// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/auth")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
}

func TestParse_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 720*time.Hour, cfg.Security.RefreshTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.Security.OTPTTL)
	assert.Equal(t, 12, cfg.Security.BcryptCost)
	assert.Equal(t, 5, cfg.Security.LockoutMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Security.LockoutDuration)
	assert.Equal(t, 90*24*time.Hour, cfg.Security.PasswordMaxAge)
	assert.Equal(t, 500*time.Millisecond, cfg.Security.ForgotPasswordMinLatency)
	assert.Equal(t, config.NotifyDriverLog, cfg.Notify.Driver)
	assert.Equal(t, "auth.notifications", cfg.Kafka.Topic)
	assert.False(t, cfg.UseRSA())
	assert.True(t, cfg.IsDevelopment())
}

func TestParse_NestedPrefixes(t *testing.T) {
	setRequired(t)
	t.Setenv("NOTIFY_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOCKOUT_MAX_ATTEMPTS", "3")

	cfg, err := config.Parse()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Security.LockoutMaxAttempts)
}

func TestParse_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing signing material", map[string]string{"JWT_ACCESS_SECRET": ""}},
		{"unknown driver", map[string]string{"NOTIFY_DRIVER": "pigeon"}},
		{"smtp without host", map[string]string{"NOTIFY_DRIVER": "smtp"}},
		{"kafka without brokers", map[string]string{"NOTIFY_DRIVER": "kafka"}},
		{"zero lockout attempts", map[string]string{"LOCKOUT_MAX_ATTEMPTS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			_, err := config.Parse()
			assert.Error(t, err)
		})
	}
}

func TestParse_MissingDatabaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")

	_, err := config.Parse()
	assert.Error(t, err)
}
