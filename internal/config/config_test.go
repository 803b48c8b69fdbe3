package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "push_subscriptions", cfg.DynamoTables.Subscriptions)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.FCM.TokenURL)
	assert.Equal(t, 10*time.Second, cfg.FCM.Timeout)
	assert.Equal(t, 32, cfg.Push.MaxConcurrency)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("FCM_PROJECT_ID", "demo-project")
	t.Setenv("PUSH_MAX_CONCURRENCY", "4")
	t.Setenv("VAPID_TIMEOUT", "2s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("DYNAMO_TABLE_SUBSCRIPTIONS", "subs")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "demo-project", cfg.FCM.ProjectID)
	assert.Equal(t, 4, cfg.Push.MaxConcurrency)
	assert.Equal(t, 2*time.Second, cfg.VAPID.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "subs", cfg.DynamoTables.Subscriptions)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("FCM_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsZeroConcurrency(t *testing.T) {
	t.Setenv("PUSH_MAX_CONCURRENCY", "0")
	_, err := Load()
	assert.ErrorContains(t, err, "PUSH_MAX_CONCURRENCY")
}
