package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
	assert.Equal(t, "local", cfg.Storage.Type)

	assert.Equal(t, 10*time.Minute, cfg.Submission.EditWindow)
	assert.Equal(t, 72*time.Hour, cfg.Submission.ExpiryHorizon)
	assert.Equal(t, 5.0, cfg.Submission.DefaultRadiusKm)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/app")
	t.Setenv("SUBMISSION_EDIT_WINDOW", "5m")
	t.Setenv("SUBMISSION_EXPIRY_HORIZON", "24h")
	t.Setenv("SUBMISSION_DEFAULT_RADIUS_KM", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres://localhost:5432/app", cfg.Database.URL)
	assert.Equal(t, 5*time.Minute, cfg.Submission.EditWindow)
	assert.Equal(t, 24*time.Hour, cfg.Submission.ExpiryHorizon)
	assert.Equal(t, 2.5, cfg.Submission.DefaultRadiusKm)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SUBMISSION_EDIT_WINDOW", "soon")
	t.Setenv("SUBMISSION_DEFAULT_RADIUS_KM", "wide")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.Submission.EditWindow)
	assert.Equal(t, 5.0, cfg.Submission.DefaultRadiusKm)
}
