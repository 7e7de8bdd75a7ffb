package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 5*time.Minute, cfg.StatsCacheTTL)
	require.Equal(t, time.Hour, cfg.UploadSessionTTL)
	require.EqualValues(t, 5*1024*1024, cfg.UploadMaxBytes)
	require.True(t, cfg.SeedEnabled)
	require.False(t, cfg.AuthEnabled())
	require.Equal(t, 75.0, cfg.AlertAttendance)
	require.Equal(t, 60.0, cfg.AlertMarks)
	require.Equal(t, 30, cfg.AlertFeeDays)
	require.Equal(t, "*", cfg.CORSOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DWATCH_APP_PORT", ":9090")
	t.Setenv("DWATCH_JWT_SECRET", "secret")
	t.Setenv("DWATCH_STATS_CACHE_TTL", "30s")
	t.Setenv("DWATCH_ALERT_ATTENDANCE", "80")
	t.Setenv("DWATCH_UPLOAD_MAX_BYTES", "0")
	t.Setenv("DWATCH_CORS_ORIGINS", "https://dashboard.example.edu")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.True(t, cfg.AuthEnabled())
	require.Equal(t, 30*time.Second, cfg.StatsCacheTTL)
	require.Equal(t, 80.0, cfg.AlertAttendance)
	require.EqualValues(t, 5*1024*1024, cfg.UploadMaxBytes)
	require.Equal(t, "https://dashboard.example.edu", cfg.CORSOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("DWATCH_UPLOAD_SESSION_TTL", "soon")
	_, err := Load()
	require.ErrorContains(t, err, "upload session ttl")
}

func TestLoadRequiresSeedTokenInProduction(t *testing.T) {
	t.Setenv("DWATCH_APP_ENV", "production")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("DWATCH_SEED_TOKEN", "token")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "token", cfg.SeedToken)
}
