package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ONCOHUB_PG_DSN", "postgres://localhost/oncohub")
	t.Setenv("ONCOHUB_JWT_SECRET", "0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.GRPCAddr)
	assert.Equal(t, "oncohub", cfg.JWTIssuer)
	assert.Equal(t, 30*time.Minute, cfg.ViewAsTTL)
	assert.Equal(t, "oncohub:permission-changes", cfg.EventsChannel)
	assert.Empty(t, cfg.CORSOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ONCOHUB_HTTP_ADDR", ":8000")
	t.Setenv("ONCOHUB_VIEW_AS_TTL", "5m")
	t.Setenv("ONCOHUB_RATE_BURST", "3")
	t.Setenv("ONCOHUB_CORS_ORIGINS", "https://app.oncohub.org, http://localhost:3000,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Minute, cfg.ViewAsTTL)
	assert.Equal(t, 3, cfg.RateBurst)
	assert.Equal(t, []string{"https://app.oncohub.org", "http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadReportsMalformedValues(t *testing.T) {
	t.Setenv("ONCOHUB_VIEW_AS_TTL", "soon")
	t.Setenv("ONCOHUB_RATE_PER_SEC", "ten")

	cfg, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ONCOHUB_VIEW_AS_TTL")
	assert.Contains(t, err.Error(), "ONCOHUB_RATE_PER_SEC")
	assert.Equal(t, 30*time.Minute, cfg.ViewAsTTL, "falls back to the default")
}

func TestValidate(t *testing.T) {
	t.Setenv("ONCOHUB_JWT_SECRET", "short")
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ONCOHUB_PG_DSN is required")
	assert.Contains(t, err.Error(), "ONCOHUB_JWT_SECRET")
}
