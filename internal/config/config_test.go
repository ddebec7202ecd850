package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/insurance")
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.Equal(t, "islam__", cfg.LegacyTokenPrefix)
	assert.Equal(t, "dev-secret-change-in-production", cfg.JWTSecret)
	assert.Equal(t, 5*time.Minute, cfg.DashboardCacheTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.RejectOverpayment)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoad_RequiresSecretInProduction(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/insurance")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_ParsesLists(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/insurance")
	t.Setenv("ADMIN_EMAILS", "a@x.com, b@x.com,,")
	t.Setenv("REJECT_OVERPAYMENT", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, cfg.AdminEmails)
	assert.True(t, cfg.RejectOverpayment)
}

func TestLoad_MinioNeedsEndpoint(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/insurance")
	t.Setenv("STORAGE_DRIVER", "minio")
	t.Setenv("MINIO_ENDPOINT", "")

	_, err := Load()
	assert.ErrorContains(t, err, "MINIO_ENDPOINT")
}
