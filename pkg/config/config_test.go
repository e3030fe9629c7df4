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

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10000, cfg.Import.MaxRows)
	assert.Equal(t, "2006-01-02", cfg.Import.DateFormat)
	assert.Equal(t, 30*24*time.Hour, cfg.Import.StagingRetention)
	assert.Equal(t, "@daily", cfg.Import.CleanupSchedule)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("IMPORT_MAX_ROWS", "500")
	t.Setenv("STAGING_RETENTION", "72h")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Import.MaxRows)
	assert.Equal(t, 72*time.Hour, cfg.Import.StagingRetention)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestLoad_RejectsNonPositiveRowCap(t *testing.T) {
	t.Setenv("IMPORT_MAX_ROWS", "-1")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: 5432, User: "app", Password: "secret",
		Database: "finanzas", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=app password=secret dbname=finanzas sslmode=disable",
		c.DSN())
}
