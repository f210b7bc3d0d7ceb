package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "statements-dev", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, []string{"ara", "eng"}, cfg.OCR.Languages)
	assert.Zero(t, cfg.OCR.CropTop)
	assert.Zero(t, cfg.OCR.CropBottom)

	assert.Equal(t, "AED", cfg.Pipeline.DefaultCurrency)
	assert.Equal(t, 25, cfg.Pipeline.ExpectedRowsPerPage)

	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.Equal(t, 9090, cfg.Observability.MetricsPort)

	assert.Equal(t, "0 3 * * *", cfg.Rescan.Schedule)

	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, "./archive", cfg.Archive.Path)
	assert.Empty(t, cfg.Notify.WebhookURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("OCR_LANGUAGES", "eng, fra")
	t.Setenv("OCR_CROP_TOP", "0.12")
	t.Setenv("DEFAULT_CURRENCY", "SAR")
	t.Setenv("EXPECTED_ROWS_PER_PAGE", "40")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("RESCAN_SCHEDULE", "30 2 * * 1")
	t.Setenv("ARCHIVE_ENABLED", "true")
	t.Setenv("ARCHIVE_PATH", "/var/lib/statements")
	t.Setenv("NOTIFY_WEBHOOK_URL", "https://hooks.example.com/statements")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, []string{"eng", "fra"}, cfg.OCR.Languages)
	assert.Equal(t, 0.12, cfg.OCR.CropTop)
	assert.Equal(t, "SAR", cfg.Pipeline.DefaultCurrency)
	assert.Equal(t, 40, cfg.Pipeline.ExpectedRowsPerPage)
	assert.False(t, cfg.Observability.MetricsEnabled)
	assert.Equal(t, "30 2 * * 1", cfg.Rescan.Schedule)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, "/var/lib/statements", cfg.Archive.Path)
	assert.Equal(t, "https://hooks.example.com/statements", cfg.Notify.WebhookURL)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("POSTGRES_PORT", "not-a-port")
	t.Setenv("OCR_CROP_TOP", "top")
	t.Setenv("METRICS_ENABLED", "maybe")
	t.Setenv("OCR_LANGUAGES", " , ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Zero(t, cfg.OCR.CropTop)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.Equal(t, []string{"ara", "eng"}, cfg.OCR.Languages)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "app",
		Password: "secret", Database: "statements", SSLMode: "require",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=app password=secret dbname=statements sslmode=require",
		db.DSN(),
	)
}
