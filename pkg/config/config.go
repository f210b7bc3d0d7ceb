// Package config loads pipeline configuration from environment variables,
// with a .env file honored when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Database      DatabaseConfig
	OCR           OCRConfig
	Pipeline      PipelineConfig
	Observability ObservabilityConfig
	Rescan        RescanConfig
	Archive       ArchiveConfig
	Notify        NotifyConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type OCRConfig struct {
	// Languages is the Tesseract language list, most specific first.
	Languages []string
	// Crop fractions trimmed from each page edge before OCR.
	CropTop    float64
	CropLeft   float64
	CropRight  float64
	CropBottom float64
}

type PipelineConfig struct {
	DefaultCurrency     string
	ExpectedRowsPerPage int
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

type RescanConfig struct {
	// Schedule is a standard 5-field cron expression.
	Schedule string
}

type ArchiveConfig struct {
	// Enabled turns on archiving of successfully extracted source files.
	Enabled bool
	Path    string
}

type NotifyConfig struct {
	// WebhookURL receives pipeline events. Empty disables notifications.
	WebhookURL string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "statements-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		OCR: OCRConfig{
			Languages:  getEnvAsList("OCR_LANGUAGES", []string{"ara", "eng"}),
			CropTop:    getEnvAsFloat("OCR_CROP_TOP", 0),
			CropLeft:   getEnvAsFloat("OCR_CROP_LEFT", 0),
			CropRight:  getEnvAsFloat("OCR_CROP_RIGHT", 0),
			CropBottom: getEnvAsFloat("OCR_CROP_BOTTOM", 0),
		},
		Pipeline: PipelineConfig{
			DefaultCurrency:     getEnv("DEFAULT_CURRENCY", "AED"),
			ExpectedRowsPerPage: getEnvAsInt("EXPECTED_ROWS_PER_PAGE", 25),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
		Rescan: RescanConfig{
			Schedule: getEnv("RESCAN_SCHEDULE", "0 3 * * *"),
		},
		Archive: ArchiveConfig{
			Enabled: getEnvAsBool("ARCHIVE_ENABLED", false),
			Path:    getEnv("ARCHIVE_PATH", "./archive"),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
