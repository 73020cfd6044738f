package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  host: "127.0.0.1"
  webhook_port: 8181
  metrics_port: 9191

database:
  host: "db.internal"
  port: 5433
  name: "leadflow"
  user: "app"
  pass: "secret"

workers:
  count: 4
  queue_capacity: 128

ingest:
  linkedin:
    search_term: "crm tools"
    limit: 10
    scrape_interval_seconds: 900
    rate_per_minute: 12
  google_maps:
    search_term: "dentist"
    location: "Austin"
    industry: "healthcare"

sendgrid:
  api_key: "sg-key"
  from_email: "leads@leadflow.dev"

twilio:
  account_sid: "ACxxxx"
  whatsapp_from: "+14155550100"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8181, cfg.Server.WebhookPort)
	assert.Equal(t, 9191, cfg.Server.MetricsPort)

	assert.True(t, cfg.Database.Configured())
	assert.Equal(t, "host=db.internal port=5433 dbname=leadflow user=app password=secret sslmode=disable", cfg.Database.DSN())

	assert.Equal(t, 4, cfg.Workers.Count)
	assert.Equal(t, 128, cfg.Workers.QueueCapacity)
	assert.Equal(t, 3, cfg.Workers.Retries, "unset fields still get defaults")

	assert.Equal(t, "crm tools", cfg.Ingest.LinkedIn.SearchTerm)
	assert.Equal(t, 10, cfg.Ingest.LinkedIn.Limit)
	assert.Equal(t, 15*time.Minute, cfg.Ingest.LinkedIn.ScrapeInterval())
	assert.Equal(t, 12, cfg.Ingest.LinkedIn.RatePerMinute)
	assert.Equal(t, "Austin", cfg.Ingest.GoogleMaps.Location)

	assert.Equal(t, "sg-key", cfg.SendGrid.APIKey)
	assert.Equal(t, "+14155550100", cfg.Twilio.WhatsAppFrom)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.WebhookPort)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, 2, cfg.Workers.Count)
	assert.Equal(t, 64, cfg.Workers.QueueCapacity)
	assert.Equal(t, time.Hour, cfg.Ingest.LinkedIn.ScrapeInterval())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Database.Configured())
}

func TestLoadMalformedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [not a map"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "env-db")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("DB_NAME", "envdb")
	t.Setenv("DB_USER", "envuser")
	t.Setenv("DB_PASS", "envpass")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("METRICS_PORT", "9999")
	t.Setenv("WEBHOOK_PORT", "8888")
	t.Setenv("LINKEDIN_RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("GOOGLE_MAPS_API_KEY", "maps-key")
	t.Setenv("SENDGRID_API_KEY", "sg-env")
	t.Setenv("TWILIO_AUTH_TOKEN", "tw-env")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, 6432, cfg.Database.Port)
	assert.Contains(t, cfg.Database.DSN(), "dbname=envdb")
	assert.Contains(t, cfg.Database.DSN(), "password=envpass")
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 8, cfg.Workers.Count)
	assert.Equal(t, 9999, cfg.Server.MetricsPort)
	assert.Equal(t, 8888, cfg.Server.WebhookPort)
	assert.Equal(t, 5, cfg.Ingest.LinkedIn.RatePerMinute)
	assert.Equal(t, "maps-key", cfg.Ingest.GoogleMapsAPIKey)
	assert.Equal(t, "sg-env", cfg.SendGrid.APIKey)
	assert.Equal(t, "tw-env", cfg.Twilio.AuthToken)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestDatabaseURLWinsOverFields(t *testing.T) {
	t.Setenv("DB_HOST", "ignored-host")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/leadflow?sslmode=disable")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/leadflow?sslmode=disable", cfg.Database.DSN())
	assert.True(t, cfg.Database.Configured())
}
