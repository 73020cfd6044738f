package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Workers  WorkersConfig  `yaml:"workers"`
	Ingest   IngestConfig   `yaml:"ingest"`
	SendGrid SendGridConfig `yaml:"sendgrid"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	LogLevel string         `yaml:"log_level"`
}

// ServerConfig holds the listener ports. The webhook server and the
// metrics/ops server bind separately.
type ServerConfig struct {
	Host        string `yaml:"host"`
	WebhookPort int    `yaml:"webhook_port"`
	MetricsPort int    `yaml:"metrics_port"`
}

// DatabaseConfig holds Postgres connection settings. An empty Host
// means no database is configured and the in-memory store is used.
type DatabaseConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Name    string `yaml:"name"`
	User    string `yaml:"user"`
	Pass    string `yaml:"pass"`
	SSLMode string `yaml:"sslmode"`
	// URL wins over the discrete fields when set.
	URL string `yaml:"url"`
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Name, c.User, c.Pass, c.SSLMode)
}

// Configured reports whether any database target is set.
func (c DatabaseConfig) Configured() bool {
	return c.URL != "" || c.Host != ""
}

// RedisConfig holds the shared Redis used for ingest pacing and the
// delivery lock. Empty URL degrades both to in-process fallbacks.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// WorkersConfig holds the job queue sizing.
type WorkersConfig struct {
	Count         int `yaml:"count"`
	QueueCapacity int `yaml:"queue_capacity"`
	Retries       int `yaml:"retries"`
}

// SourceConfig holds per-platform ingester settings.
type SourceConfig struct {
	SearchTerm            string `yaml:"search_term"`
	Location              string `yaml:"location"`
	Industry              string `yaml:"industry"`
	Limit                 int    `yaml:"limit"`
	ImportPath            string `yaml:"import_path"`
	ScrapeIntervalSeconds int    `yaml:"scrape_interval_seconds"`
	RatePerMinute         int    `yaml:"rate_per_minute"`
}

// ScrapeInterval returns the scheduler period as a duration.
func (c SourceConfig) ScrapeInterval() time.Duration {
	return time.Duration(c.ScrapeIntervalSeconds) * time.Second
}

// IngestConfig holds the three source configurations.
type IngestConfig struct {
	LinkedIn   SourceConfig `yaml:"linkedin"`
	Instagram  SourceConfig `yaml:"instagram"`
	GoogleMaps SourceConfig `yaml:"google_maps"`
	// GoogleMapsAPIKey is separate so it can come from the environment.
	GoogleMapsAPIKey string `yaml:"google_maps_api_key"`
}

// SendGridConfig holds the email sender and event webhook settings.
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	// EventPublicKey is the base64 Ed25519 signed-event key.
	EventPublicKey string `yaml:"event_public_key"`
	// WebhookToken is the bearer fallback for unsigned events.
	WebhookToken string `yaml:"webhook_token"`
}

// TwilioConfig holds the WhatsApp sender and status webhook settings.
type TwilioConfig struct {
	AccountSID   string `yaml:"account_sid"`
	AuthToken    string `yaml:"auth_token"`
	WhatsAppFrom string `yaml:"whatsapp_from"`
	WebhookURL   string `yaml:"webhook_url"`
}

// Load reads and parses the configuration file. A missing file yields
// the defaults so the binary can run from env vars alone.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.WebhookPort == 0 {
		cfg.Server.WebhookPort = 8080
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9090
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Workers.Count == 0 {
		cfg.Workers.Count = 2
	}
	if cfg.Workers.QueueCapacity == 0 {
		cfg.Workers.QueueCapacity = 64
	}
	if cfg.Workers.Retries == 0 {
		cfg.Workers.Retries = 3
	}
	if cfg.Ingest.LinkedIn.ScrapeIntervalSeconds == 0 {
		cfg.Ingest.LinkedIn.ScrapeIntervalSeconds = 3600
	}
	if cfg.Ingest.Instagram.ScrapeIntervalSeconds == 0 {
		cfg.Ingest.Instagram.ScrapeIntervalSeconds = 3600
	}
	if cfg.Ingest.GoogleMaps.ScrapeIntervalSeconds == 0 {
		cfg.Ingest.GoogleMaps.ScrapeIntervalSeconds = 21600
	}
	if cfg.Ingest.LinkedIn.RatePerMinute == 0 {
		cfg.Ingest.LinkedIn.RatePerMinute = 30
	}
	if cfg.Ingest.Instagram.RatePerMinute == 0 {
		cfg.Ingest.Instagram.RatePerMinute = 30
	}
	if cfg.Ingest.GoogleMaps.RatePerMinute == 0 {
		cfg.Ingest.GoogleMaps.RatePerMinute = 60
	}
	if cfg.Ingest.LinkedIn.Limit == 0 {
		cfg.Ingest.LinkedIn.Limit = 25
	}
	if cfg.Ingest.Instagram.Limit == 0 {
		cfg.Ingest.Instagram.Limit = 25
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env
// vars, so secrets can live in .env locally and in real env vars in
// deployment.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := envInt("DB_PORT"); v != 0 {
		cfg.Database.Port = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASS"); v != "" {
		cfg.Database.Pass = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := envInt("WORKER_COUNT"); v != 0 {
		cfg.Workers.Count = v
	}
	if v := envInt("METRICS_PORT"); v != 0 {
		cfg.Server.MetricsPort = v
	}
	if v := envInt("WEBHOOK_PORT"); v != 0 {
		cfg.Server.WebhookPort = v
	}
	if v := envInt("LINKEDIN_SCRAPE_INTERVAL"); v != 0 {
		cfg.Ingest.LinkedIn.ScrapeIntervalSeconds = v
	}
	if v := envInt("INSTAGRAM_SCRAPE_INTERVAL"); v != 0 {
		cfg.Ingest.Instagram.ScrapeIntervalSeconds = v
	}
	if v := envInt("GMAPS_SCRAPE_INTERVAL"); v != 0 {
		cfg.Ingest.GoogleMaps.ScrapeIntervalSeconds = v
	}
	if v := envInt("LINKEDIN_RATE_LIMIT_PER_MINUTE"); v != 0 {
		cfg.Ingest.LinkedIn.RatePerMinute = v
	}
	if v := envInt("INSTAGRAM_RATE_LIMIT_PER_MINUTE"); v != 0 {
		cfg.Ingest.Instagram.RatePerMinute = v
	}
	if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		cfg.Ingest.GoogleMapsAPIKey = v
	}
	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		cfg.SendGrid.APIKey = v
	}
	if v := os.Getenv("SENDGRID_FROM_EMAIL"); v != "" {
		cfg.SendGrid.FromEmail = v
	}
	if v := os.Getenv("SENDGRID_EVENT_PUBLIC_KEY"); v != "" {
		cfg.SendGrid.EventPublicKey = v
	}
	if v := os.Getenv("SENDGRID_WEBHOOK_TOKEN"); v != "" {
		cfg.SendGrid.WebhookToken = v
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Twilio.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Twilio.AuthToken = v
	}
	if v := os.Getenv("TWILIO_WHATSAPP_FROM"); v != "" {
		cfg.Twilio.WhatsAppFrom = v
	}
	if v := os.Getenv("TWILIO_WEBHOOK_URL"); v != "" {
		cfg.Twilio.WebhookURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
