package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP         HTTPConfig
	Graph        GraphConfig
	Logging      LoggingConfig
	Certificates CertificateConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MetricsEnabled  bool          `env:"SERVER_METRICS_ENABLED" envDefault:"false"`
	AllowedOrigins  []string      `env:"SERVER_ALLOWED_ORIGINS" envSeparator:","`
}

// GraphConfig describes connectivity to the graph database.
type GraphConfig struct {
	URI            string `env:"GRAPH_URI"`
	Database       string `env:"GRAPH_DATABASE"`
	Username       string `env:"GRAPH_USERNAME"`
	Password       string `env:"GRAPH_PASSWORD"`
	MaxConnections int    `env:"GRAPH_MAX_CONNECTIONS" envDefault:"10"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `env:"LOG_LEVEL" envDefault:"info"`
	Format        string `env:"LOG_FORMAT" envDefault:"text"` // text|json
	IncludeCaller bool   `env:"LOG_INCLUDE_CALLER" envDefault:"false"`
}

// CertificateConfig governs certificate issuance.
type CertificateConfig struct {
	ValidityDays  int    `env:"CERTIFICATE_VALIDITY_DAYS" envDefault:"365"`
	PublicBaseURL string `env:"CERTIFICATE_PUBLIC_BASE_URL" envDefault:"https://lifescore.app"`
}

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return Config{}, fmt.Errorf("port %d is out of range", cfg.HTTP.Port)
	}
	if cfg.Certificates.ValidityDays <= 0 {
		return Config{}, fmt.Errorf("certificate validity must be positive, got %d days", cfg.Certificates.ValidityDays)
	}
	return cfg, nil
}

// Validity returns the configured certificate lifetime as a duration.
func (c CertificateConfig) Validity() time.Duration {
	return time.Duration(c.ValidityDays) * 24 * time.Hour
}
