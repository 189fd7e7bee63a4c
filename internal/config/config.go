// Package config provides configuration for the session relay service.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the service configuration.
type Config struct {
	Server    Server
	Database  Database
	Upstream  Upstream
	Session   Session
	WebSocket WebSocket
	Telemetry Telemetry
	Events    Events
	Log       Log
}

type Server struct {
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`
	// PublicWSURL is the base advertised to clients as the connection endpoint.
	PublicWSURL string `envconfig:"PUBLIC_WS_URL" default:"ws://localhost:8080"`
}

type Database struct {
	URL string `envconfig:"DATABASE_URL" default:"file:solace.db?cache=shared&mode=rwc"`
}

type Upstream struct {
	// Provider is one of mock, websocket or openai. Empty means not configured.
	Provider         string `envconfig:"UPSTREAM_PROVIDER"`
	URL              string `envconfig:"UPSTREAM_URL"`
	APIKey           string `envconfig:"UPSTREAM_API_KEY"`
	Model            string `envconfig:"UPSTREAM_MODEL" default:"gpt-4o-mini"`
	ConnectAttempts  uint   `envconfig:"UPSTREAM_CONNECT_ATTEMPTS" default:"3"`
	ConnectTimeoutMs int    `envconfig:"UPSTREAM_CONNECT_TIMEOUT_MS" default:"10000"`
}

func (u Upstream) ConnectTimeout() time.Duration {
	return time.Duration(u.ConnectTimeoutMs) * time.Millisecond
}

type Session struct {
	IdleTimeoutMs       int `envconfig:"SESSION_IDLE_TIMEOUT_MS" default:"900000"`
	SubmitTimeoutMs     int `envconfig:"SESSION_SUBMIT_TIMEOUT_MS" default:"30000"`
	RetiredTTLMs        int `envconfig:"SESSION_RETIRED_TTL_MS" default:"3600000"`
	HistoryLookbackDays int `envconfig:"HISTORY_LOOKBACK_DAYS" default:"14"`
	PersistTimeoutMs    int `envconfig:"PERSIST_TIMEOUT_MS" default:"5000"`
}

func (s Session) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutMs) * time.Millisecond
}

func (s Session) SubmitTimeout() time.Duration {
	return time.Duration(s.SubmitTimeoutMs) * time.Millisecond
}

func (s Session) RetiredTTL() time.Duration {
	return time.Duration(s.RetiredTTLMs) * time.Millisecond
}

func (s Session) HistoryLookback() time.Duration {
	return time.Duration(s.HistoryLookbackDays) * 24 * time.Hour
}

func (s Session) PersistTimeout() time.Duration {
	return time.Duration(s.PersistTimeoutMs) * time.Millisecond
}

type WebSocket struct {
	PingIntervalMs int   `envconfig:"WS_PING_INTERVAL_MS" default:"30000"`
	WriteTimeoutMs int   `envconfig:"WS_WRITE_TIMEOUT_MS" default:"10000"`
	ReadTimeoutMs  int   `envconfig:"WS_READ_TIMEOUT_MS" default:"60000"`
	MaxMessageSize int64 `envconfig:"WS_MAX_MESSAGE_SIZE" default:"1048576"`
}

func (w WebSocket) PingInterval() time.Duration {
	return time.Duration(w.PingIntervalMs) * time.Millisecond
}

func (w WebSocket) WriteTimeout() time.Duration {
	return time.Duration(w.WriteTimeoutMs) * time.Millisecond
}

func (w WebSocket) ReadTimeout() time.Duration {
	return time.Duration(w.ReadTimeoutMs) * time.Millisecond
}

type Telemetry struct {
	Enabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	Endpoint string `envconfig:"OTEL_ENDPOINT" default:"localhost:4317"`
	Insecure bool   `envconfig:"OTEL_INSECURE" default:"true"`
}

type Events struct {
	// NATSURL enables lifecycle event publishing when set.
	NATSURL string `envconfig:"NATS_URL"`
}

type Log struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"console" description:"One of console or json"`
}

// Load reads configuration from the environment, after loading a .env file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	switch c.Upstream.Provider {
	case "", "mock", "openai":
	case "websocket":
		if c.Upstream.URL == "" {
			return fmt.Errorf("UPSTREAM_URL is required for the websocket provider")
		}
	default:
		return fmt.Errorf("unknown UPSTREAM_PROVIDER %q", c.Upstream.Provider)
	}
	if c.Upstream.ConnectAttempts == 0 {
		return fmt.Errorf("UPSTREAM_CONNECT_ATTEMPTS must be at least 1")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.Log.Format)
	}
	return nil
}
