package models

import (
	"time"

	"github.com/joaquindlz/wp-bot/internal/constants"
)

// Scope selects which conversations are forwarded
type Scope string

const (
	ScopeAll   Scope = "all"
	ScopeGroup Scope = "group"
)

// Config holds the application configuration. It is built once at start-up
// from the positional arguments and the environment, and never mutated.
type Config struct {
	APIEndpoint     string `json:"api_endpoint"`
	AuthToken       string `json:"-" env:"API_AUTH_TOKEN"`
	TargetGroupName string `json:"target_group_name,omitempty"`
	Mode            Scope  `json:"mode"`

	Paths   PathsConfig   `json:"paths"`
	Session SessionConfig `json:"session"`
	Server  ServerConfig  `json:"server"`
	Tracing TracingConfig `json:"tracing"`

	LogLevel string `json:"log_level" env:"LOG_LEVEL" envDefault:"info"`
}

// PathsConfig holds the well-known filesystem locations
type PathsConfig struct {
	SessionDir string `json:"session_dir" env:"SESSION_DATA_PATH" envDefault:"/usr/src/app/.wwebjs_auth"`
	StateFile  string `json:"state_file" env:"STATE_FILE" envDefault:"/tmp/wpbot/state"`
	StartFile  string `json:"start_file" env:"START_FILE" envDefault:"/tmp/wpbot/started"`
}

// SessionConfig holds Session Client start-up settings
type SessionConfig struct {
	InitAttempts     int `json:"init_attempts" env:"SESSION_INIT_ATTEMPTS" envDefault:"3"`
	InitialBackoffMs int `json:"initial_backoff_ms" env:"SESSION_INIT_BACKOFF_MS" envDefault:"500"`
}

// ServerConfig holds the optional status server settings
type ServerConfig struct {
	HealthAddr string `json:"health_addr" env:"HEALTH_ADDR"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled      bool    `json:"enabled" env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint string  `json:"otlp_endpoint" env:"TRACING_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	SampleRate   float64 `json:"sample_rate" env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
	UseStdout    bool    `json:"use_stdout" env:"TRACING_STDOUT" envDefault:"false"`
	Environment  string  `json:"environment" env:"TRACING_ENVIRONMENT" envDefault:"production"`
}

// ForwardTimeout is the fixed per-request timeout of the forwarder
const ForwardTimeout = constants.ForwardTimeoutSec * time.Second

// HasAuthToken reports whether a bearer token should be sent
func (c *Config) HasAuthToken() bool {
	return c.AuthToken != ""
}

// IsGroupMode reports whether forwarding is scoped to a single named group
func (c *Config) IsGroupMode() bool {
	return c.Mode == ScopeGroup
}
