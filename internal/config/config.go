package config

import (
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/joaquindlz/wp-bot/internal/errors"
	"github.com/joaquindlz/wp-bot/internal/models"
	"github.com/joaquindlz/wp-bot/internal/security"

	"github.com/caarlos0/env/v11"
)

// Names of the positional arguments, used as config_key in errors
const (
	KeyAPIEndpoint     = "apiEndpoint"
	KeyAuthToken       = "authToken"
	KeyTargetGroupName = "targetGroupName"
)

// UsageError is returned when the positional arguments are incomplete.
// Callers print Usage to stderr and exit with status 1.
type UsageError struct {
	Err  *apperrors.AppError
	Mode models.Scope
}

func (e UsageError) Error() string {
	return e.Err.Error()
}

func (e UsageError) Unwrap() error {
	return e.Err
}

func missingArg(key string, mode models.Scope) error {
	return UsageError{Err: apperrors.NewMissingConfigError(key), Mode: mode}
}

// Usage returns the command-line synopsis for a mode
func Usage(program string, mode models.Scope) string {
	if mode == models.ScopeGroup {
		return fmt.Sprintf("usage: %s --mode group <apiEndpoint> <targetGroupName>\n"+
			"example: %s --mode group https://your-api.example/endpoint \"Exact Group Name\"", program, program)
	}
	return fmt.Sprintf("usage: %s <apiEndpoint> <authToken>\n"+
		"example: %s https://your-api.example/endpoint YOUR_BEARER_TOKEN", program, program)
}

// ParseMode converts the --mode flag value into a scope
func ParseMode(mode string) (models.Scope, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", string(models.ScopeAll):
		return models.ScopeAll, nil
	case string(models.ScopeGroup):
		return models.ScopeGroup, nil
	default:
		return "", apperrors.NewConfigError("mode", fmt.Sprintf("unknown mode %q (expected %q or %q)", mode, models.ScopeAll, models.ScopeGroup))
	}
}

// LoadConfig builds the configuration from the positional arguments and the
// environment. The positional arguments always win over the environment.
func LoadConfig(mode models.Scope, args []string) (*models.Config, error) {
	var cfg models.Config
	if err := env.Parse(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "failed to parse environment")
	}
	cfg.Mode = mode

	if err := applyArgs(&cfg, args); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyArgs(c *models.Config, args []string) error {
	if len(args) < 1 || strings.TrimSpace(args[0]) == "" {
		return missingArg(KeyAPIEndpoint, c.Mode)
	}
	c.APIEndpoint = strings.TrimSpace(args[0])

	var second string
	if len(args) >= 2 {
		second = args[1]
	}

	switch c.Mode {
	case models.ScopeGroup:
		if second == "" {
			return missingArg(KeyTargetGroupName, c.Mode)
		}
		c.TargetGroupName = second
	default:
		if strings.TrimSpace(second) == "" {
			return missingArg(KeyAuthToken, c.Mode)
		}
		c.AuthToken = strings.TrimSpace(second)
	}
	return nil
}

func validate(c *models.Config) error {
	u, err := url.Parse(c.APIEndpoint)
	if err != nil {
		return apperrors.NewConfigError(KeyAPIEndpoint, fmt.Sprintf("invalid API endpoint: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return apperrors.NewConfigError(KeyAPIEndpoint, fmt.Sprintf("API endpoint must use http or https, got %q", u.Scheme))
	}
	if u.Host == "" {
		return apperrors.NewConfigError(KeyAPIEndpoint, "API endpoint must include a host")
	}

	if err := validatePaths(&c.Paths); err != nil {
		return err
	}

	if c.Session.InitAttempts <= 0 {
		c.Session.InitAttempts = 1
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return apperrors.NewConfigError("TRACING_SAMPLE_RATE", fmt.Sprintf("tracing sample rate must be between 0 and 1, got %v", c.Tracing.SampleRate))
	}
	return nil
}

// validatePaths cleans the well-known locations in place. The state files
// must live outside the session directory, which operators delete to force
// a new pairing.
func validatePaths(p *models.PathsConfig) error {
	for _, entry := range []struct {
		name string
		key  string
		path *string
	}{
		{"session data path", "SESSION_DATA_PATH", &p.SessionDir},
		{"state file", "STATE_FILE", &p.StateFile},
		{"start-marker file", "START_FILE", &p.StartFile},
	} {
		clean, err := security.CleanPath(*entry.path)
		if err != nil {
			return apperrors.NewConfigError(entry.key, fmt.Sprintf("invalid %s: %v", entry.name, err))
		}
		*entry.path = clean
	}

	if p.StateFile == p.StartFile {
		return apperrors.NewConfigError("START_FILE", "state file and start-marker file must be different paths")
	}
	if security.WithinDir(p.StateFile, p.SessionDir) || security.WithinDir(p.StartFile, p.SessionDir) {
		return apperrors.NewConfigError("STATE_FILE", "state files must not be inside the session data path")
	}
	return nil
}
