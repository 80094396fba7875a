package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/leetdraw/leetdraw/internal/auth"
	"github.com/leetdraw/leetdraw/internal/drafts"
	"github.com/leetdraw/leetdraw/internal/drive"
)

type Config struct {
	Port           int      `envconfig:"PORT" default:"8080"`
	DatabaseURL    string   `envconfig:"DATABASE_URL"`
	SessionSecret  string   `envconfig:"SESSION_SECRET" default:"dev-secret-change-in-production"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	DriveBaseURL      string `envconfig:"DRIVE_BASE_URL"`
	DriveUploadURL    string `envconfig:"DRIVE_UPLOAD_URL"`
	OAuthRevokeURL    string `envconfig:"OAUTH_REVOKE_URL"`
	OAuthTokenInfoURL string `envconfig:"OAUTH_TOKENINFO_URL"`
	OAuthClientID     string `envconfig:"OAUTH_CLIENT_ID"`
	DraftsFolder      string `envconfig:"DRAFTS_FOLDER"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	AuthRetries    int           `envconfig:"AUTH_RETRIES" default:"1"`
	BoundsPadding  float64       `envconfig:"BOUNDS_PADDING" default:"2"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DriveBaseURL == "" {
		c.DriveBaseURL = drive.DefaultBaseURL
	}
	if c.DriveUploadURL == "" {
		c.DriveUploadURL = drive.DefaultUploadURL
	}
	if c.OAuthRevokeURL == "" {
		c.OAuthRevokeURL = auth.DefaultRevokeURL
	}
	if c.OAuthTokenInfoURL == "" {
		c.OAuthTokenInfoURL = auth.DefaultTokenInfoURL
	}
	if c.DraftsFolder == "" {
		c.DraftsFolder = drafts.DefaultFolderName
	}
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.AuthRetries < 0 {
		return fmt.Errorf("AUTH_RETRIES must not be negative, got %d", c.AuthRetries)
	}
	if c.BoundsPadding < 0 {
		return fmt.Errorf("BOUNDS_PADDING must not be negative, got %g", c.BoundsPadding)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LOG_LEVEL.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}

// OriginPatterns converts ALLOWED_ORIGINS into websocket origin host
// patterns.
func (c *Config) OriginPatterns() []string {
	patterns := make([]string, 0, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			patterns = append(patterns, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}
