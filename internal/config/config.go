package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"activityboard/internal/logging"
)

const (
	// Default server settings
	defaultAddr               = ":8080"
	defaultSessionTTL         = 24 * time.Hour
	defaultRateLimitPerSecond = 10
	defaultSlowRequestMs      = 200

	// Default activity API settings
	defaultAPIBaseURL = "http://localhost:8000"
	defaultAPITimeout = 10 * time.Second

	// Default storage settings
	defaultAuditDB        = "activityboard.db"
	defaultAuditRetention = 30 * 24 * time.Hour
	defaultSlowQueryMs    = 50

	// Default notification settings
	defaultEmailFrom = "Activity Board <noreply@activityboard.local>"

	// Default job schedules (5-field cron)
	defaultSessionSweep = "*/15 * * * *"
	defaultAuditPrune   = "0 3 * * *"

	defaultMetricsPrefix = "activityboard"
	defaultEnv           = "development"
)

// Config represents the complete application configuration.
type Config struct {
	Env        string           `yaml:"env"`
	Server     ServerConfig     `yaml:"server"`
	API        APIConfig        `yaml:"api"`
	Board      BoardConfig      `yaml:"board"`
	Security   SecurityConfig   `yaml:"security"`
	Storage    StorageConfig    `yaml:"storage"`
	Notify     NotifyConfig     `yaml:"notify"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    logging.Config   `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr               string        `yaml:"addr"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	RateLimitPerSecond int           `yaml:"rate_limit_per_second"`
	SlowRequestMs      int           `yaml:"slow_request_ms"`
}

// APIConfig points at the backend activity API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// BoardConfig tunes controller behaviour.
type BoardConfig struct {
	// ReenableOnFailure re-enables a participant delete control after a failed unregister.
	ReenableOnFailure *bool `yaml:"reenable_on_failure"`
	// MarkdownDescriptions renders activity descriptions as Markdown (raw HTML stays escaped).
	MarkdownDescriptions bool `yaml:"markdown_descriptions"`
}

// SecurityConfig holds CSRF and cookie settings.
type SecurityConfig struct {
	// CSRFKey is a 64 hex character key used as-is.
	CSRFKey string `yaml:"csrf_key"`
	// Secret is a passphrase the CSRF key is derived from when CSRFKey is unset.
	Secret         string   `yaml:"secret"`
	SecureCookies  bool     `yaml:"secure_cookies"`
	TrustedOrigins []string `yaml:"trusted_origins"`
}

// StorageConfig holds the audit database settings.
type StorageConfig struct {
	// AuditDB is a SQLite path; "off" disables the audit trail.
	AuditDB        string        `yaml:"audit_db"`
	AuditRetention time.Duration `yaml:"audit_retention"`
	SlowQueryMs    int           `yaml:"slow_query_ms"`
}

// NotifyConfig holds signup confirmation email settings.
type NotifyConfig struct {
	ConfirmSignups bool   `yaml:"confirm_signups"`
	ResendKey      string `yaml:"resend_key"`
	From           string `yaml:"from"`
	ReplyTo        string `yaml:"reply_to"`
}

// JobsConfig holds cron schedules for background maintenance.
type JobsConfig struct {
	SessionSweep string `yaml:"session_sweep"`
	AuditPrune   string `yaml:"audit_prune"`
}

// MonitoringConfig holds metrics settings.
type MonitoringConfig struct {
	MetricsPrefix string `yaml:"metrics_prefix"`
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ReenableOnFailure resolves the board option, defaulting to true.
func (c *Config) ReenableOnFailure() bool {
	if c.Board.ReenableOnFailure == nil {
		return true
	}
	return *c.Board.ReenableOnFailure
}

// AuditEnabled reports whether the audit trail is persisted.
func (c *Config) AuditEnabled() bool {
	return c.Storage.AuditDB != "" && c.Storage.AuditDB != "off"
}

// Validate performs basic validation on the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.Server.RateLimitPerSecond <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	if c.IsProduction() && c.Security.CSRFKey == "" && c.Security.Secret == "" {
		return fmt.Errorf("security csrf_key or secret is required in production")
	}
	if c.Notify.ConfirmSignups && c.Notify.From == "" {
		return fmt.Errorf("notify from address is required when confirm_signups is on")
	}
	return nil
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads a YAML file (if path is non-empty), applies defaults, then
// overlays ACTIVITYBOARD_* environment variables and validates the result.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.setDefaults()
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Env == "" {
		c.Env = defaultEnv
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = defaultSessionTTL
	}
	if c.Server.RateLimitPerSecond == 0 {
		c.Server.RateLimitPerSecond = defaultRateLimitPerSecond
	}
	if c.Server.SlowRequestMs == 0 {
		c.Server.SlowRequestMs = defaultSlowRequestMs
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultAPIBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = defaultAPITimeout
	}
	if c.Storage.AuditDB == "" {
		c.Storage.AuditDB = defaultAuditDB
	}
	if c.Storage.AuditRetention == 0 {
		c.Storage.AuditRetention = defaultAuditRetention
	}
	if c.Storage.SlowQueryMs == 0 {
		c.Storage.SlowQueryMs = defaultSlowQueryMs
	}
	if c.Notify.From == "" {
		c.Notify.From = defaultEmailFrom
	}
	if c.Jobs.SessionSweep == "" {
		c.Jobs.SessionSweep = defaultSessionSweep
	}
	if c.Jobs.AuditPrune == "" {
		c.Jobs.AuditPrune = defaultAuditPrune
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
}

// applyEnv overlays environment variables on top of file values.
func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString("ACTIVITYBOARD_ENV", &c.Env)
	setString("ACTIVITYBOARD_ADDR", &c.Server.Addr)
	setString("ACTIVITYBOARD_API_URL", &c.API.BaseURL)
	setString("ACTIVITYBOARD_CSRF_KEY", &c.Security.CSRFKey)
	setString("ACTIVITYBOARD_SECRET", &c.Security.Secret)
	setString("ACTIVITYBOARD_AUDIT_DB", &c.Storage.AuditDB)
	setString("ACTIVITYBOARD_RESEND_KEY", &c.Notify.ResendKey)
	setString("ACTIVITYBOARD_EMAIL_FROM", &c.Notify.From)
	setString("ACTIVITYBOARD_REPLY_TO", &c.Notify.ReplyTo)
	setString("ACTIVITYBOARD_LOG_LEVEL", &c.Logging.Level)
	setString("ACTIVITYBOARD_LOG_FORMAT", &c.Logging.Format)

	if v := getenv("ACTIVITYBOARD_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ACTIVITYBOARD_API_TIMEOUT: %w", err)
		}
		c.API.Timeout = d
	}
	if v := getenv("ACTIVITYBOARD_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ACTIVITYBOARD_RATE_LIMIT: %w", err)
		}
		c.Server.RateLimitPerSecond = n
	}
	if v := getenv("ACTIVITYBOARD_CONFIRM_SIGNUPS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ACTIVITYBOARD_CONFIRM_SIGNUPS: %w", err)
		}
		c.Notify.ConfirmSignups = b
	}
	if c.IsProduction() {
		c.Security.SecureCookies = true
	}
	return nil
}
