package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Credential is a backend username plus its long-lived secret.
// Order matters: the first credential is the default EPG credential
// unless an explicit URL auth override is configured.
type Credential struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config holds the complete application configuration
type Config struct {
	// HTTP server settings
	HTTP struct {
		Address string `yaml:"address"`
		Port    string `yaml:"port"`
	} `yaml:"http"`

	// Upstream TVHeadend settings
	Backend struct {
		Host    string        `yaml:"host"`
		Port    int           `yaml:"port"`
		Timeout time.Duration `yaml:"timeout"`
		// Name of the streaming-profile query parameter the backend
		// injects into stream URLs. Stripped so the backend selects
		// the profile at play time.
		ProfileParam string `yaml:"profile_param"`
	} `yaml:"backend"`

	// Credentials used for per-user channel fetches, in priority order
	Credentials []Credential `yaml:"credentials"`

	// URLAuth overrides the secret appended to stream and icon URLs.
	// Empty means "use the first credential's password".
	URLAuth string `yaml:"url_auth"`

	// AppendIconAuth also appends the auth secret to tvg-logo URLs
	AppendIconAuth bool `yaml:"append_icon_auth"`

	// SuppressEmptyGroups drops tag groups that produced no channels
	SuppressEmptyGroups bool `yaml:"suppress_empty_groups"`

	// EPG settings
	EPG struct {
		StripOffset bool `yaml:"strip_offset"`
		Retention   struct {
			Enabled bool `yaml:"enabled"`
			Days    int  `yaml:"days"`
			SizeMB  int  `yaml:"size_mb"`
		} `yaml:"retention"`
	} `yaml:"epg"`

	// Archive settings for durable snapshots
	Archive struct {
		// Dir holds the bolt database; empty disables persistence
		Dir string `yaml:"dir"`
		// Bootstrap runs an initial refresh at startup when no
		// archived artifact exists yet
		Bootstrap bool `yaml:"bootstrap"`
	} `yaml:"archive"`

	// Refresh settings
	Refresh struct {
		Attempts         int           `yaml:"attempts"`
		RetryDelay       time.Duration `yaml:"retry_delay"`
		PlaylistInterval time.Duration `yaml:"playlist_interval"`
		EPGInterval      time.Duration `yaml:"epg_interval"`
		// Circuit breaker guarding upstream fetches
		BreakerThreshold int           `yaml:"breaker_threshold"`
		BreakerTimeout   time.Duration `yaml:"breaker_timeout"`
	} `yaml:"refresh"`

	// Logging settings
	Log struct {
		Level string `yaml:"level"`
		// File enables rotating file output when non-empty
		File string `yaml:"file"`
	} `yaml:"log"`
}

// envOverrides mirrors the environment variables the original deployment
// used, applied on top of the YAML file.
type envOverrides struct {
	HTTPAddress         string        `envconfig:"HTTP_ADDRESS"`
	HTTPPort            string        `envconfig:"HTTP_PORT"`
	Host                string        `envconfig:"TVH_HOST"`
	Port                int           `envconfig:"TVH_PORT"`
	Users               string        `envconfig:"TVH_USERS"`
	URLAuth             string        `envconfig:"TVH_URL_AUTH"`
	AppendIconAuth      *bool         `envconfig:"TVH_APPEND_ICON_AUTH"`
	SuppressEmptyGroups *bool         `envconfig:"SUPPRESS_EMPTY_GROUPS"`
	StripOffset         *bool         `envconfig:"EPG_STRIP_OFFSET"`
	RetentionEnabled    *bool         `envconfig:"EPG_RETENTION_ENABLED"`
	RetentionDays       int           `envconfig:"EPG_RETENTION_DAYS"`
	RetentionSizeMB     int           `envconfig:"EPG_RETENTION_SIZE_MB"`
	ArchiveDir          string        `envconfig:"ARCHIVE_DIR"`
	Bootstrap           *bool         `envconfig:"CREATE_CACHE"`
	PlaylistInterval    time.Duration `envconfig:"REFRESH_INTERVAL"`
	EPGInterval         time.Duration `envconfig:"EPG_REFRESH_INTERVAL"`
	LogLevel            string        `envconfig:"LOG_LEVEL"`
	LogFile             string        `envconfig:"LOG_FILE_LOCATION"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	cfg := &Config{}

	cfg.HTTP.Address = "0.0.0.0"
	cfg.HTTP.Port = "9985"

	cfg.Backend.Host = "127.0.0.1"
	cfg.Backend.Port = 9981
	cfg.Backend.Timeout = 30 * time.Second
	cfg.Backend.ProfileParam = "profile"

	cfg.EPG.Retention.Days = 2
	cfg.EPG.Retention.SizeMB = 50

	cfg.Archive.Dir = "archive"

	cfg.Refresh.Attempts = 3
	cfg.Refresh.RetryDelay = 30 * time.Second
	cfg.Refresh.PlaylistInterval = 24 * time.Hour
	cfg.Refresh.EPGInterval = 24 * time.Hour
	cfg.Refresh.BreakerThreshold = 5
	cfg.Refresh.BreakerTimeout = 5 * time.Minute

	cfg.Log.Level = "INFO"

	return cfg
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTP.Address == "" {
		errors = append(errors, "HTTP address is required")
	}
	if c.HTTP.Port == "" {
		errors = append(errors, "HTTP port is required")
	}

	if c.Backend.Host == "" {
		errors = append(errors, "backend host is required")
	}
	if c.Backend.Port <= 0 || c.Backend.Port > 65535 {
		errors = append(errors, fmt.Sprintf("backend port must be in 1-65535, got %d", c.Backend.Port))
	}
	if c.Backend.Timeout <= 0 {
		errors = append(errors, "backend timeout must be positive")
	}

	if len(c.Credentials) == 0 {
		errors = append(errors, "at least one credential is required (set TVH_USERS or credentials in the config file)")
	}
	for i, cred := range c.Credentials {
		if cred.Username == "" {
			errors = append(errors, fmt.Sprintf("credential %d: username is required", i))
		}
		if cred.Password == "" {
			errors = append(errors, fmt.Sprintf("credential %d (%s): password is required", i, cred.Username))
		}
	}

	if c.EPG.Retention.Enabled {
		if c.EPG.Retention.Days <= 0 {
			errors = append(errors, "EPG retention days must be positive when retention is enabled")
		}
		if c.EPG.Retention.SizeMB <= 0 {
			errors = append(errors, "EPG retention size must be positive when retention is enabled")
		}
	}

	if c.Refresh.Attempts <= 0 {
		errors = append(errors, "refresh attempts must be positive")
	}
	if c.Refresh.RetryDelay < 0 {
		errors = append(errors, "refresh retry delay must not be negative")
	}
	if c.Refresh.PlaylistInterval <= 0 {
		errors = append(errors, "playlist refresh interval must be positive")
	}
	if c.Refresh.EPGInterval <= 0 {
		errors = append(errors, "EPG refresh interval must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// EPGAuth resolves the secret appended to rewritten URLs and used for
// guide fetches: the explicit override if set, else the first
// credential's password.
func (c *Config) EPGAuth() string {
	if c.URLAuth != "" {
		return c.URLAuth
	}
	if len(c.Credentials) > 0 {
		return c.Credentials[0].Password
	}
	return ""
}

// BackendURL returns the upstream base URL, e.g. "http://127.0.0.1:9981"
func (c *Config) BackendURL() string {
	return fmt.Sprintf("http://%s:%d", c.Backend.Host, c.Backend.Port)
}

// RetentionSizeBytes returns the configured size cap in bytes
func (c *Config) RetentionSizeBytes() int64 {
	return int64(c.EPG.Retention.SizeMB) << 20
}

// ParseCredentials parses a "user:pass,user2:pass2" string into an
// ordered credential list. Entries without a colon are skipped.
func ParseCredentials(s string) []Credential {
	var creds []Credential
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		user, pass, ok := strings.Cut(pair, ":")
		if !ok || user == "" {
			continue
		}
		creds = append(creds, Credential{Username: user, Password: pass})
	}
	return creds
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load loads configuration from a file (if present) and applies
// environment variable overrides
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); err == nil {
		cfg, err = LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg = Default()
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) error {
	var ov envOverrides
	if err := envconfig.Process("", &ov); err != nil {
		return err
	}

	if ov.HTTPAddress != "" {
		cfg.HTTP.Address = ov.HTTPAddress
	}
	if ov.HTTPPort != "" {
		cfg.HTTP.Port = ov.HTTPPort
	}
	if ov.Host != "" {
		cfg.Backend.Host = ov.Host
	}
	if ov.Port != 0 {
		cfg.Backend.Port = ov.Port
	}
	if ov.Users != "" {
		creds := ParseCredentials(ov.Users)
		if len(creds) == 0 {
			return fmt.Errorf("TVH_USERS is set but contains no user:pass pairs: %q", ov.Users)
		}
		cfg.Credentials = creds
	}
	if ov.URLAuth != "" {
		cfg.URLAuth = ov.URLAuth
	}
	if ov.AppendIconAuth != nil {
		cfg.AppendIconAuth = *ov.AppendIconAuth
	}
	if ov.SuppressEmptyGroups != nil {
		cfg.SuppressEmptyGroups = *ov.SuppressEmptyGroups
	}
	if ov.StripOffset != nil {
		cfg.EPG.StripOffset = *ov.StripOffset
	}
	if ov.RetentionEnabled != nil {
		cfg.EPG.Retention.Enabled = *ov.RetentionEnabled
	}
	if ov.RetentionDays != 0 {
		cfg.EPG.Retention.Days = ov.RetentionDays
	}
	if ov.RetentionSizeMB != 0 {
		cfg.EPG.Retention.SizeMB = ov.RetentionSizeMB
	}
	if ov.ArchiveDir != "" {
		absPath, err := validateArchiveDir(ov.ArchiveDir)
		if err != nil {
			return err
		}
		cfg.Archive.Dir = absPath
	}
	if ov.Bootstrap != nil {
		cfg.Archive.Bootstrap = *ov.Bootstrap
	}
	if ov.PlaylistInterval != 0 {
		cfg.Refresh.PlaylistInterval = ov.PlaylistInterval
	}
	if ov.EPGInterval != 0 {
		cfg.Refresh.EPGInterval = ov.EPGInterval
	}
	if ov.LogLevel != "" {
		cfg.Log.Level = ov.LogLevel
	}
	if ov.LogFile != "" {
		cfg.Log.File = ov.LogFile
	}

	return nil
}

// validateArchiveDir validates and normalizes the archive directory path
func validateArchiveDir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("archive directory cannot be empty")
	}

	if !filepath.IsAbs(dir) {
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("failed to resolve absolute path for archive dir: %w", err)
		}
		return absPath, nil
	}

	return dir, nil
}

// Print outputs the configuration to stdout, secrets redacted
func (c *Config) Print() {
	fmt.Printf("httpAddress: %v\n", c.HTTP.Address)
	fmt.Printf("httpPort: %v\n", c.HTTP.Port)
	fmt.Printf("backendUrl: %v\n", c.BackendURL())
	users := make([]string, 0, len(c.Credentials))
	for _, cred := range c.Credentials {
		users = append(users, cred.Username)
	}
	fmt.Printf("credentials: %s\n", strings.Join(users, ", "))
	fmt.Printf("urlAuthOverride: %v\n", c.URLAuth != "")
	fmt.Printf("appendIconAuth: %v\n", c.AppendIconAuth)
	fmt.Printf("suppressEmptyGroups: %v\n", c.SuppressEmptyGroups)
	fmt.Printf("epgStripOffset: %v\n", c.EPG.StripOffset)
	fmt.Printf("epgRetentionEnabled: %v\n", c.EPG.Retention.Enabled)
	if c.EPG.Retention.Enabled {
		fmt.Printf("epgRetentionDays: %v\n", c.EPG.Retention.Days)
		fmt.Printf("epgRetentionSizeMB: %v\n", c.EPG.Retention.SizeMB)
	}
	fmt.Printf("archiveDir: %v\n", c.Archive.Dir)
	fmt.Printf("archiveBootstrap: %v\n", c.Archive.Bootstrap)
	fmt.Printf("playlistInterval: %v\n", c.Refresh.PlaylistInterval)
	fmt.Printf("epgInterval: %v\n", c.Refresh.EPGInterval)
	fmt.Printf("logLevel: %v\n", c.Log.Level)
}
