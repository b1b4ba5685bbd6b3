package app

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries everything clipctl needs to reach a ClipForge backend and
// keep local state. Values resolve in three layers: built-in defaults, then
// an optional YAML config file, then CLIPCTL_* environment variables.
type Config struct {
	ServerURL string // Required: backend base URL including the API prefix
	AuthURL   string // Optional: provider authorization page override
	Product   string // Optional: product name on the provider consent screen

	StateDir      string // Optional: local state directory (default: ~/.clipctl)
	DatabaseFile  string // Optional: state database filename inside StateDir
	MasterKeyFile string // Optional: state sealing key file, relative paths resolve inside StateDir

	Env       string // Environment (dev, prod) (default: prod)
	LogLevel  string // Log level (debug, info, warn, error) (default: warn)
	LogFormat string // Log format (json, text) (default: text)

	PollInterval   time.Duration // Handshake poll spacing (default: 2s)
	PollAttempts   int           // Handshake poll budget (default: 60)
	RequestTimeout time.Duration // Per-request deadline for non-media calls (default: 30s)

	RateLimitRPS   float64 // Outbound request pacing (default: 10)
	RateLimitBurst int     // Outbound burst allowance (default: 20)
}

// fileConfig is the YAML shape of the config file. Durations ride as strings
// ("2s", "500ms"); pointer fields tell an absent key apart from an explicit
// zero so the file only overrides what it names.
type fileConfig struct {
	ServerURL *string `yaml:"server_url"`
	AuthURL   *string `yaml:"auth_url"`
	Product   *string `yaml:"product"`

	StateDir      *string `yaml:"state_dir"`
	DatabaseFile  *string `yaml:"database_file"`
	MasterKeyFile *string `yaml:"master_key_file"`

	Env       *string `yaml:"env"`
	LogLevel  *string `yaml:"log_level"`
	LogFormat *string `yaml:"log_format"`

	PollInterval   *string `yaml:"poll_interval"`
	PollAttempts   *int    `yaml:"poll_attempts"`
	RequestTimeout *string `yaml:"request_timeout"`

	RateLimitRPS   *float64 `yaml:"rate_limit_rps"`
	RateLimitBurst *int     `yaml:"rate_limit_burst"`
}

// LoadConfig resolves configuration from defaults, an optional YAML file and
// the environment. An empty path falls back to <state-dir>/config.yaml when
// that file exists.
func LoadConfig(path string) (Config, error) {
	// A .env beside the process is a dev convenience; absence is fine.
	_ = godotenv.Load()

	cfg := Config{
		AuthURL:        "https://app.plex.tv/auth",
		Product:        "ClipForge",
		StateDir:       defaultStateDir(),
		DatabaseFile:   "clipctl.db",
		MasterKeyFile:  "master.key",
		Env:            "prod",
		LogLevel:       "warn",
		LogFormat:      "text",
		PollInterval:   2 * time.Second,
		PollAttempts:   60,
		RequestTimeout: 30 * time.Second,
		RateLimitRPS:   10,
		RateLimitBurst: 20,
	}

	if path == "" {
		// Honor the state-dir override when discovering the default file.
		stateDir := getEnvOrDefault("CLIPCTL_STATE_DIR", cfg.StateDir)
		candidate := filepath.Join(stateDir, "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations clipctl cannot run with.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required (set it in the config file or CLIPCTL_SERVER_URL)")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server_url %q is not an absolute URL", c.ServerURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.PollAttempts <= 0 {
		return fmt.Errorf("poll_attempts must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit values must be positive")
	}
	return nil
}

// DatabasePath is the resolved path of the local state database.
func (c Config) DatabasePath() string {
	return filepath.Join(c.StateDir, c.DatabaseFile)
}

// MasterKeyPath is the resolved path of the state sealing key. An empty
// MasterKeyFile disables file-based sealing keys entirely.
func (c Config) MasterKeyPath() string {
	if c.MasterKeyFile == "" || filepath.IsAbs(c.MasterKeyFile) {
		return c.MasterKeyFile
	}
	return filepath.Join(c.StateDir, c.MasterKeyFile)
}

// loadConfigFile decodes a YAML config file over cfg. Decoding is strict:
// unknown keys are an error, so typos do not silently fall back to defaults.
func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty config file sets nothing.
			return nil
		}
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc.apply(cfg)
}

// apply copies the file's values onto cfg, converting durations.
func (fc fileConfig) apply(cfg *Config) error {
	if fc.ServerURL != nil {
		cfg.ServerURL = *fc.ServerURL
	}
	if fc.AuthURL != nil {
		cfg.AuthURL = *fc.AuthURL
	}
	if fc.Product != nil {
		cfg.Product = *fc.Product
	}
	if fc.StateDir != nil {
		cfg.StateDir = *fc.StateDir
	}
	if fc.DatabaseFile != nil {
		cfg.DatabaseFile = *fc.DatabaseFile
	}
	if fc.MasterKeyFile != nil {
		cfg.MasterKeyFile = *fc.MasterKeyFile
	}
	if fc.Env != nil {
		cfg.Env = *fc.Env
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LogFormat != nil {
		cfg.LogFormat = *fc.LogFormat
	}
	if fc.PollInterval != nil {
		d, err := time.ParseDuration(*fc.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval %q: %w", *fc.PollInterval, err)
		}
		cfg.PollInterval = d
	}
	if fc.PollAttempts != nil {
		cfg.PollAttempts = *fc.PollAttempts
	}
	if fc.RequestTimeout != nil {
		d, err := time.ParseDuration(*fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout %q: %w", *fc.RequestTimeout, err)
		}
		cfg.RequestTimeout = d
	}
	if fc.RateLimitRPS != nil {
		cfg.RateLimitRPS = *fc.RateLimitRPS
	}
	if fc.RateLimitBurst != nil {
		cfg.RateLimitBurst = *fc.RateLimitBurst
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.ServerURL = getEnvOrDefault("CLIPCTL_SERVER_URL", cfg.ServerURL)
	cfg.AuthURL = getEnvOrDefault("CLIPCTL_AUTH_URL", cfg.AuthURL)
	cfg.Product = getEnvOrDefault("CLIPCTL_PRODUCT", cfg.Product)
	cfg.StateDir = getEnvOrDefault("CLIPCTL_STATE_DIR", cfg.StateDir)
	cfg.DatabaseFile = getEnvOrDefault("CLIPCTL_DATABASE_FILE", cfg.DatabaseFile)
	cfg.MasterKeyFile = getEnvOrDefault("CLIPCTL_MASTER_KEY_FILE", cfg.MasterKeyFile)
	cfg.Env = getEnvOrDefault("CLIPCTL_ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("CLIPCTL_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("CLIPCTL_LOG_FORMAT", cfg.LogFormat)
	cfg.PollInterval = getEnvDurationOrDefault("CLIPCTL_POLL_INTERVAL", cfg.PollInterval)
	cfg.PollAttempts = getEnvIntOrDefault("CLIPCTL_POLL_ATTEMPTS", cfg.PollAttempts)
	cfg.RequestTimeout = getEnvDurationOrDefault("CLIPCTL_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.RateLimitRPS = getEnvFloatOrDefault("CLIPCTL_RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getEnvIntOrDefault("CLIPCTL_RATE_LIMIT_BURST", cfg.RateLimitBurst)
}

// defaultStateDir keeps clipctl state under the user's home directory. When
// even that is unknown, fall back to the working directory.
func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clipctl"
	}
	return filepath.Join(home, ".clipctl")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
		return floatValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Accept duration strings (e.g. "2s", "500ms") or integer seconds.
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
