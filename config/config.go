package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Debug    bool   `json:"debug"`
	Version  string `json:"version"`
	LogDir   string `json:"log_dir"`
	LogLevel string `json:"log_level"`

	// InvocationTimeout bounds a whole command invocation.
	InvocationTimeout time.Duration `json:"invocation_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`

	Discord    DiscordConfig    `json:"discord"`
	Summary    SummaryConfig    `json:"summary"`
	Transcript TranscriptConfig `json:"transcript"`
	RateLimit  RateLimitConfig  `json:"rate_limit"`
	Database   DatabaseConfig   `json:"database"`
	Storage    StorageConfig    `json:"storage"`
}

type DiscordConfig struct {
	Token         string `json:"-"`
	ChannelID     int64  `json:"channel_id"`
	CommandPrefix string `json:"command_prefix"`
	// RestrictToChannel drops commands issued outside ChannelID.
	RestrictToChannel bool `json:"restrict_to_channel"`
}

type SummaryConfig struct {
	Provider        string        `json:"provider"`
	Model           string        `json:"model"`
	OpenAIAPIKey    string        `json:"-"`
	AnthropicAPIKey string        `json:"-"`
	BaseURL         string        `json:"base_url"`
	MaxTokens       int64         `json:"max_tokens"`
	Timeout         time.Duration `json:"timeout"`
}

type TranscriptConfig struct {
	// APIKey is the YouTube Data API v3 key used for title lookups.
	APIKey       string        `json:"-"`
	Languages    []string      `json:"languages"`
	FetchTimeout time.Duration `json:"fetch_timeout"`
	MaxRetries   int           `json:"max_retries"`
}

type RateLimitConfig struct {
	Enabled           bool `json:"enabled"`
	RequestsPerMinute int  `json:"requests_per_minute"`
	BurstSize         int  `json:"burst_size"`
}

type DatabaseConfig struct {
	Enabled            bool          `json:"enabled"`
	Path               string        `json:"path"`
	MaxConnections     int           `json:"max_connections"`
	MaxIdleConnections int           `json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
}

type StorageConfig struct {
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
}

// Enabled reports whether a summary archive bucket is configured.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; variables already set win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}

	channelID, err := getEnvAsChannelID("CHANNEL_ID")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Debug:    getEnvAsBool("DEBUG", false),
		Version:  getEnv("VERSION", "1.0.0"),
		LogDir:   getEnv("LOG_DIR", "./logs"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		InvocationTimeout: getEnvAsDuration("INVOCATION_TIMEOUT", 5*time.Minute),
		ShutdownTimeout:   getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		Discord: DiscordConfig{
			Token:             getEnv("DISCORD_TOKEN", ""),
			ChannelID:         channelID,
			CommandPrefix:     getEnv("COMMAND_PREFIX", "!"),
			RestrictToChannel: getEnvAsBool("RESTRICT_TO_CHANNEL", false),
		},

		Summary: SummaryConfig{
			Provider:        strings.ToLower(getEnv("SUMMARY_PROVIDER", ProviderOpenAI)),
			Model:           getEnv("SUMMARY_MODEL", ""),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:         getEnv("SUMMARY_BASE_URL", ""),
			MaxTokens:       getEnvAsInt64("SUMMARY_MAX_TOKENS", 4096),
			Timeout:         getEnvAsDuration("SUMMARY_TIMEOUT", 2*time.Minute),
		},

		Transcript: TranscriptConfig{
			APIKey:       getEnv("API_KEY", ""),
			Languages:    getEnvAsStringSlice("TRANSCRIPT_LANGUAGES", []string{"en"}),
			FetchTimeout: getEnvAsDuration("TRANSCRIPT_FETCH_TIMEOUT", 30*time.Second),
			MaxRetries:   getEnvAsInt("TRANSCRIPT_MAX_RETRIES", 2),
		},

		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 6),
			BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 3),
		},

		Database: DatabaseConfig{
			Enabled:            getEnvAsBool("DB_ENABLED", true),
			Path:               getEnv("DB_PATH", "./data/history.db"),
			MaxConnections:     getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		Storage: StorageConfig{
			AccessKey: getEnv("SPACES_ACCESS_KEY", ""),
			SecretKey: getEnv("SPACES_SECRET_KEY", ""),
			Region:    getEnv("SPACES_REGION", "us-east-1"),
			Endpoint:  getEnv("SPACES_ENDPOINT", ""),
			Bucket:    getEnv("SPACES_BUCKET", ""),
		},
	}

	if cfg.Summary.Model == "" {
		cfg.Summary.Model = defaultModel(cfg.Summary.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultModel(provider string) string {
	if provider == ProviderAnthropic {
		return "claude-sonnet-4-20250514"
	}
	return "gpt-4o"
}

// ChannelIDString returns the home channel as the platform's snowflake string.
func (c *Config) ChannelIDString() string {
	return strconv.FormatInt(c.Discord.ChannelID, 10)
}

func (c *Config) Validate() error {
	if err := validateCredentials(c); err != nil {
		return err
	}

	if err := validateTimeouts(c); err != nil {
		return err
	}

	if err := validatePaths(c); err != nil {
		return err
	}

	if c.Transcript.APIKey == "" {
		logrus.Warn("API_KEY is not set, video titles will not be looked up")
	}

	return nil
}

func validateCredentials(c *Config) error {
	if c.Discord.Token == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	if c.Discord.ChannelID <= 0 {
		return errors.New("CHANNEL_ID is required")
	}
	if c.Discord.CommandPrefix == "" {
		return errors.New("command prefix must not be empty")
	}

	switch c.Summary.Provider {
	case ProviderOpenAI:
		if c.Summary.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderAnthropic:
		if c.Summary.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	default:
		return errors.Errorf("unsupported summary provider: %s", c.Summary.Provider)
	}

	if c.Storage.Enabled() && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return errors.New("SPACES_ACCESS_KEY and SPACES_SECRET_KEY are required when SPACES_BUCKET is set")
	}

	return nil
}

func validateTimeouts(c *Config) error {
	if c.InvocationTimeout <= 0 {
		return errors.New("invocation timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Summary.Timeout <= 0 {
		return errors.New("summary timeout must be positive")
	}
	if c.Transcript.FetchTimeout <= 0 {
		return errors.New("transcript fetch timeout must be positive")
	}
	if c.Transcript.MaxRetries < 0 {
		return errors.New("transcript max retries must not be negative")
	}
	return nil
}

func validatePaths(c *Config) error {
	paths := []struct {
		path string
		name string
	}{
		{c.LogDir, "log directory"},
	}
	if c.Database.Enabled {
		paths = append(paths, struct {
			path string
			name string
		}{filepath.Dir(c.Database.Path), "database directory"})
	}

	for _, p := range paths {
		if err := os.MkdirAll(p.path, 0755); err != nil {
			return errors.Wrapf(err, "failed to create %s", p.name)
		}
	}

	return nil
}

// Helper functions for reading environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsChannelID(key string) (int64, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "%s must be a numeric channel id", key)
	}
	return id, nil
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		warnInvalid(key, value, defaultValue, "Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
		warnInvalid(key, value, defaultValue, "Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		warnInvalid(key, value, defaultValue, "Invalid boolean, using default")
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		warnInvalid(key, value, defaultValue, "Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			parts := strings.Split(value, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return out
		}
	}
	return defaultValue
}

func warnInvalid(key, value string, defaultValue interface{}, msg string) {
	logrus.WithFields(logrus.Fields{
		"key":          key,
		"value":        value,
		"defaultValue": defaultValue,
	}).Warn(msg)
}
