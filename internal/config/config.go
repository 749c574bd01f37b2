// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the application. Providers are optional:
// a stage whose provider is not configured (or when DevMode is set) runs on
// the deterministic mock generator instead.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// DevMode forces mock generation for every stage, regardless of
	// provider configuration.
	DevMode bool `env:"DEV_MODE, default=false" json:"dev_mode"`

	// StrictProviders disables fallback-to-mock: exhausting a live
	// provider's retry budget fails the job.
	StrictProviders bool `env:"STRICT_PROVIDERS, default=false" json:"strict_providers"`

	// Script provider (chat-completion API)
	ScriptAPIKey  string `env:"SCRIPT_API_KEY" json:"-"` // Masked in JSON
	ScriptBaseURL string `env:"SCRIPT_BASE_URL" json:"script_base_url,omitempty"`
	ScriptModel   string `env:"SCRIPT_MODEL" json:"script_model,omitempty"`

	// TTS provider
	TTSAPIKey  string `env:"TTS_API_KEY" json:"-"` // Masked in JSON
	TTSBaseURL string `env:"TTS_BASE_URL" json:"tts_base_url,omitempty"`
	TTSVoice   string `env:"TTS_VOICE" json:"tts_voice,omitempty"`

	// Lip-sync provider
	LipsyncAPIKey   string `env:"LIPSYNC_API_KEY" json:"-"` // Masked in JSON
	LipsyncEndpoint string `env:"LIPSYNC_ENDPOINT" json:"lipsync_endpoint,omitempty"`

	// Retry settings, shared by all stages
	RetryMaxAttempts int `env:"RETRY_MAX_ATTEMPTS, default=3" json:"retry_max_attempts"`
	RetryBaseDelayMS int `env:"RETRY_BASE_DELAY_MS, default=500" json:"retry_base_delay_ms"`
	ScriptTimeoutSec int `env:"SCRIPT_TIMEOUT_SEC, default=10" json:"script_timeout_sec"`
	AudioTimeoutSec  int `env:"AUDIO_TIMEOUT_SEC, default=30" json:"audio_timeout_sec"`
	VideoTimeoutSec  int `env:"VIDEO_TIMEOUT_SEC, default=60" json:"video_timeout_sec"`
	CacheTTLSec      int `env:"CACHE_TTL_SEC, default=300" json:"cache_ttl_sec"`
	JobRetentionSec  int `env:"JOB_RETENTION_SEC, default=600" json:"job_retention_sec"`

	// Artifact store settings. With S3 unset, associations are written to
	// DataDir; with DataDir also empty, a temp directory is used.
	DataDir            string `env:"DATA_DIR" json:"data_dir,omitempty"`
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// ScriptEnabled reports whether the live script provider is configured.
func (c *Config) ScriptEnabled() bool {
	return !c.DevMode && c.ScriptAPIKey != ""
}

// TTSEnabled reports whether the live TTS provider is configured.
func (c *Config) TTSEnabled() bool {
	return !c.DevMode && c.TTSAPIKey != "" && c.TTSBaseURL != ""
}

// LipsyncEnabled reports whether the live lip-sync provider is configured.
func (c *Config) LipsyncEnabled() bool {
	return !c.DevMode && c.LipsyncAPIKey != "" && c.LipsyncEndpoint != ""
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// ScriptTimeout returns the per-attempt script stage timeout.
func (c *Config) ScriptTimeout() time.Duration {
	return time.Duration(c.ScriptTimeoutSec) * time.Second
}

// AudioTimeout returns the per-attempt audio stage timeout.
func (c *Config) AudioTimeout() time.Duration {
	return time.Duration(c.AudioTimeoutSec) * time.Second
}

// VideoTimeout returns the per-attempt video stage timeout.
func (c *Config) VideoTimeout() time.Duration {
	return time.Duration(c.VideoTimeoutSec) * time.Second
}

// CacheTTL returns the result cache time-to-live.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// JobRetention returns how long terminal jobs stay queryable.
func (c *Config) JobRetention() time.Duration {
	return time.Duration(c.JobRetentionSec) * time.Second
}

// RetryBaseDelay returns the initial backoff delay.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMS) * time.Millisecond
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DevMode: %t, StrictProviders: %t, Script: %t, TTS: %t, Lipsync: %t, S3Bucket: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DevMode,
		c.StrictProviders,
		c.ScriptEnabled(),
		c.TTSEnabled(),
		c.LipsyncEnabled(),
		c.S3Bucket,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
