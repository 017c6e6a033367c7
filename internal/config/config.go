// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Delivery modes.
const (
	DeliveryAttachment = "attachment"
	DeliveryR2         = "r2"
)

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// CORS
	AllowedOrigins []string

	// Extraction
	YtDlpPath          string
	FFmpegPath         string
	AudioFormat        string
	AudioBitrateKbps   int
	NoCheckCertificate bool
	ExtractTimeout     time.Duration
	TagTitle           bool

	// Delivery
	DeliveryMode string
	FlashTTL     time.Duration

	// R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2Endpoint        string // overrides the account endpoint, for S3-compatible stores
	R2URLExpiry       time.Duration
	R2MaxFileAge      time.Duration
	R2CleanupInterval time.Duration

	// History
	HistoryEnabled bool
	HistoryMaxAge  time.Duration

	// Paths
	DownloadDir  string
	DataDir      string
	PurgeOnStart bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg := &Config{
		// Server
		Port:      getEnv("PORT", "5000"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", ""),

		// CORS
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		// Extraction
		YtDlpPath:          getEnv("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:         getEnv("FFMPEG_PATH", ""),
		AudioFormat:        strings.ToLower(getEnv("AUDIO_FORMAT", "mp3")),
		AudioBitrateKbps:   getEnvInt("AUDIO_BITRATE_KBPS", 192),
		NoCheckCertificate: getEnvBool("NO_CHECK_CERTIFICATE", true),
		ExtractTimeout:     time.Duration(getEnvInt("EXTRACT_TIMEOUT", 600)) * time.Second,
		TagTitle:           getEnvBool("TAG_TITLE", true),

		// Delivery
		DeliveryMode: strings.ToLower(getEnv("DELIVERY_MODE", DeliveryAttachment)),
		FlashTTL:     time.Duration(getEnvInt("FLASH_TTL", 300)) * time.Second,

		// R2 Storage
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2Endpoint:        getEnv("R2_ENDPOINT", ""),
		R2URLExpiry:       time.Duration(getEnvInt("R2_URL_EXPIRY", 15)) * time.Minute,
		R2MaxFileAge:      time.Duration(getEnvInt("R2_MAX_FILE_AGE", 60)) * time.Minute,
		R2CleanupInterval: time.Duration(getEnvInt("R2_CLEANUP_INTERVAL", 30)) * time.Minute,

		// History
		HistoryEnabled: getEnvBool("HISTORY_ENABLED", false),
		HistoryMaxAge:  time.Duration(getEnvInt("HISTORY_MAX_AGE_DAYS", 30)) * 24 * time.Hour,

		// Paths
		DownloadDir:  getEnv("DOWNLOAD_DIR", "./downloads"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		PurgeOnStart: getEnvBool("PURGE_ON_START", true),
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
		if cfg.IsProduction() {
			cfg.LogFormat = "json"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.AudioFormat == "" || strings.ContainsAny(c.AudioFormat, `/\. `) {
		return fmt.Errorf("invalid AUDIO_FORMAT %q", c.AudioFormat)
	}
	if c.AudioBitrateKbps <= 0 {
		return fmt.Errorf("invalid AUDIO_BITRATE_KBPS %d", c.AudioBitrateKbps)
	}
	if c.ExtractTimeout < 0 {
		return fmt.Errorf("invalid EXTRACT_TIMEOUT %s", c.ExtractTimeout)
	}
	switch c.DeliveryMode {
	case DeliveryAttachment:
	case DeliveryR2:
		if !c.R2Configured() {
			return fmt.Errorf("DELIVERY_MODE=r2 requires R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME")
		}
	default:
		return fmt.Errorf("invalid DELIVERY_MODE %q", c.DeliveryMode)
	}
	return nil
}

// R2Configured returns true if all R2 credentials are present.
func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
