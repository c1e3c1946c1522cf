package config

import (
	"os"
	"strconv"
	"time"

	"gstportal/internal/logger"
)

// Config carries every knob the portal needs. It is loaded once in main and
// passed explicitly to the services that need it; there are no process-wide
// configuration singletons.
type Config struct {
	// Gemini extraction service
	GeminiAPIKey      string
	GeminiModel       string
	GeminiEndpoint    string
	ExtractionTimeout time.Duration

	// Ledger persistence
	LedgerPath string

	// Synthetic government-data source (demo stand-in for GSTR-2A/2B)
	SyntheticSeed int64

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment, applying defaults.
// The Gemini API key is intentionally not validated here: only the upload
// path needs it, and the extraction client reports its absence itself.
func Load() (*Config, error) {
	config := &Config{
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiEndpoint:    getEnv("GEMINI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
		ExtractionTimeout: parseDurationEnv("EXTRACTION_TIMEOUT", 90*time.Second),
		LedgerPath:        getEnv("GST_LEDGER_PATH", "invoices.json"),
		SyntheticSeed:     parseInt64Env("SYNTHETIC_SEED", 0),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:     getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:         getEnv("LOG_OUTPUT", "stderr"),
	}

	return config, nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
