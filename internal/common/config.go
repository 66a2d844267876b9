package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Calendar CalendarConfig
	Pipeline PipelineConfig
	Inbox    InboxConfig
	LogLevel string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract         string
	Language          string
	HeicConverter     string
	TessdataDir       string
	ArtifactCacheDir  string
	InvalidPagePolicy string
	LoadWorkers       int
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// CalendarConfig holds the calendar store location and defaults.
type CalendarConfig struct {
	Dir         string
	Name        string
	AutoConsent bool
}

// PipelineConfig holds coordinator settings.
type PipelineConfig struct {
	Timezone   string
	QueueSize  int
	RunTimeout time.Duration
}

// InboxConfig enables the watched drop directory.
type InboxConfig struct {
	Dir      string
	Debounce time.Duration
}

// LoadConfig loads configuration from a .env file (if present) and
// environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	provider := strings.ToLower(getEnv("LLM_PROVIDER", "anthropic"))
	defModel, keyVar := "claude-haiku-4-5-20251001", "ANTHROPIC_API_KEY"
	if provider == "openai" {
		defModel, keyVar = "gpt-4o-mini", "OPENAI_API_KEY"
	}

	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", "file:sylly.db?_pragma=foreign_keys(1)"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		OCR: OCRConfig{
			Tesseract:         getEnv("TESSERACT_BIN", "tesseract"),
			Language:          getEnv("TESSERACT_LANG", "eng"),
			HeicConverter:     getEnv("HEIC_CONVERTER", "magick"),
			TessdataDir:       getEnv("TESSDATA_PREFIX", ""),
			ArtifactCacheDir:  getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
			InvalidPagePolicy: getEnv("OCR_INVALID_PAGE_POLICY", "skip"),
			LoadWorkers:       getEnvAsInt("CAPTURE_LOAD_WORKERS", 4),
		},
		LLM: LLMConfig{
			Provider:    provider,
			Model:       getEnv("LLM_MODEL", defModel),
			APIKey:      getEnv(keyVar, ""),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 4096),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		},
		Calendar: CalendarConfig{
			Dir:         getEnv("CALENDAR_DIR", "./calendars"),
			Name:        getEnv("CALENDAR_NAME", constants.DefaultCalendarName),
			AutoConsent: getEnvAsBool("CALENDAR_AUTO_CONSENT", false),
		},
		Pipeline: PipelineConfig{
			Timezone:   getEnv("PIPELINE_TIMEZONE", "Local"),
			QueueSize:  getEnvAsInt("PIPELINE_QUEUE_SIZE", 64),
			RunTimeout: getEnvAsDuration("PIPELINE_RUN_TIMEOUT", 3*time.Minute),
		},
		Inbox: InboxConfig{
			Dir:      getEnv("INBOX_DIR", ""),
			Debounce: getEnvAsDuration("INBOX_DEBOUNCE", 500*time.Millisecond),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Location resolves the pipeline timezone, defaulting to time.Local.
func (c *Config) Location() *time.Location {
	if c.Pipeline.Timezone == "" || c.Pipeline.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Pipeline.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError(CodeConfig, "DB_URL is required", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "anthropic", "openai":
	default:
		return NewAppError(CodeConfig, "LLM_PROVIDER must be anthropic or openai", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError(CodeConfig, "API key for "+c.LLM.Provider+" is required", ErrInvalidInput)
	}
	switch c.OCR.InvalidPagePolicy {
	case "skip", "abort":
	default:
		return NewAppError(CodeConfig, "OCR_INVALID_PAGE_POLICY must be skip or abort", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR is required", ErrInvalidInput)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL (debug, info, warn, error) to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
