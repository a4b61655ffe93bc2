package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
)

// Ledger backends.
const (
	BackendXLSX     = "xlsx"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// OCR engines.
const (
	EngineTesseract = "tesseract"
	EngineVision    = "vision"
	EngineText      = "text"
)

// Config holds all application configuration
type Config struct {
	Log       LogConfig
	Ledger    LedgerConfig
	OCR       OCRConfig
	Detection DetectionConfig
	Batch     BatchConfig
	Server    ServerConfig
}

// LogConfig controls the slog handler installed by the binaries.
type LogConfig struct {
	Level  string
	Format string
}

// LedgerConfig selects and locates the persistent row store.
type LedgerConfig struct {
	Backend string
	Path    string
	Sheet   string
	DSN     string

	MaxConns    int32
	DialTimeout time.Duration
}

// OCRConfig holds page-recognition configuration
type OCRConfig struct {
	Engine          string
	DPI             int
	MaxPages        int
	TesseractLang   string
	TessdataDir     string
	CredentialsFile string
	CredentialsJSON string
}

// DetectionConfig holds configuration for the visual-signal sidecars.
type DetectionConfig struct {
	ConfThreshold float64
	SidecarSuffix string
}

// BatchConfig holds folder-processing configuration
type BatchConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr    string
	MetricsAddr string
}

// LoadConfig loads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real env vars take precedence.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	return &Config{
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Ledger: LedgerConfig{
			Backend:     strings.ToLower(getEnv("LEDGER_BACKEND", BackendXLSX)),
			Path:        getEnv("LEDGER_PATH", filepath.Join("inference_output", constants.DefaultLedgerFile)),
			Sheet:       getEnv("LEDGER_SHEET", "Results"),
			DSN:         getEnv("LEDGER_DSN", ""),
			MaxConns:    getEnvAsInt32("LEDGER_MAX_CONNS", 4),
			DialTimeout: getEnvAsDuration("LEDGER_DIAL_TIMEOUT", 3*time.Second),
		},
		OCR: OCRConfig{
			Engine:          strings.ToLower(getEnv("OCR_ENGINE", EngineTesseract)),
			DPI:             getEnvAsInt("PDF_DPI", 200),
			MaxPages:        getEnvAsInt("PDF_MAX_PAGES", 0),
			TesseractLang:   getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:     getEnv("TESSDATA_PREFIX", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			CredentialsJSON: getEnv("GOOGLE_CREDENTIALS", ""),
		},
		Detection: DetectionConfig{
			ConfThreshold: getEnvAsFloat64("DETECTION_CONF_THRESHOLD", 0.25),
			SidecarSuffix: getEnv("DETECTION_SUFFIX", ".detections.json"),
		},
		Batch: BatchConfig{
			Workers:        getEnvAsInt("BATCH_WORKERS", 4),
			QueueSize:      getEnvAsInt("BATCH_QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
		},
		Server: ServerConfig{
			GRPCAddr:    getEnv("GRPC_ADDR", ":8080"),
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		},
	}
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
	switch c.Ledger.Backend {
	case BackendXLSX, BackendSQLite:
		if c.Ledger.Path == "" {
			return NewAppError("CONFIG_ERROR", "LEDGER_PATH is required", ErrInvalidInput)
		}
	case BackendPostgres:
		if c.Ledger.DSN == "" {
			return NewAppError("CONFIG_ERROR", "LEDGER_DSN is required for the postgres backend", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown LEDGER_BACKEND %q", c.Ledger.Backend), ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case EngineTesseract, EngineVision, EngineText:
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown OCR_ENGINE %q", c.OCR.Engine), ErrInvalidInput)
	}
	if c.Batch.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "BATCH_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Detection.ConfThreshold < 0 || c.Detection.ConfThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "DETECTION_CONF_THRESHOLD must be within [0,1]", ErrInvalidInput)
	}
	return nil
}
