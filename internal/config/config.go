package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Data backends.
const (
	BackendHTTP   = "http"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// Backend selection
	DataBackend string

	// Remote expense service
	APIBaseURL     string
	APIToken       string
	RequestTimeout time.Duration

	// Offline backends
	SQLiteDBPath  string
	DataDirectory string
	LocalUserName string
	LocalUserRole string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets ledger
	GoogleSpreadsheetID      string
	GoogleLedgerSheetName    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Caches
	PredictionCacheSize int
	PredictionCacheTTL  time.Duration
	ExportDedupeSize    int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		DataBackend: getEnv("DATA_BACKEND", BackendMemory),

		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8000/api/v1"),
		APIToken:       getEnv("API_TOKEN", ""),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/expensedesk.db"),
		DataDirectory: getEnv("DATA_DIRECTORY", "data"),
		LocalUserName: getEnv("LOCAL_USER_NAME", "manager"),
		LocalUserRole: getEnv("LOCAL_USER_ROLE", "manager"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expensedesk"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_export"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleLedgerSheetName:    getEnv("GOOGLE_LEDGER_SHEET_NAME", "Ledger"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		PredictionCacheSize: getEnvInt("PREDICTION_CACHE_SIZE", 256),
		PredictionCacheTTL:  getEnvDuration("PREDICTION_CACHE_TTL", 10*time.Minute),
		ExportDedupeSize:    getEnvInt("EXPORT_DEDUPE_SIZE", 1024),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate data backend
	validBackends := []string{BackendHTTP, BackendMemory, BackendSQLite}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate remote service settings if backend is http
	if c.DataBackend == BackendHTTP {
		if parsedURL, err := url.Parse(c.APIBaseURL); err != nil || parsedURL.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s'", c.APIBaseURL))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
		if strings.TrimSpace(c.APIToken) == "" {
			errors = append(errors, "API token is required when using http backend")
		}
	}
	if c.RequestTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 1 second", c.RequestTimeout))
	}

	// Validate local user for offline backends
	if c.DataBackend == BackendMemory || c.DataBackend == BackendSQLite {
		if strings.TrimSpace(c.LocalUserName) == "" {
			errors = append(errors, "local user name cannot be empty when using an offline backend")
		}
		if c.LocalUserRole != "employee" && c.LocalUserRole != "manager" {
			errors = append(errors, fmt.Sprintf("invalid local user role '%s': must be 'employee' or 'manager'", c.LocalUserRole))
		}
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate Google Sheets ledger if a spreadsheet is configured
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleLedgerSheetName == "" {
			errors = append(errors, "Google ledger sheet name is required when a spreadsheet ID is set")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for the ledger")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate caches
	if c.PredictionCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid prediction cache size %d: must be at least 1", c.PredictionCacheSize))
	}
	if c.PredictionCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid prediction cache TTL %v: must be at least 1 second", c.PredictionCacheTTL))
	}
	if c.ExportDedupeSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid export dedupe size %d: must be at least 1", c.ExportDedupeSize))
	}

	// Validate logging
	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "tint":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text', 'json' or 'tint'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// LedgerEnabled reports whether approved expenses go to a Google spreadsheet.
func (c *Config) LedgerEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
