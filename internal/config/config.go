package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Data backends accepted by DATA_BACKEND.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

const minAPITokenLength = 16

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// APIToken is the bearer token for /api. Empty keeps the API closed.
	APIToken string

	// Backend selection
	DataBackend  string
	DataFile     string
	SQLiteDBPath string

	// Telegram
	TelegramToken       string
	TelegramDebug       bool
	TelegramPollTimeout int

	// Dialog sessions
	SessionTTL time.Duration
	SessionMax int

	// AMQP ledger events (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror (ledger-worker only)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8081"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		APIToken:        getEnv("API_TOKEN", ""),

		DataBackend:  getEnv("DATA_BACKEND", BackendJSON),
		DataFile:     getEnv("DATA_FILE", "./data.json"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),

		TelegramToken:       getEnv("TELEGRAM_TOKEN", ""),
		TelegramDebug:       getEnvBool("TELEGRAM_DEBUG", false),
		TelegramPollTimeout: getEnvInt("TELEGRAM_POLL_TIMEOUT", 60),

		SessionTTL: getEnvDuration("SESSION_TTL", 30*time.Minute),
		SessionMax: getEnvInt("SESSION_MAX", 10000),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Records"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration used by the bot and returns every
// problem found in one error.
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.APIToken != "" && len(c.APIToken) < minAPITokenLength {
		errors = append(errors, fmt.Sprintf("API token too short: must be at least %d characters", minAPITokenLength))
	}

	// Validate data backend
	validBackends := []string{BackendJSON, BackendSQLite, BackendMemory}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendJSON:
		if c.DataFile == "" {
			errors = append(errors, "data file cannot be empty when using json backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
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

	errors = append(errors, c.validateAMQP()...)

	// Validate sessions
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 24 hours", c.SessionTTL))
	}
	if c.SessionMax < 1 {
		errors = append(errors, fmt.Sprintf("invalid session max %d: must be at least 1", c.SessionMax))
	}

	if c.TelegramPollTimeout < 0 || c.TelegramPollTimeout > 600 {
		errors = append(errors, fmt.Sprintf("invalid telegram poll timeout %d: must be between 0 and 600 seconds", c.TelegramPollTimeout))
	}

	if !validLogLevel(c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker validates the configuration used by the sheets mirror
// worker, which needs a broker and a spreadsheet.
func (c *Config) ValidateWorker() error {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the ledger worker")
	}
	errors = append(errors, c.validateAMQP()...)

	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the ledger worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required for the ledger worker")
	}

	hasJSON := c.GoogleServiceAccountJSON != ""
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasJSON && !hasFile {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the ledger worker")
	}
	if !hasJSON && hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if !validLogLevel(c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
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
	return errors
}

func validLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
