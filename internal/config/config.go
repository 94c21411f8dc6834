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

type Config struct {
	// LIN backend
	APIURL      string
	HTTPTimeout time.Duration

	// Credential storage
	CredentialStore      string
	CredentialsFile      string
	CredentialPassphrase string

	// Database
	SQLiteDBPath string

	// Response cache
	CacheSize int
	CacheTTL  time.Duration

	// Broker
	Broker       string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration
	AdminAddr     string

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	validStores  = []string{"memory", "file", "sqlite"}
	validBrokers = []string{"none", "amqp", "kafka"}
)

func Load() *Config {
	cfg := &Config{
		APIURL:      getEnv("LIN_API_URL", "http://localhost:8000"),
		HTTPTimeout: getEnvDuration("LIN_HTTP_TIMEOUT", 30*time.Second),

		CredentialStore:      getEnv("LIN_CREDENTIAL_STORE", "file"),
		CredentialsFile:      getEnv("LIN_CREDENTIALS_FILE", defaultCredentialsFile()),
		CredentialPassphrase: os.Getenv("LIN_CREDENTIALS_PASSPHRASE"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/lin.db"),

		CacheSize: getEnvInt("LIN_CACHE_SIZE", 256),
		CacheTTL:  getEnvDuration("LIN_CACHE_TTL", 30*time.Second),

		Broker:       getEnv("BROKER", "none"),
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "lin"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "lin_events"),
		KafkaBrokers: getEnvList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "lin.events"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "lin-sync"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 50),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		AdminAddr:     getEnv("ADMIN_ADDR", ":9090"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate API URL
	if strings.TrimSpace(c.APIURL) == "" {
		errors = append(errors, "LIN API URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.APIURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid LIN API URL '%s': %v", c.APIURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid LIN API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if c.HTTPTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
	}

	// Validate credential store
	if !slices.Contains(validStores, c.CredentialStore) {
		errors = append(errors, fmt.Sprintf("invalid credential store '%s': must be one of %v", c.CredentialStore, validStores))
	}
	if c.CredentialStore == "file" && strings.TrimSpace(c.CredentialsFile) == "" {
		errors = append(errors, "credentials file path cannot be empty when using file store")
	}
	if c.CredentialStore == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite store")
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

	// Validate cache
	if c.CacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must not be negative", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	// Validate broker
	if !slices.Contains(validBrokers, c.Broker) {
		errors = append(errors, fmt.Sprintf("invalid broker '%s': must be one of %v", c.Broker, validBrokers))
	}
	if c.Broker == "amqp" {
		if c.AMQPURL == "" {
			errors = append(errors, "AMQP URL is required when using amqp broker")
		} else if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when using amqp broker")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when using amqp broker")
		}
	}
	if c.Broker == "kafka" {
		if len(c.KafkaBrokers) == 0 {
			errors = append(errors, "at least one Kafka broker is required when using kafka broker")
		}
		if c.KafkaTopic == "" {
			errors = append(errors, "Kafka topic cannot be empty when using kafka broker")
		}
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 100 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 100", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks the settings only the export worker needs.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	var errors []string
	if c.CredentialStore == "memory" {
		errors = append(errors, "memory credential store cannot be shared with the worker: use file or sqlite")
	}
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path is required for the export ledger")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the export worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required for the export worker")
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func defaultCredentialsFile() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".lin", "credentials.json")
	}
	return filepath.Join(base, "lin", "credentials.json")
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
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

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
