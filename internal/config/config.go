package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "trackify/internal/log"
)

const (
	SourceTeller = "teller"
	SourcePlaid  = "plaid"

	MirrorMemory    = "memory"
	MirrorFirestore = "firestore"
	MirrorSheets    = "sheets"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// User
	UserID          string
	UserDisplayName string

	// Bank source
	SourceProvider    string
	TellerBaseURL     string
	TellerVersion     string
	TellerAccessToken string
	PlaidClientID     string
	PlaidSecret       string
	PlaidEnv          string
	PlaidLookbackDays int

	// Remote mirror
	MirrorBackend            string
	FirebaseCredentialsFile  string
	FirebaseProjectID        string
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	MirrorConcurrency        int
	MirrorTimeout            time.Duration

	// AMQP (optional; empty URL writes the mirror directly)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Scheduling and caching
	SyncInterval        time.Duration
	SyncOnStart         bool
	LeaderboardCacheTTL time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/trackify.db"),

		UserID:          getEnv("USER_ID", ""),
		UserDisplayName: getEnv("USER_DISPLAY_NAME", ""),

		SourceProvider:    strings.ToLower(getEnv("SOURCE_PROVIDER", SourceTeller)),
		TellerBaseURL:     getEnv("TELLER_BASE_URL", "https://api.teller.io/"),
		TellerVersion:     getEnv("TELLER_VERSION", "2020-10-12"),
		TellerAccessToken: getEnv("TELLER_ACCESS_TOKEN", ""),
		PlaidClientID:     getEnv("PLAID_CLIENT_ID", ""),
		PlaidSecret:       getEnv("PLAID_SECRET", ""),
		PlaidEnv:          getEnv("PLAID_ENV", "sandbox"),
		PlaidLookbackDays: getEnvInt("PLAID_LOOKBACK_DAYS", 90),

		MirrorBackend:            strings.ToLower(getEnv("MIRROR_BACKEND", MirrorMemory)),
		FirebaseCredentialsFile:  getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		FirebaseProjectID:        getEnv("FIREBASE_PROJECT_ID", ""),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		MirrorConcurrency:        getEnvInt("MIRROR_CONCURRENCY", 4),
		MirrorTimeout:            getEnvDuration("MIRROR_TIMEOUT", 15*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "trackify"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mirror_jobs"),

		SyncInterval:        getEnvDuration("SYNC_INTERVAL", 15*time.Minute),
		SyncOnStart:         getEnvBool("SYNC_ON_START", true),
		LeaderboardCacheTTL: getEnvDuration("LEADERBOARD_CACHE_TTL", 30*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	return cfg
}

// QueueEnabled reports whether mirror writes go through AMQP.
func (c *Config) QueueEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Database
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	if strings.TrimSpace(c.UserID) == "" {
		errors = append(errors, "USER_ID is required")
	}

	// Bank source
	switch c.SourceProvider {
	case SourceTeller:
		if u, err := url.Parse(c.TellerBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid Teller base URL '%s'", c.TellerBaseURL))
		}
	case SourcePlaid:
		if c.PlaidClientID == "" || c.PlaidSecret == "" {
			errors = append(errors, "PLAID_CLIENT_ID and PLAID_SECRET are required for the plaid source")
		}
		if c.PlaidEnv != "sandbox" && c.PlaidEnv != "production" {
			errors = append(errors, fmt.Sprintf("invalid Plaid environment '%s': must be sandbox or production", c.PlaidEnv))
		}
		if c.PlaidLookbackDays < 1 || c.PlaidLookbackDays > 730 {
			errors = append(errors, fmt.Sprintf("invalid Plaid lookback %d: must be between 1 and 730 days", c.PlaidLookbackDays))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid source provider '%s': must be one of [%s %s]", c.SourceProvider, SourceTeller, SourcePlaid))
	}

	// Remote mirror
	switch c.MirrorBackend {
	case MirrorMemory:
	case MirrorFirestore:
		if c.FirebaseCredentialsFile != "" {
			if _, err := os.Stat(c.FirebaseCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Firebase credentials file does not exist: %s", c.FirebaseCredentialsFile))
			}
		}
	case MirrorSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of [%s %s %s]", c.MirrorBackend, MirrorMemory, MirrorFirestore, MirrorSheets))
	}

	if c.MirrorConcurrency < 1 || c.MirrorConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid mirror concurrency %d: must be between 1 and 64", c.MirrorConcurrency))
	}
	if c.MirrorTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid mirror timeout %v: must be at least 1 second", c.MirrorTimeout))
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

	if c.SyncInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 minute", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	if c.LeaderboardCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid leaderboard cache TTL %v: must not be negative", c.LeaderboardCacheTTL))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
