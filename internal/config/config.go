package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"aulas/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection: http, memory, sheets, sqlite or mysql
	DataBackend string

	// Upstream JSON endpoints (http backend)
	SourceBaseURL     string
	SourceLessonsPath string
	SourceClientsPath string
	SourceTimeout     time.Duration

	// Seed files (memory backend)
	DataDir string

	// Database
	SQLiteDBPath string
	MySQLDSN     string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleLessonsSheet       string
	GoogleClientsSheet       string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Refresh worker; zero disables the periodic refresh
	RefreshInterval time.Duration

	// Derived metrics cache
	CacheSize int
	CacheTTL  time.Duration

	// Initial dashboard window
	DefaultStart string
	DefaultEnd   string

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	validBackends   = []string{"http", "memory", "sheets", "sqlite", "mysql"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SourceBaseURL:     getEnv("SOURCE_BASE_URL", "http://localhost:3000"),
		SourceLessonsPath: getEnv("SOURCE_LESSONS_PATH", "/aulas"),
		SourceClientsPath: getEnv("SOURCE_CLIENTS_PATH", "/base"),
		SourceTimeout:     getEnvDuration("SOURCE_TIMEOUT", 10*time.Second),

		DataDir: getEnv("DATA_DIR", "data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/aulas.db"),
		MySQLDSN:     getEnv("MYSQL_DSN", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleLessonsSheet:       getEnv("GOOGLE_LESSONS_SHEET", "Aulas"),
		GoogleClientsSheet:       getEnv("GOOGLE_CLIENTS_SHEET", "Base"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "aulas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dashboard_refresh"),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),

		CacheSize: getEnvInt("CACHE_SIZE", 256),
		CacheTTL:  getEnvDuration("CACHE_TTL", 10*time.Minute),

		DefaultStart: getEnv("DEFAULT_START", core.DefaultStart),
		DefaultEnd:   getEnv("DEFAULT_END", core.DefaultEnd),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	return cfg
}

// DefaultFilter is the selection used when a request omits bounds.
func (c *Config) DefaultFilter() core.FilterSelection {
	return core.FilterSelection{Start: c.DefaultStart, End: c.DefaultEnd}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !oneOf(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "http":
		if msg := validateURL("source base URL", c.SourceBaseURL, "http", "https"); msg != "" {
			errors = append(errors, msg)
		}
		if c.SourceTimeout < time.Second || c.SourceTimeout > 5*time.Minute {
			errors = append(errors, fmt.Sprintf("invalid source timeout %v: must be between 1 second and 5 minutes", c.SourceTimeout))
		}

	case "sqlite":
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

	case "mysql":
		if c.MySQLDSN == "" {
			errors = append(errors, "MySQL DSN is required when using mysql backend")
		}

	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// AMQP is optional; when configured it needs a valid URL and names
	if c.AMQPURL != "" {
		if msg := validateURL("AMQP URL", c.AMQPURL, "amqp", "amqps"); msg != "" {
			errors = append(errors, msg)
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RefreshInterval != 0 {
		if c.RefreshInterval < time.Second {
			errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be 0 or at least 1 second", c.RefreshInterval))
		} else if c.RefreshInterval > 24*time.Hour {
			errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
		}
	}

	if c.CacheSize < 0 || c.CacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be between 0 and 100000", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache ttl %v: must not be negative", c.CacheTTL))
	}

	if _, err := core.ParseDate(c.DefaultStart); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default start '%s': must be YYYY-MM-DD", c.DefaultStart))
	}
	if _, err := core.ParseDate(c.DefaultEnd); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default end '%s': must be YYYY-MM-DD", c.DefaultEnd))
	}

	if !oneOf(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !oneOf(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validateURL(name, raw string, schemes ...string) string {
	if raw == "" {
		return fmt.Sprintf("%s cannot be empty", name)
	}
	parsedURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid %s '%s': %v", name, raw, err)
	}
	if !oneOf(schemes, parsedURL.Scheme) {
		return fmt.Sprintf("invalid %s scheme '%s': must be one of %v", name, parsedURL.Scheme, schemes)
	}
	return ""
}

func oneOf(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
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
