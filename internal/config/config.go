package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBPath string

	// Scraper configuration
	BaseURL         string
	YearsBack       int
	FetchDelay      time.Duration
	DisableHeadless bool

	// Report artifacts directory (chart PNG, CSV exports)
	DataDir string

	// Scheduling
	Schedule string
	Timezone string

	// Email delivery
	SMTPHost       string
	SMTPPort       int
	SenderEmail    string
	AppPassword    string
	RecipientEmail string
	DisableEmail   bool
	DryRun         bool

	// Page cache TTLs
	CurrentYearTTL time.Duration
	PastYearTTL    time.Duration

	// Logging
	LogLevel string

	// Development/testing flags
	DisableRateLimit bool
	DisableCache     bool

	// Bearer token for the admin endpoints; empty disables auth
	AdminToken string
}

// Load loads configuration from environment variables with defaults.
// If a .env file exists in the working directory, it is loaded first.
func Load() (*Config, error) {
	// Ignore the error: a missing .env file is fine.
	_ = godotenv.Load()

	config := &Config{
		// Server defaults
		ServerPort: getEnvOrDefault("TSA_SERVER_PORT", "8080"),
		ServerHost: getEnvOrDefault("TSA_SERVER_HOST", "localhost"),

		// Database defaults
		DBPath: getEnvOrDefault("TSA_DB_PATH", "./tsa.db"),

		// Scraper defaults
		BaseURL:         getEnvOrDefault("TSA_BASE_URL", "https://www.tsa.gov/travel/passenger-volumes"),
		YearsBack:       getEnvIntOrDefault("TSA_YEARS_BACK", 3),
		FetchDelay:      getEnvDurationOrDefault("TSA_FETCH_DELAY", "1s"),
		DisableHeadless: getEnvBoolOrDefault("TSA_DISABLE_HEADLESS", false),

		// Artifacts
		DataDir: getEnvOrDefault("TSA_DATA_DIR", "./tsa_data"),

		// Weekday mornings, 09:05 Eastern
		Schedule: getEnvOrDefault("TSA_SCHEDULE", "5 9 * * 1-5"),
		Timezone: getEnvOrDefault("TSA_TIMEZONE", "America/New_York"),

		// Email delivery. The bare legacy names are still honored for
		// deployments configured before the TSA_ prefix existed.
		SMTPHost:       getEnvOrDefault("TSA_SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:       getEnvIntOrDefault("TSA_SMTP_PORT", 587),
		SenderEmail:    getEnvOrLegacy("TSA_SENDER_EMAIL", "SENDER_EMAIL"),
		AppPassword:    getEnvOrLegacy("TSA_APP_PASSWORD", "APP_PASSWORD"),
		RecipientEmail: getEnvOrLegacy("TSA_RECIPIENT_EMAIL", "RECIPIENT_EMAIL"),
		DisableEmail:   getEnvBoolOrDefault("TSA_DISABLE_EMAIL", false),
		DryRun:         getEnvBoolOrDefault("TSA_DRY_RUN", false),

		// Cache TTLs: past-year pages barely change, the current year
		// gains a row daily
		CurrentYearTTL: getEnvDurationOrDefault("TSA_CURRENT_YEAR_TTL", "6h"),
		PastYearTTL:    getEnvDurationOrDefault("TSA_PAST_YEAR_TTL", "168h"),

		// Logging
		LogLevel: getEnvOrDefault("TSA_LOG_LEVEL", "info"),

		// Development/testing flags
		DisableRateLimit: getEnvBoolOrDefault("TSA_DISABLE_RATE_LIMIT", false),
		DisableCache:     getEnvBoolOrDefault("TSA_DISABLE_CACHE", false),

		AdminToken: os.Getenv("TSA_ADMIN_TOKEN"),
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	// Validate server port
	if c.ServerPort == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		return fmt.Errorf("invalid server port: %s", c.ServerPort)
	}

	// Validate database path
	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	// Validate scraper settings
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if c.YearsBack < 1 {
		return fmt.Errorf("TSA_YEARS_BACK must be at least 1, got %d", c.YearsBack)
	}
	if c.FetchDelay < 0 {
		return fmt.Errorf("fetch delay must be non-negative")
	}

	// Validate schedule settings
	if c.Schedule == "" {
		return fmt.Errorf("schedule cannot be empty")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	// Validate SMTP port
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		return fmt.Errorf("invalid SMTP port: %d", c.SMTPPort)
	}

	// Validate email settings
	if err := c.validateEmail(); err != nil {
		return err
	}

	// Validate cache TTLs
	if c.CurrentYearTTL <= 0 || c.PastYearTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	// Validate log level
	validLogLevels := []string{"debug", "info", "warn", "error"}
	isValidLogLevel := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			isValidLogLevel = true
			break
		}
	}
	if !isValidLogLevel {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// validateEmail requires the delivery triple all-or-nothing: leaving all
// three unset simply disables delivery, but a partial set is a
// misconfiguration worth failing loudly on.
func (c *Config) validateEmail() error {
	if c.DisableEmail {
		return nil
	}

	fields := []struct{ name, value string }{
		{"SENDER_EMAIL", c.SenderEmail},
		{"APP_PASSWORD", c.AppPassword},
		{"RECIPIENT_EMAIL", c.RecipientEmail},
	}

	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) == 0 || len(missing) == len(fields) {
		return nil
	}
	return fmt.Errorf("incomplete email configuration: missing %s", strings.Join(missing, ", "))
}

// Address returns the full server address
func (c *Config) Address() string {
	return c.ServerHost + ":" + c.ServerPort
}

// Location resolves the configured report timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// EmailEnabled reports whether delivery is configured and not disabled.
func (c *Config) EmailEnabled() bool {
	return !c.DisableEmail && c.SenderEmail != "" && c.AppPassword != "" && c.RecipientEmail != ""
}

// Recipients splits the comma-separated recipient list.
func (c *Config) Recipients() []string {
	var out []string
	for _, p := range strings.Split(c.RecipientEmail, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetDisableRateLimit returns the rate limit disable flag
func (c *Config) GetDisableRateLimit() bool {
	return c.DisableRateLimit
}

// GetDisableCache returns the cache disable flag
func (c *Config) GetDisableCache() bool {
	return c.DisableCache
}
