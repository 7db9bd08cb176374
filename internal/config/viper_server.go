package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadServerConfigWithViper loads server configuration using Viper
func LoadServerConfigWithViper(v *viper.Viper) (*Config, error) {
	// Set defaults
	setServerDefaults(v)

	// Set up environment variable binding
	setupServerEnvBinding(v)

	// Load configuration file if specified
	if err := loadConfigFile(v); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Unmarshal configuration
	config := &Config{}
	if err := unmarshalServerConfig(v, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setServerDefaults sets default values for server configuration
func setServerDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "localhost")

	// Database defaults
	v.SetDefault("database.path", "./tsa.db")

	// Scraper defaults
	v.SetDefault("scraper.base_url", "https://www.tsa.gov/travel/passenger-volumes")
	v.SetDefault("scraper.years_back", 3)
	v.SetDefault("scraper.fetch_delay", "1s")
	v.SetDefault("scraper.disable_headless", false)

	// Report defaults
	v.SetDefault("report.data_dir", "./tsa_data")

	// Schedule defaults
	v.SetDefault("schedule.cron", "5 9 * * 1-5")
	v.SetDefault("schedule.timezone", "America/New_York")

	// Email defaults
	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.disabled", false)
	v.SetDefault("email.dry_run", false)

	// Cache defaults
	v.SetDefault("cache.current_year_ttl", "6h")
	v.SetDefault("cache.past_year_ttl", "168h")
	v.SetDefault("cache.disabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")

	// Development/testing defaults
	v.SetDefault("rate_limit.disabled", false)

	// Admin defaults
	v.SetDefault("admin.token", "")
}

// setupServerEnvBinding sets up environment variable binding for server configuration
func setupServerEnvBinding(v *viper.Viper) {
	// Set environment variable prefix
	v.SetEnvPrefix("TSA")
	v.AutomaticEnv()

	// Bind environment variables
	envBindings := map[string]string{
		"server.port":              "SERVER_PORT",
		"server.host":              "SERVER_HOST",
		"database.path":            "DB_PATH",
		"scraper.base_url":         "BASE_URL",
		"scraper.years_back":       "YEARS_BACK",
		"scraper.fetch_delay":      "FETCH_DELAY",
		"scraper.disable_headless": "DISABLE_HEADLESS",
		"report.data_dir":          "DATA_DIR",
		"schedule.cron":            "SCHEDULE",
		"schedule.timezone":        "TIMEZONE",
		"email.smtp_host":          "SMTP_HOST",
		"email.smtp_port":          "SMTP_PORT",
		"email.disabled":           "DISABLE_EMAIL",
		"email.dry_run":            "DRY_RUN",
		"cache.current_year_ttl":   "CURRENT_YEAR_TTL",
		"cache.past_year_ttl":      "PAST_YEAR_TTL",
		"cache.disabled":           "DISABLE_CACHE",
		"logging.level":            "LOG_LEVEL",
		"rate_limit.disabled":      "DISABLE_RATE_LIMIT",
		"admin.token":              "ADMIN_TOKEN",
	}

	for configKey, envSuffix := range envBindings {
		v.BindEnv(configKey, "TSA_"+envSuffix)
	}

	// The email triple also honors bare legacy names for deployments
	// configured before the TSA_ prefix existed
	legacyEnvBindings := map[string]string{
		"email.sender":       "SENDER_EMAIL",
		"email.app_password": "APP_PASSWORD",
		"email.recipient":    "RECIPIENT_EMAIL",
	}

	for configKey, envVar := range legacyEnvBindings {
		v.BindEnv(configKey, "TSA_"+envVar, envVar)
	}
}

// loadConfigFile loads configuration file if it exists
func loadConfigFile(v *viper.Viper) error {
	// Check if a specific config file was set
	if v.ConfigFileUsed() == "" {
		// Add configuration search paths
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.tsa-volume-tracker")

		// Set configuration file name (without extension)
		v.SetConfigName("config")
	}

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file is optional, only return error if it's not a "not found" error
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	return nil
}

// unmarshalServerConfig unmarshals Viper configuration into Config struct
func unmarshalServerConfig(v *viper.Viper, config *Config) error {
	config.ServerPort = v.GetString("server.port")
	config.ServerHost = v.GetString("server.host")
	config.DBPath = v.GetString("database.path")
	config.BaseURL = v.GetString("scraper.base_url")
	config.LogLevel = v.GetString("logging.level")

	// Parse duration fields
	var err error
	config.FetchDelay, err = time.ParseDuration(v.GetString("scraper.fetch_delay"))
	if err != nil {
		return fmt.Errorf("invalid fetch delay: %w", err)
	}

	config.CurrentYearTTL, err = time.ParseDuration(v.GetString("cache.current_year_ttl"))
	if err != nil {
		return fmt.Errorf("invalid current year TTL: %w", err)
	}

	config.PastYearTTL, err = time.ParseDuration(v.GetString("cache.past_year_ttl"))
	if err != nil {
		return fmt.Errorf("invalid past year TTL: %w", err)
	}

	// Report and schedule settings
	config.DataDir = v.GetString("report.data_dir")
	config.Schedule = v.GetString("schedule.cron")
	config.Timezone = v.GetString("schedule.timezone")

	// Email delivery settings
	config.SMTPHost = v.GetString("email.smtp_host")
	config.SMTPPort = v.GetInt("email.smtp_port")
	config.SenderEmail = v.GetString("email.sender")
	config.AppPassword = v.GetString("email.app_password")
	config.RecipientEmail = v.GetString("email.recipient")

	// Boolean flags
	config.DisableHeadless = v.GetBool("scraper.disable_headless")
	config.DisableEmail = v.GetBool("email.disabled")
	config.DryRun = v.GetBool("email.dry_run")
	config.DisableRateLimit = v.GetBool("rate_limit.disabled")
	config.DisableCache = v.GetBool("cache.disabled")

	// Integer values
	config.YearsBack = v.GetInt("scraper.years_back")

	// Admin token
	config.AdminToken = v.GetString("admin.token")

	return nil
}

// LoadServerConfig loads server configuration using default Viper instance
func LoadServerConfig() (*Config, error) {
	v := viper.New()
	return LoadServerConfigWithViper(v)
}

// LoadServerConfigWithFile loads server configuration from a specific file
func LoadServerConfigWithFile(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	return LoadServerConfigWithViper(v)
}

// LoadServerConfigWithEnvFile loads server configuration with .env file support
func LoadServerConfigWithEnvFile(envFile string) (*Config, error) {
	// Load .env file if specified
	if envFile != "" {
		if err := LoadEnvFile(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		// Try to load default .env file
		if err := LoadEnvFile(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	// Load configuration with Viper
	v := viper.New()
	return LoadServerConfigWithViper(v)
}

// LoadWithViper loads configuration honoring the default .env file.
func LoadWithViper() (*Config, error) {
	return LoadServerConfigWithEnvFile("")
}
