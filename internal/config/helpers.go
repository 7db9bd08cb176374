package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrLegacy returns the prefixed variable, falling back to the bare
// legacy name older deployments still set.
func getEnvOrLegacy(key, legacyKey string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return os.Getenv(legacyKey)
}

// getEnvBoolOrDefault returns environment variable as boolean or default
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvIntOrDefault returns environment variable as integer or default
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault returns environment variable as duration or default
func getEnvDurationOrDefault(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}

	// Parse default value
	duration, err := time.ParseDuration(defaultValue)
	if err != nil {
		return time.Hour // Fallback to 1 hour
	}
	return duration
}

// validateEnvFilePath rejects env file paths that escape the working
// directory or do not look like env files.
func validateEnvFilePath(filename string) error {
	if filename == "" {
		return nil
	}

	if strings.Contains(filename, "..") {
		return fmt.Errorf("env file path cannot contain '..': %s", filename)
	}

	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	if ext != "" && ext != ".env" && !strings.HasPrefix(base, ".env") {
		return fmt.Errorf("env file must have .env extension: %s", filename)
	}

	return nil
}

// ValidateConfigFilePath rejects config file paths that escape the
// working directory or carry an unsupported extension.
func ValidateConfigFilePath(filename string) error {
	if filename == "" {
		return nil
	}

	if strings.Contains(filename, "..") {
		return fmt.Errorf("config file path cannot contain '..': %s", filename)
	}

	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	switch ext {
	case "", ".yaml", ".yml", ".toml", ".json", ".env":
		return nil
	}
	if strings.HasPrefix(base, ".env") {
		return nil
	}
	return fmt.Errorf("unsupported config file extension %q: %s", ext, filename)
}

// LoadEnvFile loads environment variables from the named file if it
// exists. Variables already set in the environment win. A missing file
// is not an error.
func LoadEnvFile(filename string) error {
	if err := validateEnvFilePath(filename); err != nil {
		return err
	}
	if _, err := os.Stat(filename); err != nil {
		return nil
	}
	return godotenv.Load(filename)
}
