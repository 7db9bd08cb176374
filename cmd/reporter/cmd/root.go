// Copyright 2025 TSA Volume Tracker
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"tsa-volume-tracker/internal/cache"
	"tsa-volume-tracker/internal/config"
	"tsa-volume-tracker/internal/database"
	"tsa-volume-tracker/internal/email"
	"tsa-volume-tracker/internal/scrape"
	"tsa-volume-tracker/internal/workers"
)

const (
	// Version information
	Version   = "1.0.0"
	BuildDate = "development"
)

var (
	configFile string
	dryRun     bool
	force      bool
	daemon     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tsa-reporter",
	Short: "Checkpoint volume report generator",
	Long: `TSA Reporter v1.0.0

DESCRIPTION:
    Scrapes the TSA checkpoint travel numbers pages, merges the rows
    into the stored daily series, renders the volume chart and CSV
    exports, and emails the HTML report.

    By default one report cycle runs and the process exits. With
    --daemon the process stays up and runs on the weekday schedule
    instead, like the in-server worker.

CONFIGURATION:
    Configuration is done via environment variables and .env files:

        TSA_DB_PATH             - SQLite database path (default: ./tsa.db)
        TSA_BASE_URL            - Volume page base URL
        TSA_YEARS_BACK          - Year pages to fetch (default: 3)
        TSA_DATA_DIR            - Chart/CSV output directory (default: ./tsa_data)
        TSA_SCHEDULE            - Cron schedule (default: 5 9 * * 1-5)
        TSA_TIMEZONE            - Schedule timezone (default: America/New_York)
        TSA_SMTP_HOST           - SMTP server host (default: smtp.gmail.com)
        TSA_SMTP_PORT           - SMTP server port (default: 587)
        SENDER_EMAIL            - Report sender address
        APP_PASSWORD            - SMTP app password
        RECIPIENT_EMAIL         - Report recipients (comma-separated)
        TSA_DRY_RUN             - Skip SMTP delivery (default: false)
        TSA_DISABLE_HEADLESS    - Disable the chromedp fallback fetcher
        TSA_LOG_LEVEL           - debug|info|warn|error (default: info)

EXAMPLES:
    # One report cycle with email delivery
    export SENDER_EMAIL="reports@example.com"
    export APP_PASSWORD="app-password"
    export RECIPIENT_EMAIL="team@example.com"
    tsa-reporter

    # Keep the chart and CSVs locally, skip email
    tsa-reporter --dry-run

    # Ignore cached pages and fetch every year live
    tsa-reporter --force

    # Stay up on the weekday schedule
    tsa-reporter --daemon

    # With a specific config file
    tsa-reporter --config=.env.production`,
	Version: Version,
	RunE:    runReporter,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	fang.Execute(context.Background(), rootCmd)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env in current directory)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "generate artifacts but skip email delivery")
	rootCmd.Flags().BoolVar(&force, "force", false, "bypass the page cache and fetch every year live")
	rootCmd.Flags().BoolVar(&daemon, "daemon", false, "run on the weekday schedule instead of exiting")
}

// loadConfiguration loads configuration from files and environment variables
func loadConfiguration() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		// Check if it's a .env file or a structured config file
		if strings.HasSuffix(configFile, ".env") || !strings.Contains(configFile, ".") || strings.HasPrefix(filepath.Base(configFile), ".env") {
			cfg, err = config.LoadServerConfigWithEnvFile(configFile)
		} else {
			// Validate config file path for security (prevent directory traversal)
			if err := config.ValidateConfigFilePath(configFile); err != nil {
				return nil, fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg, err = config.LoadServerConfigWithFile(configFile)
		}
	} else {
		// Try Viper first (supports auto-discovery), fall back to the env loader
		cfg, err = config.LoadWithViper()
		if err != nil {
			cfg, err = config.Load()
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override with CLI flags
	if dryRun {
		cfg.DryRun = true
	}

	return cfg, nil
}

// runReporter is the main execution function for the reporter
func runReporter(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Initialize structured logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting TSA volume reporter",
		"version", Version,
		"build_date", BuildDate)

	logger.Info("Configuration loaded successfully",
		"years_back", cfg.YearsBack,
		"dry_run", cfg.DryRun,
		"daemon", daemon)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "path", cfg.DBPath)
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	logger.Info("Database initialized", "path", cfg.DBPath)

	scraper := scrape.NewScraper(scrape.Config{
		BaseURL:     cfg.BaseURL,
		FetchDelay:  cfg.FetchDelay,
		UseHeadless: !cfg.DisableHeadless,
	})

	cacheManager := cache.NewManager(db.PageCache, scraper, cfg.DisableCache, cfg.CurrentYearTTL, cfg.PastYearTTL)
	defer cacheManager.Close()

	var sender email.Sender
	if cfg.EmailEnabled() {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SenderEmail,
			Password: cfg.AppPassword,
			From:     cfg.SenderEmail,
			To:       cfg.Recipients(),
		})
		logger.Info("Email delivery enabled", "from", cfg.SenderEmail, "to", cfg.Recipients())
	} else {
		logger.Warn("Email delivery not configured, reports will not be sent")
	}

	runner := workers.NewRunner(cfg, scraper, cacheManager, db, sender)

	if daemon {
		return runDaemon(cfg, runner, db, logger)
	}
	return runOnce(cfg, runner, logger)
}

// runOnce executes a single report cycle and exits
func runOnce(cfg *config.Config, runner *workers.Runner, logger *slog.Logger) error {
	// Ctrl-C cancels the in-flight scrape instead of killing the process
	// mid-write.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result := runner.RunOnce(ctx, workers.RunOptions{
		Force:   force,
		DryRun:  cfg.DryRun,
		Trigger: database.TriggerCLI,
	})

	if !result.Success {
		logger.Error("Report run failed",
			"status", result.StatusCode,
			"message", result.Message)
		return fmt.Errorf("report run failed: %s", result.Message)
	}

	logger.Info("Report run completed",
		"rows_scraped", result.RowsScraped,
		"chart", result.ChartPath,
		"emailed", result.Emailed)
	return nil
}

// runDaemon keeps the scheduler loop running until a shutdown signal
func runDaemon(cfg *config.Config, runner *workers.Runner, db *database.DB, logger *slog.Logger) error {
	scheduler, err := workers.NewScheduler(cfg, runner, db)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("Reporter daemon started", "schedule", cfg.Schedule, "timezone", cfg.Timezone)

	if err := handleSignals(logger); err != nil {
		return fmt.Errorf("service error: %w", err)
	}

	logger.Info("Reporter daemon stopped gracefully")
	return nil
}

// handleSignals handles graceful shutdown on system signals
func handleSignals(logger *slog.Logger) error {
	// Channel to receive OS signals
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Channel to receive shutdown completion
	shutdownChan := make(chan struct{})

	// Start signal handling goroutine
	go func() {
		sig := <-signalChan
		logger.Info("Received shutdown signal", "signal", sig)
		logger.Info("Starting graceful shutdown...")
		close(shutdownChan)
	}()

	<-shutdownChan
	logger.Info("Graceful shutdown completed")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
