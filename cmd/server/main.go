package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	"tsa-volume-tracker/internal/cache"
	"tsa-volume-tracker/internal/config"
	"tsa-volume-tracker/internal/database"
	"tsa-volume-tracker/internal/email"
	"tsa-volume-tracker/internal/scrape"
	"tsa-volume-tracker/internal/server"
	"tsa-volume-tracker/internal/workers"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logger. The report runner and scheduler log
	// through slog.Default, so this has to happen before they exist.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	// Initialize database
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Database initialized at %s", cfg.DBPath)

	// Scraper and page cache
	scraper := scrape.NewScraper(scrape.Config{
		BaseURL:     cfg.BaseURL,
		FetchDelay:  cfg.FetchDelay,
		UseHeadless: !cfg.DisableHeadless,
	})
	cacheManager := cache.NewManager(db.PageCache, scraper, cfg.DisableCache, cfg.CurrentYearTTL, cfg.PastYearTTL)
	defer cacheManager.Close()

	// Email delivery is optional; with no sender the runner still scrapes
	// and generates the report artifacts.
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
		log.Printf("Email delivery enabled: %s -> %v", cfg.SenderEmail, cfg.Recipients())
	} else {
		log.Printf("WARN: Email delivery not configured, reports will not be sent")
	}

	// Report runner and schedule
	runner := workers.NewRunner(cfg, scraper, cacheManager, db, sender)
	scheduler, err := workers.NewScheduler(cfg, runner, db)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Printf("Scheduler started: %s (%s)", cfg.Schedule, cfg.Timezone)

	srv := server.New(server.Dependencies{
		Config:    cfg,
		DB:        db,
		Runner:    runner,
		Scheduler: scheduler,
		Logger:    logger,
	})

	// Handle server startup and graceful shutdown
	shutdownTimeout := 30 * time.Second
	if err := server.HandleSignals(srv, shutdownTimeout); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
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
