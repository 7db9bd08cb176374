package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tsa-volume-tracker/internal/config"
	"tsa-volume-tracker/internal/email"
)

func main() {
	cfg, err := config.LoadWithViper()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if !cfg.EmailEnabled() {
		fmt.Println("=== TSA Volume Tracker SMTP Test ===")
		fmt.Println("\nEmail delivery is not configured. Set these environment")
		fmt.Println("variables (or put them in a .env file) and run again:")
		fmt.Println("\n  SENDER_EMAIL     address the report is sent from")
		fmt.Println("  APP_PASSWORD     SMTP password for that address")
		fmt.Println("  RECIPIENT_EMAIL  comma-separated recipient list")
		fmt.Println("\nFor Gmail:")
		fmt.Println("1. Enable 2-step verification on the sender account")
		fmt.Println("2. Create an app password at https://myaccount.google.com/apppasswords")
		fmt.Println("3. Use that app password as APP_PASSWORD")
		os.Exit(1)
	}

	recipients := cfg.Recipients()
	if len(os.Args) > 1 {
		recipients = []string{os.Args[1]}
	}

	fmt.Println("=== TSA Volume Tracker SMTP Test ===")
	fmt.Printf("\nServer:     %s:%d\n", cfg.SMTPHost, cfg.SMTPPort)
	fmt.Printf("From:       %s\n", cfg.SenderEmail)
	fmt.Printf("To:         %s\n", strings.Join(recipients, ", "))
	fmt.Println("\nSending test message...")

	sender := email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SenderEmail,
		Password: cfg.AppPassword,
		From:     cfg.SenderEmail,
		To:       recipients,
	})

	now := time.Now().Format("Jan 2, 2006 15:04:05 MST")
	msg := &email.Message{
		Subject: "TSA Volume Tracker - SMTP test",
		HTMLBody: fmt.Sprintf(
			"<html><body><p>SMTP delivery is working. Sent %s.</p></body></html>", now),
		TextBody: fmt.Sprintf("SMTP delivery is working. Sent %s.\n", now),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sender.Send(ctx, msg); err != nil {
		log.Fatalf("Send failed: %v", err)
	}

	fmt.Println("\nTest message sent. Check the recipient inbox (and spam folder).")
	fmt.Println("The daily report will use these same settings.")
}
