package email

import (
	"context"
	"time"
)

// Message is an outbound report email before delivery.
type Message struct {
	Subject     string   `json:"subject"`
	HTMLBody    string   `json:"-"`
	TextBody    string   `json:"-"`
	Attachments []string `json:"attachments,omitempty"`
}

// Sender delivers report emails.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Subject builds the report subject line for the given latest data date.
func Subject(latest time.Time) string {
	return "TSA Passenger Volumes - Daily Report (" + latest.Format("Jan 2, 2006") + ")"
}
