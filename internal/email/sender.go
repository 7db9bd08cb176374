package email

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds delivery settings for the SMTP sender. The defaults
// elsewhere point at Gmail (smtp.gmail.com:587 with an app password),
// but any STARTTLS-capable relay works.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// SMTPSender delivers report emails over SMTP with mandatory STARTTLS.
type SMTPSender struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		logger: slog.Default().With("component", "email"),
	}
}

// Send builds the MIME message and delivers it in one SMTP session.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	m, err := s.buildMsg(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("email: create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("email: send via %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}

	s.logger.Info("report email sent",
		"to", s.cfg.To,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments))
	return nil
}

// buildMsg assembles the multipart message: plain-text body with an
// HTML alternative, plus file attachments.
func (s *SMTPSender) buildMsg(msg *Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("email: invalid sender address %q: %w", s.cfg.From, err)
	}
	if err := m.To(s.cfg.To...); err != nil {
		return nil, fmt.Errorf("email: invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	}

	for _, path := range msg.Attachments {
		// Fail here rather than mid-session when an artifact is missing.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("email: attachment %s: %w", path, err)
		}
		m.AttachFile(path)
	}
	return m, nil
}
