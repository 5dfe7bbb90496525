package delivery

import (
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/sugils/Email-tracker-Backend/internal/config"
)

// SMTPTransport submits mail over one authenticated SMTP session
type SMTPTransport struct {
	cfg    config.SMTPConfig
	client *smtp.Client
}

// NewSMTPTransport creates an SMTP transport from config
func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

// Open dials the server, upgrades to TLS when configured, and authenticates
func (t *SMTPTransport) Open() error {
	client, err := smtp.Dial(t.cfg.Addr())
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.cfg.Addr(), err)
	}

	if t.cfg.StartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: t.cfg.Host}); err != nil {
			client.Close()
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if t.cfg.Username != "" {
		auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return fmt.Errorf("auth: %w", err)
		}
	}

	t.client = client
	return nil
}

// Send submits one message on the open session
func (t *SMTPTransport) Send(msg *Message) error {
	if t.client == nil {
		return fmt.Errorf("smtp session not open")
	}

	payload, err := msg.Compose()
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}

	if err := t.client.Mail(msg.FromEmail); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := t.client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := t.client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return fmt.Errorf("write body: %w", err)
	}
	return w.Close()
}

// Close ends the session with QUIT
func (t *SMTPTransport) Close() error {
	if t.client == nil {
		return nil
	}
	err := t.client.Quit()
	t.client = nil
	return err
}
