package services

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strconv"
)

// EmailSender delivers plain-text email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMTPConfig holds outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPService sends mail through an SMTP relay.
type SMTPService struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPService(cfg SMTPConfig) *SMTPService {
	return &SMTPService{cfg: cfg, send: smtp.SendMail}
}

// SendEmail sends a message. With no host configured the message is only logged.
func (s *SMTPService) SendEmail(ctx context.Context, to, subject, body string) error {
	if s.cfg.Host == "" {
		log.Printf("[Email] SMTP not configured, skipping %q to %s", subject, to)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	msg := "From: " + s.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n" +
		body

	// Relays such as MailHog accept unauthenticated mail.
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.send(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
