package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// DefaultSMTPPort is used when the port is not configured.
const DefaultSMTPPort = 25

var (
	// ErrNoRecipients is returned when an email has nobody to go to.
	ErrNoRecipients = errors.New("no recipients")
	// ErrNoSMTPHost is returned when sending without a configured server.
	ErrNoSMTPHost = errors.New("smtp host is not configured")
)

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// SMTPSender delivers email through an SMTP relay.
type SMTPSender struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// Send delivers one message to all recipients.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}

	if s.Host == "" {
		return ErrNoSMTPHost
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	port := s.Port
	if port == 0 {
		port = DefaultSMTPPort
	}

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	addr := net.JoinHostPort(s.Host, strconv.Itoa(port))
	if err := smtp.SendMail(addr, auth, s.From, to, s.message(to, subject, body, time.Now())); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}

	return nil
}

func (s *SMTPSender) message(to []string, subject, body string, at time.Time) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", at.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	return []byte(b.String())
}
