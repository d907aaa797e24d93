// Package mail sends SMTP email. Port 465 uses implicit TLS; other ports
// go through net/smtp, which upgrades with STARTTLS when offered.
//
//	m := mail.FromConfig()
//	err := m.Send(ctx, mail.Message{
//	    To:      []string{owner.Email},
//	    Subject: "New order",
//	    HTML:    body,
//	})
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/shashiranjanraj/shopfront/config"
)

var ErrNotConfigured = errors.New("mail: MAIL_HOST is not configured")

// SMTP holds the connection settings, read from MAIL_* keys.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

func (s SMTP) addr() string { return net.JoinHostPort(s.Host, s.Port) }

// Message is one email. HTML wins over Text when both are set.
type Message struct {
	To      []string
	CC      []string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends messages over one SMTP account.
type Mailer struct {
	cfg  SMTP
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(cfg SMTP) *Mailer {
	m := &Mailer{cfg: cfg}
	m.send = m.deliver
	return m
}

// FromConfig builds a Mailer from MAIL_HOST, MAIL_PORT, MAIL_USERNAME,
// MAIL_PASSWORD, MAIL_FROM and MAIL_FROM_NAME.
func FromConfig() *Mailer {
	return New(SMTP{
		Host:     config.Get("MAIL_HOST", ""),
		Port:     config.Get("MAIL_PORT", "587"),
		Username: config.Get("MAIL_USERNAME", ""),
		Password: config.Get("MAIL_PASSWORD", ""),
		From:     config.Get("MAIL_FROM", "orders@shopfront.local"),
		FromName: config.Get("MAIL_FROM_NAME", config.AppName()),
	})
}

// Configured reports whether a host is set.
func (m *Mailer) Configured() bool { return m != nil && m.cfg.Host != "" }

// Send delivers msg. ctx only bounds the wait; net/smtp has no
// cancellation of its own.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return errors.New("mail: no recipients")
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	rcpt := append(append([]string(nil), msg.To...), msg.CC...)
	raw := m.build(msg, time.Now())

	done := make(chan error, 1)
	go func() { done <- m.send(m.cfg.addr(), auth, m.cfg.From, rcpt, raw) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mail: send to %s: %w", strings.Join(msg.To, ","), err)
		}
		return nil
	}
}

func (m *Mailer) deliver(addr string, auth smtp.Auth, from string, to []string, raw []byte) error {
	if m.cfg.Port != "465" {
		return smtp.SendMail(addr, auth, from, to, raw)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (m *Mailer) build(msg Message, now time.Time) []byte {
	contentType, body := "text/plain", msg.Text
	if msg.HTML != "" {
		contentType, body = "text/html", msg.HTML
	}
	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.cfg.FromName), m.cfg.From)
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	if len(msg.CC) > 0 {
		b.WriteString("Cc: " + strings.Join(msg.CC, ", ") + "\r\n")
	}
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: " + contentType + "; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
