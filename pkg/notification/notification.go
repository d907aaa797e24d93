// Package notification fans one notification out over several channels:
// mail, WhatsApp (Cloud API) and a JSON webhook.
//
//	type OrderPlaced struct{ ... }
//	func (n OrderPlaced) Via() []string             { return []string{notification.Mail, notification.Webhook} }
//	func (n OrderPlaced) ToMail() notification.MailData { ... }
//	func (n OrderPlaced) ToWebhook() notification.WebhookData { ... }
//
//	err := notifier.Send(ctx, OrderPlaced{...})
//
// A channel that is not configured is skipped. A channel that fails does
// not stop the others; the failures are joined into one error.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shashiranjanraj/shopfront/config"
	client "github.com/shashiranjanraj/shopfront/pkg/http"
	"github.com/shashiranjanraj/shopfront/pkg/logger"
	"github.com/shashiranjanraj/shopfront/pkg/mail"
)

// Channel names.
const (
	Mail     = "mail"
	WhatsApp = "whatsapp"
	Webhook  = "webhook"
)

type MailData struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// WhatsAppData is a plain text message. To may contain formatting; only
// its digits are sent.
type WhatsAppData struct {
	To   string
	Body string
}

type WebhookData struct {
	URL     string // overrides the notifier's default
	Payload any
	Headers map[string]string
}

type Notification interface {
	Via() []string
}

type Mailable interface{ ToMail() MailData }

type WhatsAppable interface{ ToWhatsApp() WhatsAppData }

type Webhookable interface{ ToWebhook() WebhookData }

// MailSender is what pkg/mail's Mailer provides.
type MailSender interface {
	Configured() bool
	Send(ctx context.Context, msg mail.Message) error
}

// WhatsAppConfig addresses the Cloud API: POST {APIURL}/{PhoneID}/messages.
type WhatsAppConfig struct {
	APIURL  string
	Token   string
	PhoneID string
}

func (w WhatsAppConfig) configured() bool { return w.Token != "" && w.PhoneID != "" }

// Notifier holds the channel settings.
type Notifier struct {
	Mailer     MailSender
	WhatsApp   WhatsAppConfig
	WebhookURL string
	Timeout    time.Duration
}

// FromConfig reads MAIL_*, WHATSAPP_API_URL, WHATSAPP_TOKEN,
// WHATSAPP_PHONE_ID and ORDER_WEBHOOK_URL.
func FromConfig() *Notifier {
	return &Notifier{
		Mailer: mail.FromConfig(),
		WhatsApp: WhatsAppConfig{
			APIURL:  config.Get("WHATSAPP_API_URL", "https://graph.facebook.com/v19.0"),
			Token:   config.Get("WHATSAPP_TOKEN", ""),
			PhoneID: config.Get("WHATSAPP_PHONE_ID", ""),
		},
		WebhookURL: config.Get("ORDER_WEBHOOK_URL", ""),
		Timeout:    10 * time.Second,
	}
}

// Send delivers n over every channel it asks for.
func (nt *Notifier) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, channel := range n.Via() {
		sent, err := nt.dispatch(ctx, channel, n)
		switch {
		case err != nil:
			logger.WithCtx(ctx).Error("notification: channel failed", "channel", channel, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", channel, err))
		case !sent:
			logger.WithCtx(ctx).Debug("notification: channel skipped", "channel", channel)
		}
	}
	return errors.Join(errs...)
}

func (nt *Notifier) dispatch(ctx context.Context, channel string, n Notification) (bool, error) {
	switch channel {
	case Mail:
		m, ok := n.(Mailable)
		if !ok {
			return false, fmt.Errorf("%T does not implement Mailable", n)
		}
		return nt.sendMail(ctx, m.ToMail())
	case WhatsApp:
		w, ok := n.(WhatsAppable)
		if !ok {
			return false, fmt.Errorf("%T does not implement WhatsAppable", n)
		}
		return nt.sendWhatsApp(ctx, w.ToWhatsApp())
	case Webhook:
		w, ok := n.(Webhookable)
		if !ok {
			return false, fmt.Errorf("%T does not implement Webhookable", n)
		}
		return nt.sendWebhook(ctx, w.ToWebhook())
	default:
		return false, fmt.Errorf("unknown channel %q", channel)
	}
}

func (nt *Notifier) sendMail(ctx context.Context, d MailData) (bool, error) {
	if nt.Mailer == nil || !nt.Mailer.Configured() || d.To == "" {
		return false, nil
	}
	return true, nt.Mailer.Send(ctx, mail.Message{To: []string{d.To}, Subject: d.Subject, HTML: d.HTML, Text: d.Text})
}

type whatsAppText struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

func (nt *Notifier) sendWhatsApp(ctx context.Context, d WhatsAppData) (bool, error) {
	to := digits(d.To)
	if !nt.WhatsApp.configured() || to == "" {
		return false, nil
	}
	msg := whatsAppText{MessagingProduct: "whatsapp", To: to, Type: "text"}
	msg.Text.Body = d.Body

	url := strings.TrimRight(nt.WhatsApp.APIURL, "/") + "/" + nt.WhatsApp.PhoneID + "/messages"
	resp, err := client.Post(url).
		WithContext(ctx).
		Bearer(nt.WhatsApp.Token).
		Body(msg).
		Timeout(nt.timeout()).
		Retry(2, time.Second).
		Send()
	if err != nil {
		return true, err
	}
	return true, resp.Throw()
}

func (nt *Notifier) sendWebhook(ctx context.Context, d WebhookData) (bool, error) {
	url := d.URL
	if url == "" {
		url = nt.WebhookURL
	}
	if url == "" {
		return false, nil
	}
	req := client.Post(url).WithContext(ctx).Body(d.Payload).Timeout(nt.timeout()).Retry(3, time.Second)
	for k, v := range d.Headers {
		req.Header(k, v)
	}
	resp, err := req.Send()
	if err != nil {
		return true, err
	}
	return true, resp.Throw()
}

func (nt *Notifier) timeout() time.Duration {
	if nt.Timeout > 0 {
		return nt.Timeout
	}
	return 10 * time.Second
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
