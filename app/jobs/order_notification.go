// Package jobs holds the storefront's queued jobs.
package jobs

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shashiranjanraj/shopfront/app/events"
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/pkg/notification"
	"github.com/shashiranjanraj/shopfront/pkg/queue"
	"github.com/shopspring/decimal"
)

const OrderNotificationName = "orders.notify"

// Sender is what the job needs from pkg/notification.
type Sender interface {
	Send(ctx context.Context, n notification.Notification) error
}

// Deps are injected into every decoded job by Register.
type Deps struct {
	Repos    *repositories.Repositories
	Notifier Sender
}

// Register makes the storefront's jobs runnable on q.
func Register(q *queue.Manager, d Deps) {
	q.Register(OrderNotificationName, func() queue.Job { return &SendOrderNotification{deps: d} })
}

// SendOrderNotification tells a store about a paid cart by mail to its
// owner, WhatsApp to its number and the order webhook.
type SendOrderNotification struct {
	Order events.CartPaid `json:"order"`

	deps Deps
}

func NewOrderNotification(e events.CartPaid) *SendOrderNotification {
	return &SendOrderNotification{Order: e}
}

func (*SendOrderNotification) JobName() string { return OrderNotificationName }

func (j *SendOrderNotification) Handle(ctx context.Context) error {
	if j.deps.Repos == nil || j.deps.Notifier == nil {
		return fmt.Errorf("jobs: %s has no dependencies; was it registered?", OrderNotificationName)
	}
	store, err := j.deps.Repos.Stores.FindByID(ctx, j.Order.StoreID)
	if err != nil {
		return fmt.Errorf("jobs: load store %s: %w", j.Order.StoreID, err)
	}

	n := orderPlaced{order: j.Order, storeName: store.StoreName, whatsapp: store.WhatsApp}
	if store.OwnerID != "" {
		if owner, err := j.deps.Repos.Users.FindByID(ctx, store.OwnerID); err == nil {
			n.ownerEmail = owner.Email
			n.ownerName = owner.FirstName
		}
	}
	if shopper, err := j.deps.Repos.Users.FindByID(ctx, j.Order.UserID); err == nil {
		n.shopper = strings.TrimSpace(shopper.FirstName + " " + shopper.LastName)
		n.shopperEmail = shopper.Email
	}
	return j.deps.Notifier.Send(ctx, n)
}

type orderPlaced struct {
	order        events.CartPaid
	storeName    string
	whatsapp     string
	ownerEmail   string
	ownerName    string
	shopper      string
	shopperEmail string
}

func (orderPlaced) Via() []string {
	return []string{notification.Mail, notification.WhatsApp, notification.Webhook}
}

func (o orderPlaced) lines() []string {
	out := make([]string, 0, len(o.order.Items))
	for _, it := range o.order.Items {
		sub := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		out = append(out, fmt.Sprintf("%d x %s (%s): $%s", it.Quantity, it.Title, it.Code, sub.StringFixed(2)))
	}
	return out
}

func (o orderPlaced) buyer() string {
	if o.shopper != "" {
		return o.shopper
	}
	if o.shopperEmail != "" {
		return o.shopperEmail
	}
	return "a shopper"
}

func (o orderPlaced) ToMail() notification.MailData {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(o.ownerName))
	fmt.Fprintf(&b, "<p>%s paid order <b>%s</b> at %s.</p><ul>",
		html.EscapeString(o.buyer()), html.EscapeString(o.order.CartID), html.EscapeString(o.storeName))
	for _, l := range o.lines() {
		fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(l))
	}
	fmt.Fprintf(&b, "</ul><p>Total: <b>$%s</b></p>", o.order.Total.StringFixed(2))

	return notification.MailData{
		To:      o.ownerEmail,
		Subject: fmt.Sprintf("New order at %s: $%s", o.storeName, o.order.Total.StringFixed(2)),
		HTML:    b.String(),
	}
}

func (o orderPlaced) ToWhatsApp() notification.WhatsAppData {
	body := fmt.Sprintf("New order %s from %s\n%s\nTotal: $%s",
		o.order.CartID, o.buyer(), strings.Join(o.lines(), "\n"), o.order.Total.StringFixed(2))
	return notification.WhatsAppData{To: o.whatsapp, Body: body}
}

type webhookPayload struct {
	Event   string          `json:"event"`
	Store   string          `json:"storeName"`
	Order   events.CartPaid `json:"order"`
	Shopper string          `json:"shopperEmail,omitempty"`
	Lines   []string        `json:"lines"`
	SentAt  time.Time       `json:"sentAt"`
}

func (o orderPlaced) ToWebhook() notification.WebhookData {
	return notification.WebhookData{
		Payload: webhookPayload{
			Event:   events.CartPaidName,
			Store:   o.storeName,
			Order:   o.order,
			Shopper: o.shopperEmail,
			SentAt:  time.Now().UTC(),
			Lines:   o.lines(),
		},
		Headers: map[string]string{"X-Shopfront-Event": events.CartPaidName},
	}
}
