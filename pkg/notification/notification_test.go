package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shashiranjanraj/shopfront/pkg/mail"
	"github.com/shashiranjanraj/shopfront/pkg/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Configured() bool { return m.Called().Bool(0) }

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type orderPlaced struct {
	via []string
}

func (o orderPlaced) Via() []string { return o.via }

func (orderPlaced) ToMail() notification.MailData {
	return notification.MailData{To: "owner@shop.test", Subject: "New order", Text: "2 x Mug"}
}

func (orderPlaced) ToWhatsApp() notification.WhatsAppData {
	return notification.WhatsAppData{To: "+54 9 11 5555-0101", Body: "New order"}
}

func (orderPlaced) ToWebhook() notification.WebhookData {
	return notification.WebhookData{Payload: map[string]string{"cartId": "c1"}, Headers: map[string]string{"X-Shop": "corner"}}
}

func TestSendAllChannels(t *testing.T) {
	var waBody map[string]any
	var hookBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v19.0/PHONE/messages":
			assert.Equal(t, "Bearer wa-token", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&waBody))
		case "/hook":
			assert.Equal(t, "corner", r.Header.Get("X-Shop"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&hookBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	mailer := &mockMailer{}
	mailer.On("Configured").Return(true)
	mailer.On("Send", mock.Anything, mail.Message{To: []string{"owner@shop.test"}, Subject: "New order", Text: "2 x Mug"}).Return(nil)

	n := &notification.Notifier{
		Mailer:     mailer,
		WhatsApp:   notification.WhatsAppConfig{APIURL: srv.URL + "/v19.0", Token: "wa-token", PhoneID: "PHONE"},
		WebhookURL: srv.URL + "/hook",
	}
	err := n.Send(context.Background(), orderPlaced{via: []string{notification.Mail, notification.WhatsApp, notification.Webhook}})
	require.NoError(t, err)

	mailer.AssertExpectations(t)
	assert.Equal(t, "whatsapp", waBody["messaging_product"])
	assert.Equal(t, "5491155550101", waBody["to"])
	assert.Equal(t, map[string]any{"body": "New order"}, waBody["text"])
	assert.Equal(t, "c1", hookBody["cartId"])
}

func TestUnconfiguredChannelsAreSkipped(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("Configured").Return(false)

	n := &notification.Notifier{Mailer: mailer}
	err := n.Send(context.Background(), orderPlaced{via: []string{notification.Mail, notification.WhatsApp, notification.Webhook}})
	assert.NoError(t, err)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestFailuresAreJoined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	mailer := &mockMailer{}
	mailer.On("Configured").Return(true)
	mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	n := &notification.Notifier{Mailer: mailer, WebhookURL: srv.URL}
	err := n.Send(context.Background(), orderPlaced{via: []string{notification.Mail, notification.Webhook, "pigeon"}})
	require.Error(t, err)
	assert.ErrorContains(t, err, "mail: smtp down")
	assert.ErrorContains(t, err, "webhook: http: status 400")
	assert.ErrorContains(t, err, `unknown channel "pigeon"`)
}
