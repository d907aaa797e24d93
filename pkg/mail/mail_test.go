package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendBuildsMessage(t *testing.T) {
	m := New(SMTP{Host: "smtp.test", Port: "587", Username: "u", Password: "p", From: "orders@shop.test", FromName: "Corner Shop"})

	var (
		gotAddr string
		gotTo   []string
		gotRaw  string
	)
	m.send = func(addr string, _ smtp.Auth, from string, to []string, raw []byte) error {
		gotAddr, gotTo, gotRaw = addr, to, string(raw)
		assert.Equal(t, "orders@shop.test", from)
		return nil
	}

	err := m.Send(context.Background(), Message{
		To:      []string{"owner@shop.test"},
		CC:      []string{"ops@shop.test"},
		Subject: "New order",
		Text:    "line one\nline two",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.test:587", gotAddr)
	assert.Equal(t, []string{"owner@shop.test", "ops@shop.test"}, gotTo)
	assert.Contains(t, gotRaw, "Subject: New order\r\n")
	assert.Contains(t, gotRaw, "From: Corner Shop <orders@shop.test>\r\n")
	assert.Contains(t, gotRaw, "Content-Type: text/plain")
	assert.True(t, strings.HasSuffix(gotRaw, "line one\r\nline two"))
}

func TestHTMLWins(t *testing.T) {
	m := New(SMTP{Host: "h", Port: "25", From: "a@b.c"})
	raw := string(m.build(Message{To: []string{"x@y.z"}, HTML: "<b>hi</b>", Text: "hi"}, time.Unix(0, 0)))
	assert.Contains(t, raw, "Content-Type: text/html")
	assert.Contains(t, raw, "<b>hi</b>")
}

func TestSendErrors(t *testing.T) {
	assert.ErrorIs(t, New(SMTP{}).Send(context.Background(), Message{To: []string{"a@b.c"}}), ErrNotConfigured)

	m := New(SMTP{Host: "h", Port: "25"})
	assert.Error(t, m.Send(context.Background(), Message{}))

	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	assert.ErrorContains(t, m.Send(context.Background(), Message{To: []string{"a@b.c"}}), "refused")
}
