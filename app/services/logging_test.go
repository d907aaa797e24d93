package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/shashiranjanraj/shopfront/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requestLog mimics the auth middleware: a JSON logger already tagged
// with the caller's user_id.
func requestLog(userID string) (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil)).With("user_id", userID)
	return logger.InjectLogger(context.Background(), log), &buf
}

func logLine(t *testing.T, buf *bytes.Buffer, msg string) (string, map[string]any) {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == msg {
			return line, entry
		}
	}
	t.Fatalf("no %q entry in:\n%s", msg, buf.String())
	return "", nil
}

func TestCreateUserLogsNewUserSeparately(t *testing.T) {
	f := newFixture(t)
	ctx, buf := requestLog(f.admin.ID)

	u, err := f.svc.Auth.CreateUser(ctx, f.adminClaims(), CreateUserInput{
		Email: "clerk@corner.test", Password: "secret1", FirstName: "C", LastName: "Lerk",
	})
	require.NoError(t, err)

	line, entry := logLine(t, buf, "user created by admin")
	assert.Equal(t, 1, strings.Count(line, `"user_id"`))
	assert.Equal(t, f.admin.ID, entry["user_id"])
	assert.Equal(t, u.ID, entry["new_user_id"])
}

func TestCreateCartLogsUserOnce(t *testing.T) {
	f := newFixture(t)
	ctx, buf := requestLog(f.shopper.ID)

	cart, err := f.svc.Carts.CreateCart(ctx, f.shopper.ID, f.store.ID)
	require.NoError(t, err)

	line, entry := logLine(t, buf, "cart created")
	assert.Equal(t, 1, strings.Count(line, `"user_id"`))
	assert.Equal(t, cart.ID, entry["cart_id"])
}
