package seeders_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/app/services"
	"github.com/shashiranjanraj/shopfront/database/seeders"
)

func TestDemoSeedIsRepeatable(t *testing.T) {
	ctx := context.Background()
	svc := services.New(repositories.NewMemory(), nil, nil)

	var out bytes.Buffer
	require.NoError(t, seeders.RunAll(ctx, svc, &out))
	assert.Contains(t, out.String(), "demo-store")

	stores, err := svc.Stores.All(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 1)

	_, products, err := svc.Stores.Show(ctx, stores[0].ID)
	require.NoError(t, err)
	assert.Len(t, products, 4)

	session, err := svc.Auth.Login(ctx, services.LoginInput{
		Email:    seeders.DemoAdminEmail,
		Password: seeders.DemoAdminPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, stores[0].ID, session.User.StoreID)

	require.NoError(t, seeders.RunAll(ctx, svc, &out))
	stores, err = svc.Stores.All(ctx)
	require.NoError(t, err)
	assert.Len(t, stores, 1)
}
