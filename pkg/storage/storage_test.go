package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/shashiranjanraj/shopfront/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	cases := map[string]string{
		"products/p1/a.png":   "products/p1/a.png",
		"/products//p1/a.png": "products/p1/a.png",
		`products\p1\a.png`:   "products/p1/a.png",
		"a/../b.png":          "b.png",
	}
	for in, want := range cases {
		got, err := storage.CleanKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := storage.CleanKey("")
	assert.ErrorIs(t, err, storage.ErrInvalidPath)
}

func TestLocalDisk(t *testing.T) {
	ctx := context.Background()
	disk, err := storage.NewLocal(t.TempDir(), "http://localhost:8080/storage/")
	require.NoError(t, err)

	key := "products/p1/mug.png"
	require.NoError(t, disk.Put(ctx, key, strings.NewReader("png-bytes"), "image/png"))
	assert.True(t, disk.Exists(ctx, key))
	assert.Equal(t, "http://localhost:8080/storage/products/p1/mug.png", disk.URL(key))

	rc, err := disk.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, disk.Delete(ctx, key))
	assert.False(t, disk.Exists(ctx, key))
	assert.NoError(t, disk.Delete(ctx, key), "deleting twice is fine")
}
