package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPictureStorage(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalPictureStorage(root)
	require.NoError(t, err)
	ctx := context.Background()

	stored, err := store.Save(ctx, "abc-123.png", strings.NewReader("png bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/profiles/abc-123.png", stored)

	data, err := os.ReadFile(filepath.Join(root, "profiles", "abc-123.png"))
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))

	require.NoError(t, store.Remove(ctx, stored))
	_, err = os.Stat(filepath.Join(root, "profiles", "abc-123.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Remove(ctx, stored), "missing file is not an error")
	assert.NoError(t, store.Remove(ctx, "https://res.cloudinary.com/demo/image/upload/v1/x.png"))
}

func TestLocalPictureStorageStaysInRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalPictureStorage(root)
	require.NoError(t, err)

	stored, err := store.Save(context.Background(), "../../escape.png", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/profiles/escape.png", stored)

	outside := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))
	require.NoError(t, store.Remove(context.Background(), "/uploads/profiles/../secret.txt"))
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestCloudinaryPublicID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://res.cloudinary.com/demo/image/upload/v1712/co-razer/profiles/abc-123.png", "co-razer/profiles/abc-123"},
		{"/uploads/profiles/abc-123.png", ""},
		{"https://res.cloudinary.com/demo/image/upload/v1/other/abc.png", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cloudinaryPublicID(tt.url, cloudinaryProfileFolder))
	}
}
