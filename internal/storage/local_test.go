package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Upload(ctx, strings.NewReader("scan"), 4, "cheque.png", "image/png", "cheques")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "cheques/"))
	assert.True(t, strings.HasSuffix(path, ".png"))
	assert.True(t, store.Exists(ctx, path))

	rc, err := store.Download(ctx, path)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "scan", string(body))

	require.NoError(t, store.Delete(ctx, path))
	assert.False(t, store.Exists(ctx, path))
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SafeFullPath("../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = store.SafeFullPath("/etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = store.Download(context.Background(), "../secret")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestIsValidContentType(t *testing.T) {
	assert.True(t, IsValidContentType("image/png"))
	assert.False(t, IsValidContentType("text/html"))
	assert.True(t, IsImageContentType("image/jpeg"))
	assert.False(t, IsImageContentType("application/pdf"))
}
