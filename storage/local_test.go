package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "http://localhost:8080/files/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := store.Put(ctx, "products/abc.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/products/abc.png", url)

	body, contentType, err := store.Get(ctx, "products/abc.png")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	body.Close()
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", contentType)

	require.NoError(t, store.Delete(ctx, "products/abc.png"))
	_, _, err = store.Get(ctx, "products/abc.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, "products/abc.png"))
}

func TestLocalStoragePDFContentType(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "http://localhost")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "receipts/RCP-20240101-ABCDEFGH.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)

	body, contentType, err := store.Get(context.Background(), "receipts/RCP-20240101-ABCDEFGH.pdf")
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, "application/pdf", contentType)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "http://localhost")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../etc/passwd", []byte("x"), "text/plain")
	assert.Error(t, err)
	_, _, err = store.Get(context.Background(), "products/../../secret")
	assert.Error(t, err)
}
