package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), 1024)
	require.NoError(t, err)

	n, err := store.Save(ctx, "order-1/proof.jpg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	rc, err := store.Open(ctx, "order-1/proof.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	require.NoError(t, store.Delete(ctx, "order-1/proof.jpg"))
	require.NoError(t, store.Delete(ctx, "order-1/proof.jpg"))

	_, err = store.Open(ctx, "order-1/proof.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_SizeLimit(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocalStore(root, 4)
	require.NoError(t, err)

	n, err := store.Save(ctx, "a/exact.bin", strings.NewReader("1234"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, err = store.Save(ctx, "a/big.bin", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)
	_, statErr := os.Stat(filepath.Join(root, "a", "big.bin"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), 0)
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../outside", "a/../../outside", "..", `a\b`} {
		_, err := store.Save(ctx, key, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestPolicy_Allows(t *testing.T) {
	p := Policy{AllowedContentTypes: []string{"image/jpeg", "application/pdf"}}

	assert.True(t, p.Allows("image/jpeg"))
	assert.True(t, p.Allows("IMAGE/JPEG"))
	assert.True(t, p.Allows("application/pdf; charset=binary"))
	assert.False(t, p.Allows("text/html"))
	assert.False(t, p.Allows(""))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".jpg", Extension("image/jpeg", "photo.JPEG"))
	assert.Equal(t, ".pdf", Extension("application/pdf", ""))
	assert.Equal(t, ".gif", Extension("image/gif", "anim.GIF"))
	assert.Equal(t, "", Extension("application/octet-stream", "noext"))
}
