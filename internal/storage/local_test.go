package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_WriteReadDelete(t *testing.T) {
	store, err := NewLocal(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	ctx := context.Background()

	path := GeneratePath("photo.jpg")
	require.NoError(t, store.Write(ctx, path, []byte("image bytes")))

	data, err := store.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), data)

	require.NoError(t, store.Delete(ctx, path))

	_, err = store.Read(ctx, path)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_ReadMissing(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read(context.Background(), "uploads/nope.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGeneratePath(t *testing.T) {
	path := GeneratePath("дневник 25.02.jpg")
	assert.True(t, strings.HasPrefix(path, "uploads/"))
	assert.True(t, strings.HasSuffix(path, ".jpg"))
	assert.NotContains(t, path, " ")

	// Paths are unique per call.
	assert.NotEqual(t, path, GeneratePath("дневник 25.02.jpg"))

	// Extension is preserved case-insensitively, absent extension tolerated.
	assert.True(t, strings.HasSuffix(GeneratePath("scan.PNG"), ".png"))
	noExt := GeneratePath("scan")
	assert.True(t, strings.HasPrefix(noExt, "uploads/"))
}
