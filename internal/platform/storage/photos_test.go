package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silaibook/silaibook/internal/shared"
)

func TestSaveWritesFileUnderUUIDName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "photos")
	store, err := NewPhotoStore(dir, "http://localhost:8080/static/photos/")
	require.NoError(t, err)

	url, err := store.Save("Kurta.JPG", strings.NewReader("fake-image"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://localhost:8080/static/photos/"))
	assert.True(t, strings.HasSuffix(url, ".jpg"))

	name := filepath.Base(url)
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "fake-image", string(data))
}

func TestSaveRejectsUnknownExtension(t *testing.T) {
	store, err := NewPhotoStore(t.TempDir(), "/static/photos")
	require.NoError(t, err)

	_, err = store.Save("notes.exe", strings.NewReader("x"))
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}
