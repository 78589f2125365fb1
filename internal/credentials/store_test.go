package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/qhue/internal/db"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "qhue_username.txt"))

	_, err := store.Load(ctx, "10.0.0.2")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "10.0.0.2", "abc123"))

	username, err := store.Load(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, "abc123", username)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_TrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.txt")
	require.NoError(t, os.WriteFile(path, []byte("  token\n"), 0o600))

	username, err := NewFileStore(path).Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "token", username)
}

func TestFileStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	_, err := NewFileStore(path).Load(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(filepath.Join(t.TempDir(), "qhue.sqlite"))
	require.NoError(t, err)
	defer database.Close()

	store := NewSQLiteStore(database.DB)

	_, err = store.Load(ctx, "10.0.0.2")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "10.0.0.2", "first"))
	require.NoError(t, store.Save(ctx, "10.0.0.3", "other"))
	require.NoError(t, store.Save(ctx, "10.0.0.2", "second"))

	username, err := store.Load(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, "second", username)

	username, err = store.Load(ctx, "10.0.0.3")
	require.NoError(t, err)
	assert.Equal(t, "other", username)
}

func TestStores_ImplementInterface(t *testing.T) {
	var _ Store = (*FileStore)(nil)
	var _ Store = (*SQLiteStore)(nil)
}
