package local_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/lighthouse-dashboard/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ExistingDir", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "archive")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsAFile", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "plain")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	t.Run("NestedPath", func(t *testing.T) {
		path := "audits/2024/03/01/report.json"
		data := []byte(`{"id":"https://example.com/"}`)
		uri, err := store.PutObject(context.Background(), path, "application/json", bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, path), uri)

		// #nosec G304 -- test reads from the controlled temp directory.
		got, err := os.ReadFile(filepath.Join(tempDir, path))
		require.NoError(t, err)
		assert.Equal(t, data, got)

		entries, err := os.ReadDir(filepath.Join(tempDir, "audits", "2024", "03", "01"))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp files must not be left behind")
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "", "application/json", bytes.NewReader([]byte("{}")))
		assert.Error(t, err)
	})

	t.Run("Traversal", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "../escape.json", "application/json", bytes.NewReader([]byte("{}")))
		assert.ErrorContains(t, err, "escapes base directory")
	})

	t.Run("CanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := store.PutObject(ctx, "late.json", "application/json", bytes.NewReader([]byte("{}")))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
