package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("returns defaults when the file is missing", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:8000/api/v1", cfg.API.BaseURL)
		assert.Equal(t, 30, cfg.API.TimeoutSec)
		assert.Equal(t, StorageSQLite, cfg.Storage.Backend)
		assert.Equal(t, 0, cfg.Sync.PollIntervalSec)
		assert.Equal(t, "drafts", filepath.Base(cfg.Export.Dir))
	})

	t.Run("reads values from yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
api:
  base_url: https://agent.example.com/api/v1
  timeout_sec: 10
  rate_per_sec: 2.5
storage:
  backend: memory
sync:
  poll_interval_sec: 300
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "https://agent.example.com/api/v1", cfg.API.BaseURL)
		assert.Equal(t, 10, cfg.API.TimeoutSec)
		assert.InDelta(t, 2.5, cfg.API.RatePerSec, 0.001)
		assert.Equal(t, 5, cfg.API.Burst)
		assert.Equal(t, StorageMemory, cfg.Storage.Backend)
		assert.Equal(t, 300, cfg.Sync.PollIntervalSec)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		t.Setenv("MAILAGENT_API_BASE_URL", "http://10.0.0.5:8000/api/v1")

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "http://10.0.0.5:8000/api/v1", cfg.API.BaseURL)
	})

	t.Run("rejects an unknown storage backend", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: cookies\n"), 0o600))

		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cookies")
	})
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultAppConfig()
	cfg.API.BaseURL = "https://saved.example.com/api/v1"
	cfg.Storage.Backend = StorageKeyring
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example.com/api/v1", loaded.API.BaseURL)
	assert.Equal(t, StorageKeyring, loaded.Storage.Backend)
}
