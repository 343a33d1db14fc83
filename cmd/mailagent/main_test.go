package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailagent/internal/model"
)

func TestRunSaveConfigPersistsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, run(cliConfig{configPath: path, storage: model.StorageMemory, saveConfig: true}))

	saved, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, model.StorageMemory, saved.Storage.Backend)
	assert.Equal(t, model.DefaultAppConfig().API.BaseURL, saved.API.BaseURL)
}

func TestRunSaveConfigRejectsUnknownStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	err := run(cliConfig{configPath: path, storage: "floppy", saveConfig: true})
	require.Error(t, err)
	assert.NoFileExists(t, path)
}
