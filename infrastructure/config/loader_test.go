package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	DB struct {
		URL            string `yaml:"url"`
		MaxConnections int    `yaml:"max_connections"`
	} `yaml:"db"`
	API struct {
		ExposeDev bool `yaml:"expose_dev"`
	} `yaml:"api"`
}

func writeLayer(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0o644))
}

func TestLoadLayersInOrder(t *testing.T) {
	dir := t.TempDir()
	writeLayer(t, dir, "default", "db:\n  url: default-url\n  max_connections: 5\n")
	writeLayer(t, dir, "dev", "db:\n  url: dev-url\n")
	writeLayer(t, dir, "local", "api:\n  expose_dev: true\n")
	t.Setenv("APP_RUN_MODE", "dev")

	var cfg testConfig
	require.NoError(t, LoadDir(dir, &cfg))

	// Later layers override earlier ones key by key.
	assert.Equal(t, "dev-url", cfg.DB.URL)
	assert.Equal(t, 5, cfg.DB.MaxConnections)
	assert.True(t, cfg.API.ExposeDev)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeLayer(t, dir, "default", "db:\n  url: file-url\n  max_connections: 5\n")
	t.Setenv("APP_RUN_MODE", "dev")
	t.Setenv("APP_DB__URL", "env-url")
	t.Setenv("APP_DB__MAX_CONNECTIONS", "9")

	var cfg testConfig
	require.NoError(t, LoadDir(dir, &cfg))
	assert.Equal(t, "env-url", cfg.DB.URL)
	assert.Equal(t, 9, cfg.DB.MaxConnections)
}

func TestLoadMissingLayersSkipped(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_RUN_MODE", "dev")

	var cfg testConfig
	require.NoError(t, LoadDir(dir, &cfg))
	assert.Empty(t, cfg.DB.URL)
}
