package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoadsTestDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.DatabaseFilePath)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, 0, cfg.ServerPort)
}

func TestNewAppliesFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := []byte("server:\n  port: 9999\njwt:\n  secret: file-secret\n")
	require.NoError(t, os.WriteFile(path, contents, 0600))

	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.ServerPort)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
}

func TestNewEnvironmentVariablesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0600))

	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("BIBLIOTEKA_SERVER_PORT", "7777")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.ServerPort)
}
