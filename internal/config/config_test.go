package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8090", cfg.Addr)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "*", cfg.AllowOrigin)
	assert.Equal(t, "", cfg.UIDir)
	assert.False(t, cfg.OpenBrowser)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
}

func TestLoadFileOverridesOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
addr     = ":9090"
log_json = true
`), 0o644))

	cfg := Default()
	require.NoError(t, LoadFile(path, cfg))

	assert.Equal(t, ":9090", cfg.Addr)
	assert.True(t, cfg.LogJSON)
	// Untouched fields keep the built-in default.
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFileMissingPathErrors(t *testing.T) {
	cfg := Default()
	err := LoadFile(filepath.Join(t.TempDir(), "nope.hcl"), cfg)
	assert.Error(t, err)
}
