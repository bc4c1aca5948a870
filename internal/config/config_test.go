package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearCredentials(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "VISIONCHAT_PROVIDER", "VISIONCHAT_MODEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFailsWithoutCredential(t *testing.T) {
	clearCredentials(t)
	t.Chdir(t.TempDir())

	_, err := Load("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredential))
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")
}

func TestLoadDefaultsWithEnvCredential(t *testing.T) {
	clearCredentials(t)
	t.Chdir(t.TempDir())
	t.Setenv("GOOGLE_API_KEY", "g-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, "gemini-1.5-pro", cfg.Model.Name)
	assert.Equal(t, "g-key", cfg.APIKey())
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearCredentials(t)
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.json")
	body := `{
		"server": {"address": ":9000"},
		"model": {"provider": "openai", "name": "gpt-4o"},
		"providers": {"openai": {"api_key": "file-key", "base_url": "http://example"}},
		"database": {"driver": "sqlite", "dsn": "data/usage.db"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("VISIONCHAT_ADDR", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Address)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "file-key", cfg.APIKey())
	assert.Equal(t, "http://example", cfg.BaseURL())
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, filepath.Join(dir, "data/usage.db"), cfg.Database.DSN)

	t.Setenv("OPENAI_API_KEY", "env-key")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.APIKey())
}

func TestLoadExplicitMissingFile(t *testing.T) {
	clearCredentials(t)
	t.Setenv("GOOGLE_API_KEY", "k")
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Model.Provider = "bard"
	cfg.Credentials.GoogleAPIKey = "k"
	require.Error(t, cfg.Validate())
}

func TestLoadModelNamePerProvider(t *testing.T) {
	clearCredentials(t)
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("OPENAI_API_KEY", "o-key")

	write := func(body string) string {
		path := filepath.Join(dir, "config.json")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	// the provider entry names the model
	path := write(`{"model": {"provider": "openai"}, "providers": {"openai": {"model": "gpt-4o-mini"}}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Name)

	// no model anywhere falls back to the provider default
	path = write(`{"model": {"provider": "openai"}}`)
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model.Name)

	// an explicit model.name wins over the provider entry
	path = write(`{"model": {"provider": "openai", "name": "o1"}, "providers": {"openai": {"model": "gpt-4o-mini"}}}`)
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "o1", cfg.Model.Name)

	t.Setenv("VISIONCHAT_MODEL", "gpt-4.1")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", cfg.Model.Name)
}
