package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"database_dsn":          "postgres://json",
		"api_base_url":          "http://json-api",
		"client_id":             "json-cid",
		"credentials_secret_id": "json-secret",
		"timeline_page_size":    25,
		"concurrency":           8,
		"http_timeout":          "45s",
		"archive_bucket":        "json-bucket",
		"log_level":             "warn",
	})
	pathEnv := writeTempJSON(t, dir, "env.json", map[string]any{
		"listen_addr":  ":9999",
		"http_timeout": float64(2 * time.Second),
	})

	t.Run("loads from -config flag", func(t *testing.T) {
		t.Setenv("INDEXER_CONFIG", "")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"sync-all", "-config", pathFlag})

		assert.Equal(t, "postgres://json", cfg.DatabaseDSN)
		assert.Equal(t, "http://json-api", cfg.APIBaseURL)
		assert.Equal(t, "json-cid", cfg.ClientID)
		assert.Equal(t, "json-secret", cfg.CredentialsSecretID)
		assert.Equal(t, 25, cfg.TimelinePageSize)
		assert.Equal(t, 8, cfg.Concurrency)
		assert.Equal(t, 45*time.Second, cfg.HTTPTimeout)
		assert.Equal(t, "json-bucket", cfg.ArchiveBucket)
		assert.Equal(t, "warn", cfg.LogLevel)
		// absent keys keep defaults
		assert.Equal(t, ":8080", cfg.ListenAddr)
		assert.Equal(t, "https://api.twitter.com/2/oauth2/token", cfg.TokenURL)
	})

	t.Run("loads from env", func(t *testing.T) {
		t.Setenv("INDEXER_CONFIG", pathEnv)

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, nil)

		assert.Equal(t, ":9999", cfg.ListenAddr)
		assert.Equal(t, 2*time.Second, cfg.HTTPTimeout)
	})

	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv("INDEXER_CONFIG", pathEnv)

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"-c", pathFlag})

		assert.Equal(t, ":8080", cfg.ListenAddr)
		assert.Equal(t, 45*time.Second, cfg.HTTPTimeout)
	})

	t.Run("no config and no flags leaves config unchanged", func(t *testing.T) {
		t.Setenv("INDEXER_CONFIG", "")

		cfg := &Config{}
		cfg.LoadDefaults()
		want := *cfg
		parseJson(cfg, []string{"serve"})

		assert.Equal(t, want, *cfg)
	})

	t.Run("missing file panics", func(t *testing.T) {
		t.Setenv("INDEXER_CONFIG", "")
		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", filepath.Join(dir, "nope.json")}) })
	})

	t.Run("invalid json panics", func(t *testing.T) {
		t.Setenv("INDEXER_CONFIG", "")
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", bad}) })
	})
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	t.Setenv("INDEXER_CONFIG", "")
	path := writeTempJSON(t, "", "", map[string]any{"timeline_page_size": 25, "log_level": "warn"})

	cfg := LoadConfig([]string{"sync", "-c", path, "-n", "10"})

	assert.Equal(t, 10, cfg.TimelinePageSize)
	assert.Equal(t, "warn", cfg.LogLevel)
}
