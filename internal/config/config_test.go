package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "test-key")
		path := writeConfig(t, `
server:
  port: 9090
database:
  path: /tmp/test.db
storage:
  base_dir: /tmp/storage
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
		assert.Equal(t, "/tmp/storage", cfg.Storage.BaseDir)

		// Untouched keys keep their defaults.
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	})

	t.Run("api key comes from the environment", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "secret-from-env")
		path := writeConfig(t, `
database:
  path: /tmp/test.db
storage:
  base_dir: /tmp/storage
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "secret-from-env", cfg.OpenAI.APIKey)
	})

	t.Run("missing api key fails validation", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		path := writeConfig(t, `
database:
  path: /tmp/test.db
storage:
  base_dir: /tmp/storage
`)

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api_key")
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
