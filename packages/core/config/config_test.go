package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.True(t, c.IsDefault())
	assert.Equal(t, 30*time.Second, c.TimeoutDuration())
	assert.Equal(t, time.Second, c.RetryDelayDuration())
	assert.False(t, c.GetStopOnFailure())
}

func TestFindAndLoadConfig(t *testing.T) {
	t.Run("no file yields defaults", func(t *testing.T) {
		c, err := FindAndLoadConfig(t.TempDir())
		require.NoError(t, err)
		assert.True(t, c.IsDefault())
	})

	t.Run("reads yaml over defaults", func(t *testing.T) {
		dir := t.TempDir()
		content := `
defaultEnvironment: staging
timeout: 5000
stopOnFailure: true
scriptsDir: ./scripts
environments:
  staging:
    baseUrl: https://staging.example.com
notify:
  on: failure
  slackWebhook: https://hooks.slack.example/x
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".scriptsuite.yaml"), []byte(content), 0644))

		c, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "staging", c.DefaultEnvironment)
		assert.Equal(t, 5*time.Second, c.TimeoutDuration())
		assert.Equal(t, 1000, c.RetryDelay, "unset keys keep defaults")
		assert.True(t, c.GetStopOnFailure())
		assert.Equal(t, "https://staging.example.com", c.Environments["staging"]["baseUrl"])
		require.NotNil(t, c.Notify)
		assert.Equal(t, "failure", c.Notify.On)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "scriptsuite.yaml"), []byte("notify:\n  on: sometimes\n"), 0644))
		_, err := FindAndLoadConfig(dir)
		assert.ErrorContains(t, err, "notify.on")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.yaml")
		require.NoError(t, os.WriteFile(path, []byte("timeout: [1"), 0644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Environments = map[string]map[string]string{
		"dev": {"a": "1", "b": "1"},
	}

	other := &Config{
		Timeout:       1000,
		StopOnFailure: BoolPtr(true),
		Environments: map[string]map[string]string{
			"dev":  {"b": "2"},
			"prod": {"c": "3"},
		},
	}

	merged := base.Merge(other)
	assert.Equal(t, 1000, merged.Timeout)
	assert.True(t, merged.GetStopOnFailure())
	assert.False(t, merged.GetVerbose(), "unset pointer keeps base value")
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, merged.Environments["dev"])
	assert.Equal(t, map[string]string{"c": "3"}, merged.Environments["prod"])
	assert.Equal(t, "1", base.Environments["dev"]["b"], "base is not modified")

	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".scriptsuite.yaml")
	c := DefaultConfig()
	c.Database = "sqlite://runs.db"
	require.NoError(t, c.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite://runs.db", loaded.Database)
}
