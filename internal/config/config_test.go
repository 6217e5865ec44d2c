package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.HTTP.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.HTTP.RetryDelay)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	assert.True(t, cfg.Demux.EagerSeekTable)
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
http:
  timeout: 10s
  retry_attempts: 5

logging:
  level: "debug"
  format: "json"

demux:
  eager_seek_table: false
`
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 5, cfg.HTTP.RetryAttempts)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Demux.EagerSeekTable)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AMPGO_HTTP_RETRY_ATTEMPTS", "7")
	t.Setenv("AMPGO_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 7, cfg.HTTP.RetryAttempts)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
http:
  retry_attempts: 1
logging:
  level: "info"
`
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	require.NoError(t, err)

	t.Setenv("AMPGO_HTTP_RETRY_ATTEMPTS", "9")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.HTTP.RetryAttempts)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		HTTP:    HTTPConfig{Timeout: time.Second, RetryAttempts: 1},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_NegativeTimeout(t *testing.T) {
	cfg := &Config{
		HTTP:    HTTPConfig{Timeout: -time.Second},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "http.timeout")
}

func TestValidate_NegativeRetryAttempts(t *testing.T) {
	cfg := &Config{
		HTTP:    HTTPConfig{RetryAttempts: -1},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "http.retry_attempts")
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "invalid", Format: "json"}}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "info", Format: "xml"}}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidContent := `
http:
  timeout: "not a duration"
  invalid yaml structure
`
	err := os.WriteFile(configPath, []byte(invalidContent), 0o600)
	require.NoError(t, err)

	_, err = Load(configPath)
	assert.Error(t, err)
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}
