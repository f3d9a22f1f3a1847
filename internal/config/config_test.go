package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonops/vectorcom/pkg/errors"
)

func validConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			ProgID:             "CANoe.Application",
			Visible:            true,
			ConnectTimeoutSecs: 30,
		},
		Events: EventsConfig{
			TimeoutSecs:      10,
			PollIntervalMsec: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "CANoe.Application", config.Application.ProgID)
	assert.True(t, config.Application.Visible)
	assert.True(t, config.Application.Attach)
	assert.Equal(t, 60*time.Second, config.Application.ConnectTimeout())
	assert.Equal(t, time.Duration(0), config.Events.Timeout())
	assert.Equal(t, 100*time.Millisecond, config.Events.PollInterval())
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.Equal(t, "stdout", config.Logging.Output)
	assert.NoError(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero event timeout waits forever",
			mutate:  func(c *Config) { c.Events.TimeoutSecs = 0 },
			wantErr: false,
		},
		{
			name:    "missing prog id",
			mutate:  func(c *Config) { c.Application.ProgID = "  " },
			wantErr: true,
			errMsg:  "application.prog_id",
		},
		{
			name:    "non-positive connect timeout",
			mutate:  func(c *Config) { c.Application.ConnectTimeoutSecs = 0 },
			wantErr: true,
			errMsg:  "application.connect_timeout",
		},
		{
			name:    "negative event timeout",
			mutate:  func(c *Config) { c.Events.TimeoutSecs = -1 },
			wantErr: true,
			errMsg:  "events.timeout",
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Events.PollIntervalMsec = 0 },
			wantErr: true,
			errMsg:  "events.poll_interval",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "invalid" },
			wantErr: true,
			errMsg:  "logging.level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "invalid" },
			wantErr: true,
			errMsg:  "logging.format",
		},
		{
			name:    "log output in missing directory",
			mutate:  func(c *Config) { c.Logging.Output = "/non/existent/dir/vectorcom.log" },
			wantErr: true,
			errMsg:  "logging.output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[application]
prog_id = "CANoe.Application.17"
visible = false
attach = false
connect_timeout = 120

[events]
timeout = 30
poll_interval = 250

[logging]
level = "debug"
format = "json"
output = "stderr"
`

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "CANoe.Application.17", config.Application.ProgID)
	assert.False(t, config.Application.Visible)
	assert.False(t, config.Application.Attach)
	assert.Equal(t, 120*time.Second, config.Application.ConnectTimeout())
	assert.Equal(t, 30*time.Second, config.Events.Timeout())
	assert.Equal(t, 250*time.Millisecond, config.Events.PollInterval())
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "stderr", config.Logging.Output)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfigInvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	err := os.WriteFile(configPath, []byte("[events]\npoll_interval = -5\n"), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "events.poll_interval")
}

func TestLoadConfigMalformedSearchedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "configs"), 0755))
	err := os.WriteFile(filepath.Join(tmpDir, "configs", "config.toml"), []byte("[events\ntimeout = 10\n"), 0644)
	require.NoError(t, err)
	t.Setenv("ProgramData", "")
	t.Chdir(tmpDir)

	config, err := Load("")
	require.Error(t, err)
	assert.Nil(t, config)

	var cfgErr *errors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Message, "config.toml")
	assert.NotNil(t, cfgErr.Cause)
}

func TestLoadConfigWithEnvironmentVariables(t *testing.T) {
	t.Setenv("VECTORCOM_PROG_ID", "CANoe.Application.16")
	t.Setenv("VECTORCOM_EVENT_TIMEOUT", "45")
	t.Setenv("VECTORCOM_LOG_LEVEL", "warn")

	// Run from an empty directory so no stray config.toml is picked up
	t.Chdir(t.TempDir())

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "CANoe.Application.16", config.Application.ProgID)
	assert.Equal(t, 45*time.Second, config.Events.Timeout())
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, 100*time.Millisecond, config.Events.PollInterval())
}
