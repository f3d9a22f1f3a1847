package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/axonops/vectorcom/pkg/errors"
)

// Config represents the complete configuration structure
type Config struct {
	Application ApplicationConfig `mapstructure:"application"`
	Events      EventsConfig      `mapstructure:"events"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ApplicationConfig controls how the automation server is reached
type ApplicationConfig struct {
	ProgID             string `mapstructure:"prog_id"`
	Visible            bool   `mapstructure:"visible"`
	Attach             bool   `mapstructure:"attach"`
	ConnectTimeoutSecs int    `mapstructure:"connect_timeout"`
}

func (a ApplicationConfig) ConnectTimeout() time.Duration {
	return time.Duration(a.ConnectTimeoutSecs) * time.Second
}

// EventsConfig controls the wait for asynchronous COM events
type EventsConfig struct {
	TimeoutSecs      int `mapstructure:"timeout"`
	PollIntervalMsec int `mapstructure:"poll_interval"`
}

// Timeout returns how long to wait for an event; zero waits forever
func (e EventsConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

func (e EventsConfig) PollInterval() time.Duration {
	return time.Duration(e.PollIntervalMsec) * time.Millisecond
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			ProgID:             "CANoe.Application",
			Visible:            true,
			Attach:             true,
			ConnectTimeoutSecs: 60,
		},
		Events: EventsConfig{
			TimeoutSecs:      0,
			PollIntervalMsec: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("toml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		if programData := os.Getenv("ProgramData"); programData != "" {
			v.AddConfigPath(filepath.Join(programData, "vectorcom"))
		}
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VECTORCOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvironmentVariables(v)
	setDefaults(v, config)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is only fatal when it was asked for explicitly
		var notFound viper.ConfigFileNotFoundError
		switch {
		case configPath != "":
			return nil, errors.NewConfigError("", fmt.Sprintf("failed to read config file %s: %v", configPath, err), nil)
		case !errors.As(err, &notFound):
			return nil, errors.NewConfigError("", "failed to read config file "+v.ConfigFileUsed(), err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, errors.NewConfigError("", "failed to unmarshal config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// bindEnvironmentVariables binds the short environment names next to the prefixed ones
func bindEnvironmentVariables(v *viper.Viper) {
	v.BindEnv("application.prog_id", "VECTORCOM_PROG_ID", "VECTORCOM_APPLICATION_PROG_ID")
	v.BindEnv("application.visible", "VECTORCOM_VISIBLE", "VECTORCOM_APPLICATION_VISIBLE")
	v.BindEnv("application.attach", "VECTORCOM_APPLICATION_ATTACH")
	v.BindEnv("application.connect_timeout", "VECTORCOM_APPLICATION_CONNECT_TIMEOUT")

	v.BindEnv("events.timeout", "VECTORCOM_EVENT_TIMEOUT", "VECTORCOM_EVENTS_TIMEOUT")
	v.BindEnv("events.poll_interval", "VECTORCOM_EVENTS_POLL_INTERVAL")

	v.BindEnv("logging.level", "VECTORCOM_LOG_LEVEL")
	v.BindEnv("logging.format", "VECTORCOM_LOG_FORMAT")
	v.BindEnv("logging.output", "VECTORCOM_LOG_OUTPUT")
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper, config *Config) {
	v.SetDefault("application.prog_id", config.Application.ProgID)
	v.SetDefault("application.visible", config.Application.Visible)
	v.SetDefault("application.attach", config.Application.Attach)
	v.SetDefault("application.connect_timeout", config.Application.ConnectTimeoutSecs)
	v.SetDefault("events.timeout", config.Events.TimeoutSecs)
	v.SetDefault("events.poll_interval", config.Events.PollIntervalMsec)
	v.SetDefault("logging.level", config.Logging.Level)
	v.SetDefault("logging.format", config.Logging.Format)
	v.SetDefault("logging.output", config.Logging.Output)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Application.ProgID) == "" {
		return errors.NewConfigError("application.prog_id", "ProgID cannot be empty", nil)
	}

	if c.Application.ConnectTimeoutSecs <= 0 {
		return errors.NewConfigError("application.connect_timeout", "connect timeout must be positive", nil)
	}

	if c.Events.TimeoutSecs < 0 {
		return errors.NewConfigError("events.timeout", "timeout cannot be negative", nil)
	}

	if c.Events.PollIntervalMsec <= 0 {
		return errors.NewConfigError("events.poll_interval", "poll interval must be positive", nil)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return errors.NewConfigError("logging.level", fmt.Sprintf("invalid log level: %s", c.Logging.Level), nil)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return errors.NewConfigError("logging.format", fmt.Sprintf("invalid log format: %s", c.Logging.Format), nil)
	}

	if c.Logging.Output != "stdout" && c.Logging.Output != "stderr" {
		dir := filepath.Dir(c.Logging.Output)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return errors.NewConfigError("logging.output", fmt.Sprintf("log output directory does not exist: %s", dir), err)
		}
	}

	return nil
}
