// =============================================================================
// config.go - User Configuration File
// =============================================================================
//
// Port settings and shell preferences can be stored in a TOML file so they
// don't have to be repeated on every invocation:
//
//	# ~/.config/serial-cli/config.toml
//	port = "/dev/ttyACM0"
//	baud_rate = 115200
//	timeout_seconds = 2
//	parity = "N"
//	verbose = true
//
//	[log]
//	level = "debug"
//	file = "/tmp/serial-cli.log"
//
// Precedence is: command-line flags, then the config file, then built-in
// defaults.
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/commonProgrammerr/serial-cli/serialshell"
)

// Config holds the settings for a session.
type Config struct {
	Port           string `toml:"port"`
	BaudRate       int    `toml:"baud_rate"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	DataBits       int    `toml:"data_bits"`
	Parity         string `toml:"parity"`
	StopBits       string `toml:"stop_bits"`

	// Shell is the interpreter used for ! commands and !(...) markers,
	// e.g. "bash -c". Empty selects the platform default.
	Shell string `toml:"shell"`

	// Verbose prints byte counts after every send.
	Verbose bool `toml:"verbose"`

	HistoryFile string `toml:"history_file"`

	Log LogConfig `toml:"log"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console or json
	File   string `toml:"file"`   // empty for stderr
}

func defaultPort() string {
	if runtime.GOOS == "windows" {
		return "COM3"
	}
	return "/dev/ttyUSB0"
}

func defaultConfig() Config {
	return Config{
		Port:           defaultPort(),
		BaudRate:       serialshell.DefaultBaudRate,
		TimeoutSeconds: int(serialshell.DefaultTimeout / time.Second),
		DataBits:       serialshell.DefaultDataBits,
		Parity:         "N",
		StopBits:       "1",
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// loadConfig reads the config file at path on top of the defaults. With an
// empty path the per-user location is used, and a missing file is not an
// error.
func loadConfig(path string) (Config, string, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		var err error
		path, err = configPath()
		if err != nil {
			return cfg, "", nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, path, nil
		}
		return cfg, path, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, path, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// saveConfig writes cfg to path, creating parent directories.
func saveConfig(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func configPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		var err error
		configHome, err = os.UserConfigDir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(configHome, "serial-cli", "config.toml"), nil
}

// applyFlags overrides config values with flags that were given.
func (c *Config) applyFlags(f portFlags) {
	if f.Port != "" {
		c.Port = f.Port
	}
	if f.BaudRate > 0 {
		c.BaudRate = f.BaudRate
	}
	if f.Timeout > 0 {
		c.TimeoutSeconds = f.Timeout
	}
	if f.Verbose {
		c.Verbose = true
	}
	if f.LogLevel != "" {
		c.Log.Level = f.LogLevel
	}
}

// Timeout returns the read timeout, falling back to the default.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return serialshell.DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PortConfig converts the settings for serialshell.OpenPort.
func (c Config) PortConfig() serialshell.PortConfig {
	return serialshell.PortConfig{
		Name:     c.Port,
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   c.Parity,
		StopBits: c.StopBits,
		Timeout:  c.Timeout(),
	}
}
