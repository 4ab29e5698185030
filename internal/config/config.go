// Package config loads the command-line front end settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// EnvPrefix prefixes every environment override, e.g. NPZHEADER_OUTPUT_FORMAT.
const EnvPrefix = "NPZHEADER"

// Config holds the front end configuration.
type Config struct {
	Output OutputConfig `mapstructure:"output"`
	Log    LogConfig    `mapstructure:"log"`
}

// OutputConfig controls how headers are printed.
type OutputConfig struct {
	Format        string `mapstructure:"format"`
	Color         bool   `mapstructure:"color"`
	MaxValueWidth int    `mapstructure:"max_value_width"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from file and env. The file is taken from
// NPZHEADER_CONFIG when set, otherwise from ~/.config/npzheader/config.toml
// if it exists.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("output.format", FormatTable)
	v.SetDefault("output.color", true)
	v.SetDefault("output.max_value_width", 40)
	v.SetDefault("log.level", "warn")

	v.SetConfigType("toml")

	cfgPath := os.Getenv(EnvPrefix + "_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "npzheader"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// A missing default file is fine; an explicit one must be readable.
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	switch c.Output.Format {
	case FormatTable, FormatJSON:
	default:
		return fmt.Errorf("output.format: unknown format %q", c.Output.Format)
	}
	if c.Output.MaxValueWidth < 0 {
		return fmt.Errorf("output.max_value_width: must not be negative, got %d", c.Output.MaxValueWidth)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return nil
}
