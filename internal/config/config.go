// Package config wraps viper behind a small nil-safe accessor so callers
// can read settings without caring whether a config file, environment
// variables, or nothing at all backed the lookup.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is a read-only view over a viper instance. The zero value and
// a Config built from a nil viper are both valid and return zero values
// for every key.
type Config struct {
	v *viper.Viper
}

// New wraps v. A nil v yields an empty but usable Config.
func New(v *viper.Viper) *Config {
	return &Config{v: v}
}

// Load reads the poedeck config file and environment into a Config.
//
// When path is empty the file is searched as poedeck.{yaml,toml,json}
// in the working directory, $HOME/.config/poedeck, and /etc/poedeck.
// A missing file is not an error; environment variables (POEDECK_*,
// with dots mapped to underscores) and defaults still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("omada.port", 443)
	v.SetDefault("omada.site", "Default")
	v.SetDefault("omada.verify_tls", true)
	v.SetDefault("omada.request_timeout", "15s")
	v.SetDefault("omada.requests_per_second", 10.0)

	v.SetDefault("poll.discovery", "5m")
	v.SetDefault("poll.status", "3s")
	v.SetDefault("poll.reconnect", "30s")
	v.SetDefault("poll.confirm", "15s")

	v.SetDefault("metrics.listen", "")

	v.SetEnvPrefix("POEDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("poedeck")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/poedeck")
		v.AddConfigPath("/etc/poedeck")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return New(v), nil
}

// GetString returns the string value for key, or "".
func (c *Config) GetString(key string) string {
	if c == nil || c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

// GetInt returns the int value for key, or 0.
func (c *Config) GetInt(key string) int {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetInt(key)
}

// GetBool returns the bool value for key, or false.
func (c *Config) GetBool(key string) bool {
	if c == nil || c.v == nil {
		return false
	}
	return c.v.GetBool(key)
}

// GetDuration returns the duration value for key, or 0.
func (c *Config) GetDuration(key string) time.Duration {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetDuration(key)
}

// GetFloat64 returns the float value for key, or 0.
func (c *Config) GetFloat64(key string) float64 {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetFloat64(key)
}

// IsSet reports whether key has a value from any source.
func (c *Config) IsSet(key string) bool {
	if c == nil || c.v == nil {
		return false
	}
	return c.v.IsSet(key)
}

// Sub returns the subtree rooted at key. The result is never nil; a
// missing subtree yields an empty Config.
func (c *Config) Sub(key string) *Config {
	if c == nil || c.v == nil {
		return &Config{}
	}
	sub := c.v.Sub(key)
	if sub == nil {
		return &Config{}
	}
	return &Config{v: sub}
}

// Unmarshal decodes the configuration into target using mapstructure
// tags. A nil-backed Config leaves target untouched.
func (c *Config) Unmarshal(target any) error {
	if c == nil || c.v == nil {
		return nil
	}
	return c.v.Unmarshal(target)
}
