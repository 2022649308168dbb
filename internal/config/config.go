// Package config holds the server settings. The defaults are the values the
// server was built around; a TOML or YAML file may override any of them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr            = "0.0.0.0:8080"
	DefaultRoot            = "./public"
	DefaultServerName      = "staticserve"
	DefaultMaxRequestBytes = 512
)

// Config is the complete set of server settings.
type Config struct {
	// Addr is the TCP address the listener binds.
	Addr string `toml:"addr" yaml:"addr"`
	// Root is the serving root that request paths are appended to.
	Root string `toml:"root" yaml:"root"`
	// ServerName is sent in the Server header of every response.
	ServerName string `toml:"server_name" yaml:"server_name"`
	// MaxRequestBytes bounds how much of a request is read.
	MaxRequestBytes int `toml:"max_request_bytes" yaml:"max_request_bytes"`
	// ReadTimeout and WriteTimeout are duration strings such as "5s". Empty
	// or "0" means a connection may block forever.
	ReadTimeout  string `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout string `toml:"write_timeout" yaml:"write_timeout"`
	// Strict makes any failure on a single connection stop the server.
	Strict bool `toml:"strict" yaml:"strict"`
	// LogLevel is a logrus level name; LogFormat is "text" or "json".
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:            DefaultAddr,
		Root:            DefaultRoot,
		ServerName:      DefaultServerName,
		MaxRequestBytes: DefaultMaxRequestBytes,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads the file at path over the defaults. The format is chosen by
// extension: .toml, or .yaml/.yml.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config format %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every field and names the first bad one.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	if c.Root == "" {
		return fmt.Errorf("config: root must not be empty")
	}
	if c.ServerName == "" || strings.ContainsAny(c.ServerName, "\r\n") {
		return fmt.Errorf("config: server_name %q is not a valid header value", c.ServerName)
	}
	if c.MaxRequestBytes <= 0 {
		return fmt.Errorf("config: max_request_bytes must be positive, got %d", c.MaxRequestBytes)
	}
	if _, err := c.ReadTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.WriteTimeoutDuration(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func (c Config) ReadTimeoutDuration() (time.Duration, error) {
	return parseTimeout("read_timeout", c.ReadTimeout)
}

func (c Config) WriteTimeoutDuration() (time.Duration, error) {
	return parseTimeout("write_timeout", c.WriteTimeout)
}

func parseTimeout(key, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", key)
	}
	return d, nil
}
