// Package config loads server configuration from a TOML file with sane
// defaults, so the binary runs with no config file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Sweep    SweepConfig    `toml:"sweep"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type SweepConfig struct {
	Interval       duration `toml:"interval"`
	HandoverMaxAge duration `toml:"handover_max_age"`
}

type LogConfig struct {
	Path string `toml:"path"`
}

// duration unmarshals TOML strings like "5m" or "72h".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

func (d duration) Duration() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: "gnezdo.db"},
		Sweep: SweepConfig{
			Interval:       duration(5 * time.Minute),
			HandoverMaxAge: duration(14 * 24 * time.Hour),
		},
	}
}

// Load reads the config file at path, layered over defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Sweep.Interval.Duration() <= 0 {
		return fmt.Errorf("sweep.interval must be positive")
	}
	if c.Sweep.HandoverMaxAge.Duration() <= 0 {
		return fmt.Errorf("sweep.handover_max_age must be positive")
	}
	return nil
}
