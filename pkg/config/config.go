// Package config loads eggexpr settings from a YAML file with environment
// overrides. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/eggexpr/pkg/capability"
	"github.com/lemonberrylabs/eggexpr/pkg/engine"
	"github.com/lemonberrylabs/eggexpr/pkg/expr"
	"github.com/lemonberrylabs/eggexpr/pkg/logging"
)

// Config is the full set of settings.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  string           `yaml:"database"`
	Mode      string           `yaml:"mode"`
	Fold      bool             `yaml:"fold"`
	CacheSize int              `yaml:"cache_size"`
	Log       LogConfig        `yaml:"log"`
	Whitelist []WhitelistEntry `yaml:"whitelist"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WhitelistEntry grants accessors on one host type.
type WhitelistEntry struct {
	Type    string   `yaml:"type"`
	Get     []string `yaml:"get"`
	Set     []string `yaml:"set"`
	Aliases []string `yaml:"aliases"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8787, GRPCPort: 8788},
		Mode:      expr.ModeSoft.String(),
		Fold:      true,
		CacheSize: engine.DefaultCacheSize,
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (if not empty) over the defaults, then applies EGGEXPR_*
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Host = envOrDefault("EGGEXPR_HOST", c.Server.Host)
	c.Database = envOrDefault("EGGEXPR_DB", c.Database)
	c.Mode = envOrDefault("EGGEXPR_MODE", c.Mode)
	c.Log.Level = envOrDefault("EGGEXPR_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOrDefault("EGGEXPR_LOG_FORMAT", c.Log.Format)

	var err error
	if c.Server.Port, err = envInt("EGGEXPR_PORT", c.Server.Port); err != nil {
		return err
	}
	if c.Server.GRPCPort, err = envInt("EGGEXPR_GRPC_PORT", c.Server.GRPCPort); err != nil {
		return err
	}
	if c.CacheSize, err = envInt("EGGEXPR_CACHE_SIZE", c.CacheSize); err != nil {
		return err
	}
	if v := os.Getenv("EGGEXPR_FOLD"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("EGGEXPR_FOLD: %w", err)
		}
		c.Fold = b
	}
	return nil
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	var errs []error
	if _, err := expr.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, err)
	}
	for _, p := range []int{c.Server.Port, c.Server.GRPCPort} {
		if p < 0 || p > 65535 {
			errs = append(errs, fmt.Errorf("invalid port %d", p))
		}
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("invalid cache_size %d", c.CacheSize))
	}
	for i, w := range c.Whitelist {
		if w.Type == "" {
			errs = append(errs, fmt.Errorf("whitelist entry %d: type is required", i))
		}
	}
	return errors.Join(errs...)
}

// ResolutionMode returns the parsed variable resolution mode.
func (c Config) ResolutionMode() expr.Mode {
	m, _ := expr.ParseMode(c.Mode)
	return m
}

// BuildWhitelist builds the accessor whitelist: the built-in intrinsics plus the
// configured entries.
func (c Config) BuildWhitelist() *capability.Whitelist {
	wl := capability.Default()
	for _, e := range c.Whitelist {
		wl.Register(e.Type, e.Get, e.Set)
		if len(e.Aliases) > 0 {
			wl.Alias(e.Type, e.Aliases...)
		}
	}
	return wl
}

// Logger builds a logger writing to stderr.
func (c Config) Logger() *slog.Logger {
	level, _ := logging.ParseLevel(c.Log.Level)
	format, _ := logging.ParseFormat(c.Log.Format)
	return logging.New(os.Stderr, level, format)
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GRPCAddr returns the gRPC listen address.
func (c Config) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
