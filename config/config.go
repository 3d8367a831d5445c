// Package config loads server settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the full set of server settings.
type Config struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	DataDir        string   `yaml:"dataDir"`
	Backend        string   `yaml:"backend"`
	StaticDirs     []string `yaml:"staticDirs"`
	AllowedOrigins []string `yaml:"allowedOrigins"`

	// BodyLimit caps request bodies, in bytes.
	BodyLimit int64 `yaml:"bodyLimit"`

	// ShutdownTimeout bounds the graceful close before connections are
	// dropped.
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`

	Relay RelayConfig `yaml:"relay"`

	LogLevel string `yaml:"logLevel"`
}

// RelayConfig limits how fast one client may push relay-topic events.
type RelayConfig struct {
	RatePerSecond float64 `yaml:"ratePerSecond"`
	Burst         int     `yaml:"burst"`
}

// Duration is a time.Duration written as "5s", "1m30s" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(b []byte) error {
	var s string
	if err := yaml.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func Default() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            4000,
		DataDir:         "./data",
		Backend:         "file",
		StaticDirs:      []string{"./public", "."},
		AllowedOrigins:  []string{"*"},
		BodyLimit:       2 << 20,
		ShutdownTimeout: Duration(5 * time.Second),
		Relay:           RelayConfig{RatePerSecond: 30, Burst: 60},
		LogLevel:        "info",
	}
}

// Load returns the defaults overlaid by the YAML file at path (skipped when
// path is empty) and then by the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	env := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := env("HOST"); ok {
		c.Host = v
	}
	if v, ok := env("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = port
	}
	if v, ok := env("DATA_DIR"); ok {
		c.DataDir = v
	}
	if v, ok := env("STORE_BACKEND"); ok {
		c.Backend = v
	}
	if v, ok := env("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := env("STATIC_DIRS"); ok {
		c.StaticDirs = splitList(v)
	}
	if v, ok := env("LOG_LEVEL"); ok {
		c.LogLevel = v
	} else if _, ok := env("DEBUG"); ok {
		c.LogLevel = "debug"
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.Backend {
	case "file", "json", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown backend %q (supported: file, sqlite, memory)", c.Backend)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.BodyLimit <= 0 {
		return fmt.Errorf("bodyLimit must be positive")
	}
	if c.Relay.RatePerSecond <= 0 || c.Relay.Burst <= 0 {
		return fmt.Errorf("relay rate and burst must be positive")
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SetAddr overrides host and port from a host:port string.
func (c *Config) SetAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port %q", port)
	}
	if host != "" {
		c.Host = host
	}
	c.Port = p
	return c.Validate()
}
