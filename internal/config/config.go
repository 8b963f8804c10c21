// ABOUTME: Configuration loading and parsing for the voxhive control plane
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete voxhive process configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Agents    AgentsConfig    `yaml:"agents"`
	Token     TokenConfig     `yaml:"token"`
	Providers ProvidersConfig `yaml:"providers"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration for exposing the
// control plane on a tailnet instead of a plain TCP listener.
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
}

// AgentsConfig holds worker lifecycle timing configuration.
type AgentsConfig struct {
	StopGrace     time.Duration `yaml:"-"`
	RestartPause  time.Duration `yaml:"-"`
	ConfigBackoff time.Duration `yaml:"-"`
	Keepalive     time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	StopGraceRaw     string `yaml:"stop_grace"`
	RestartPauseRaw  string `yaml:"restart_pause"`
	ConfigBackoffRaw string `yaml:"config_backoff"`
	KeepaliveRaw     string `yaml:"keepalive"`
}

// TokenConfig holds media access token configuration.
type TokenConfig struct {
	TTL time.Duration `yaml:"-"`

	TTLRaw string `yaml:"ttl"`
}

// ProvidersConfig holds capability provider configuration.
type ProvidersConfig struct {
	// CatalogPath points at a TOML file restricting which optional
	// providers are enabled. Empty means all builtin providers.
	CatalogPath string `yaml:"catalog_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default values for worker lifecycle timing. The stop grace and config
// backoff mirror the 5-second intervals the agent runtime has always used;
// the restart pause gives a stopped worker time to release its session.
const (
	DefaultStopGrace     = 5 * time.Second
	DefaultRestartPause  = 1 * time.Second
	DefaultConfigBackoff = 5 * time.Second
	DefaultKeepalive     = 30 * time.Second
	DefaultTokenTTL      = 6 * time.Hour
	DefaultHTTPAddr      = "localhost:8080"
)

// Default returns a configuration with all defaults applied. Used when no
// config file exists, since a pure environment-variable deployment is the
// common case.
func Default() *Config {
	return &Config{
		Server: ServerConfig{HTTPAddr: DefaultHTTPAddr},
		Agents: AgentsConfig{
			StopGrace:     DefaultStopGrace,
			RestartPause:  DefaultRestartPause,
			ConfigBackoff: DefaultConfigBackoff,
			Keepalive:     DefaultKeepalive,
		},
		Token:   TokenConfig{TTL: DefaultTokenTTL},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Path returns the path to the voxhive config file.
// Priority: VOXHIVE_CONFIG env var > XDG_CONFIG_HOME/voxhive/voxhive.yaml > ~/.config/voxhive/voxhive.yaml
func Path() string {
	if envPath := os.Getenv("VOXHIVE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "voxhive.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "voxhive", "voxhive.yaml")
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded and
// duration strings are parsed into time.Duration values. A missing file is
// not an error: defaults are returned so the process can run from
// environment variables alone.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	fields := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{cfg.Agents.StopGraceRaw, &cfg.Agents.StopGrace, "stop_grace"},
		{cfg.Agents.RestartPauseRaw, &cfg.Agents.RestartPause, "restart_pause"},
		{cfg.Agents.ConfigBackoffRaw, &cfg.Agents.ConfigBackoff, "config_backoff"},
		{cfg.Agents.KeepaliveRaw, &cfg.Agents.Keepalive, "keepalive"},
		{cfg.Token.TTLRaw, &cfg.Token.TTL, "token.ttl"},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
