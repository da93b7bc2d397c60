// ABOUTME: Configuration loading and parsing for matlab-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete matlab-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Intent    IntentConfig    `yaml:"intent"`
	Logging   LoggingConfig   `yaml:"logging"`
	WebStatus WebStatusConfig `yaml:"webstatus"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// EngineConfig holds MATLAB engine launch and discovery configuration
type EngineConfig struct {
	// LaunchCommand is the command line used to start a local MATLAB worker.
	// Defaults to the stock headless invocation when empty.
	LaunchCommand []string `yaml:"launch_command"`
	// DiscoveryDir is where shared session descriptor files are looked up.
	DiscoveryDir string `yaml:"discovery_dir"`

	StartupTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	StartupTimeoutRaw string `yaml:"startup_timeout"`
}

// DatabaseConfig holds history database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// Mode selects how /mcp callers authenticate: "none", "jwt", or "tokens".
	Mode      string            `yaml:"mode"`
	JWTSecret string            `yaml:"jwt_secret"`
	Tokens    map[string]string `yaml:"tokens"` // principal -> bearer token
}

// IntentConfig holds intent classifier configuration
type IntentConfig struct {
	// RulesPath points at a YAML rules file; the built-in rules are used
	// when empty.
	RulesPath string `yaml:"rules_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WebStatusConfig holds the human-readable status page configuration
type WebStatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "matlab-gateway.db"
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = "none"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.WebStatus.Path == "" {
		c.WebStatus.Path = "/status"
	}
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
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	switch c.Auth.Mode {
	case "none":
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required when auth.mode is \"jwt\"")
		}
	case "tokens":
		if len(c.Auth.Tokens) == 0 {
			return fmt.Errorf("auth.tokens is required when auth.mode is \"tokens\"")
		}
	default:
		return fmt.Errorf("auth.mode must be one of: none, jwt, tokens (got %q)", c.Auth.Mode)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\" (got %q)", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Engine.StartupTimeoutRaw != "" {
		cfg.Engine.StartupTimeout, err = time.ParseDuration(cfg.Engine.StartupTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing startup_timeout %q: %w", cfg.Engine.StartupTimeoutRaw, err)
		}
	}

	return nil
}
