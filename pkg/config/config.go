// Package config loads unitcalc configuration from defaults, an optional
// YAML config file, UNITCALC_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lemonberrylabs/unitcalc/pkg/convert"
	"github.com/lemonberrylabs/unitcalc/pkg/expr"
	"github.com/lemonberrylabs/unitcalc/pkg/parser"
	"github.com/lemonberrylabs/unitcalc/pkg/stdlib"
)

const (
	// AppName is the application name.
	AppName = "unitcalc"
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "UNITCALC"
	// StandardSource names the embedded standard library as a registry source.
	StandardSource = "standard"
)

// Config is the complete unitcalc configuration.
type Config struct {
	Registry RegistryConfig `json:"registry" mapstructure:"registry"`
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	Log      LogConfig      `json:"log" mapstructure:"log"`
	Eval     EvalConfig     `json:"eval" mapstructure:"eval"`
}

// RegistryConfig selects the unit definitions a session starts with.
type RegistryConfig struct {
	// Source is "standard", a path to a registry document, or empty for an
	// empty registry.
	Source string `json:"source" mapstructure:"source"`
	// Extra documents are merged over Source in order; later definitions
	// replace earlier ones.
	Extra []string `json:"extra" mapstructure:"extra"`
}

// ServerConfig configures the REST and gRPC listeners.
type ServerConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	GRPCPort int    `json:"grpc_port" mapstructure:"grpc_port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `json:"level" mapstructure:"level"`
}

// EvalConfig tunes expression evaluation.
type EvalConfig struct {
	ExponentPolicy string `json:"exponent_policy" mapstructure:"exponent_policy"`
	HistorySize    int    `json:"history_size" mapstructure:"history_size"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{Source: StandardSource, Extra: []string{}},
		Server:   ServerConfig{Host: "localhost", Port: 8787, GRPCPort: 0},
		Log:      LogConfig{Level: "info"},
		Eval:     EvalConfig{ExponentPolicy: expr.ExponentStrict.String(), HistorySize: 100},
	}
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// ConfigFilePath is an explicit config file. When empty, unitcalc.yaml
	// is looked up in the working directory and the user config directory.
	ConfigFilePath string
	// Flags are bound by name when present: registry, host, port,
	// grpc-port, log-level, exponent-policy, history-size.
	Flags *pflag.FlagSet
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"registry":        "registry.source",
	"host":            "server.host",
	"port":            "server.port",
	"grpc-port":       "server.grpc_port",
	"log-level":       "log.level",
	"exponent-policy": "eval.exponent_policy",
	"history-size":    "eval.history_size",
}

// Load resolves the configuration.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("registry.source", defaults.Registry.Source)
	v.SetDefault("registry.extra", defaults.Registry.Extra)
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.grpc_port", defaults.Server.GRPCPort)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("eval.exponent_policy", defaults.Eval.ExponentPolicy)
	v.SetDefault("eval.history_size", defaults.Eval.HistorySize)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFilePath, err)
		}
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, AppName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that the decoder cannot.
func (c *Config) Validate() error {
	if _, err := c.ExponentPolicy(); err != nil {
		return fmt.Errorf("invalid eval.exponent_policy: %w", err)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid server.grpc_port %d", c.Server.GRPCPort)
	}
	if c.Eval.HistorySize < 0 {
		return fmt.Errorf("invalid eval.history_size %d", c.Eval.HistorySize)
	}
	return nil
}

// ExponentPolicy parses Eval.ExponentPolicy.
func (c *Config) ExponentPolicy() (expr.ExponentPolicy, error) {
	return expr.ParseExponentPolicy(c.Eval.ExponentPolicy)
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (log.Level, error) {
	return log.ParseLevel(c.Log.Level)
}

// Addr returns the REST listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GRPCAddr returns the gRPC listen address, or "" when gRPC is disabled.
func (c *Config) GRPCAddr() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// Load builds the registry described by r.
func (r RegistryConfig) Load() (*convert.Registry, error) {
	var reg *convert.Registry
	switch r.Source {
	case "":
		reg = convert.NewRegistry()
	case StandardSource:
		reg = stdlib.NewRegistry()
	default:
		var err error
		if reg, err = parser.LoadFile(r.Source); err != nil {
			return nil, err
		}
	}

	for _, path := range r.Extra {
		var err error
		if reg, err = parser.MergeFile(reg, path, true); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
