// Package config loads graphgate configuration from defaults, an optional
// YAML file and GRAPHGATE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/roach88/graphgate/internal/compiler"
)

// Backends lists the query languages graphgate can emit.
var Backends = []string{"sparql", "sql"}

// Config is the top-level graphgate configuration.
type Config struct {
	Schema  SchemaConfig  `mapstructure:"schema"`
	Backend string        `mapstructure:"backend"`
	Guard   GuardConfig   `mapstructure:"guard"`
	Compile CompileConfig `mapstructure:"compile"`
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
}

// SchemaConfig locates the CUE shape descriptions.
type SchemaConfig struct {
	Dir string `mapstructure:"dir"`
}

// GuardConfig selects the cycle guard scope.
type GuardConfig struct {
	Scope string `mapstructure:"scope"`
}

// CompileConfig bounds compilation.
type CompileConfig struct {
	MaxEdges int `mapstructure:"max_edges"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	Metrics     bool     `mapstructure:"metrics"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix GRAPHGATE_).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("schema.dir", "schema")
	v.SetDefault("backend", "sparql")
	v.SetDefault("guard.scope", compiler.GuardCompile.String())
	v.SetDefault("compile.max_edges", compiler.DefaultMaxEdges)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.listen", "127.0.0.1:8420")
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.cors_origins", []string{})

	v.SetEnvPrefix("GRAPHGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns all validation errors found rather than stopping at the first.
func (c *Config) Validate() []error {
	var errs []error

	if c.Schema.Dir == "" {
		errs = append(errs, errors.New("config: schema.dir must not be empty"))
	}
	if !validBackend(c.Backend) {
		errs = append(errs, fmt.Errorf("config: backend must be one of [%s], got %q",
			strings.Join(Backends, ", "), c.Backend))
	}
	if _, ok := compiler.ParseGuardScope(c.Guard.Scope); !ok {
		errs = append(errs, fmt.Errorf("config: guard.scope must be one of [compile, branch], got %q", c.Guard.Scope))
	}
	if c.Compile.MaxEdges < 0 {
		errs = append(errs, fmt.Errorf("config: compile.max_edges must not be negative, got %d", c.Compile.MaxEdges))
	}

	errs = append(errs, c.validateLog()...)
	errs = append(errs, c.validateServer()...)
	return errs
}

func (c *Config) validateLog() []error {
	var errs []error
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("config: log.format must be one of [text, json], got %q", c.Log.Format))
	}
	return errs
}

func (c *Config) validateServer() []error {
	if c.Server.Listen == "" {
		return []error{errors.New("config: server.listen must not be empty")}
	}
	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		return []error{fmt.Errorf("config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err)}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return []error{fmt.Errorf("config: server.listen port must be a number, got %q", portStr)}
	}
	if port < 0 || port > 65535 {
		return []error{fmt.Errorf("config: server.listen port must be between 0 and 65535, got %d", port)}
	}
	return nil
}

func validBackend(b string) bool {
	for _, name := range Backends {
		if b == name {
			return true
		}
	}
	return false
}

// GuardScope returns the parsed guard scope. Validate has already
// rejected unknown values.
func (c *Config) GuardScope() compiler.GuardScope {
	scope, _ := compiler.ParseGuardScope(c.Guard.Scope)
	return scope
}

// Logger builds a logrus logger from the log section.
func (c *Config) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetLevel(level)
	if c.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log, nil
}
