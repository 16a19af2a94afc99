// Package config loads benchfn settings from an optional file and the
// environment. Environment variables take the form BENCHFN_<KEY> with dots
// replaced by underscores, e.g. BENCHFN_STORE_DIR or
// BENCHFN_FUNCTIONS_ROSENBROCK_ALPHA.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cwbudde/benchfn/internal/objective"
)

const (
	KeyLogLevel   = "log.level"
	KeyStoreDir   = "store.dir"
	KeyServerAddr = "server.addr"

	// Request limits for the HTTP API
	KeyServerMaxDims       = "server.max_dims"
	KeyServerMaxMatrixDims = "server.max_matrix_dims"
	KeyServerMaxIters      = "server.max_iters"
	KeyServerMaxPopSize    = "server.max_pop_size"
	KeyServerMaxBodyBytes  = "server.max_body_bytes"
)

// Config is a read-only view of the loaded settings.
type Config struct {
	v *viper.Viper
}

// Load reads the config file at path (YAML, JSON or TOML by extension).
// An empty path yields defaults plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyStoreDir, "./data")
	v.SetDefault(KeyServerAddr, ":8080")
	v.SetDefault(KeyServerMaxDims, 100000)
	v.SetDefault(KeyServerMaxMatrixDims, 1000)
	v.SetDefault(KeyServerMaxIters, 100000)
	v.SetDefault(KeyServerMaxPopSize, 1000)
	v.SetDefault(KeyServerMaxBodyBytes, 1<<20)

	v.SetEnvPrefix("benchfn")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	return &Config{v: v}, nil
}

// Default returns a Config with only defaults and environment overrides.
func Default() *Config {
	c, _ := Load("")
	return c
}

func (c *Config) LogLevel() string   { return c.v.GetString(KeyLogLevel) }
func (c *Config) StoreDir() string   { return c.v.GetString(KeyStoreDir) }
func (c *Config) ServerAddr() string { return c.v.GetString(KeyServerAddr) }

// ServerMaxDims bounds dims for value, gradient and starting-point requests.
func (c *Config) ServerMaxDims() int { return c.v.GetInt(KeyServerMaxDims) }

// ServerMaxMatrixDims bounds dims wherever an n×n matrix is allocated:
// Hessian evaluations and optimization runs.
func (c *Config) ServerMaxMatrixDims() int { return c.v.GetInt(KeyServerMaxMatrixDims) }

func (c *Config) ServerMaxIters() int       { return c.v.GetInt(KeyServerMaxIters) }
func (c *Config) ServerMaxPopSize() int     { return c.v.GetInt(KeyServerMaxPopSize) }
func (c *Config) ServerMaxBodyBytes() int64 { return c.v.GetInt64(KeyServerMaxBodyBytes) }

// Function returns the options for the named function, read from
// functions.<name>.* keys.
func (c *Config) Function(name string) objective.Options {
	return section{v: c.v, prefix: "functions." + strings.ToLower(name)}
}

// Configure applies the function's options when it accepts configuration.
func (c *Config) Configure(fn objective.Function) error {
	cf, ok := fn.(objective.Configurable)
	if !ok {
		return nil
	}
	if err := cf.Configure(c.Function(fn.Name())); err != nil {
		return fmt.Errorf("failed to configure %s: %w", fn.Name(), err)
	}
	return nil
}

type section struct {
	v      *viper.Viper
	prefix string
}

func (s section) Float64(key string, def float64) float64 {
	k := s.prefix + "." + key
	if !s.v.IsSet(k) {
		return def
	}
	return s.v.GetFloat64(k)
}
