// Package config loads bornc settings from defaults, bornc.yaml,
// BORNC_ environment variables and command-line flags.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Defaults.
const (
	DefaultConfigFile = "bornc.yaml"
	DefaultOutputDir  = "."
	EnvPrefix         = "BORNC_"
)

// Config holds all settings.
type Config struct {
	Strict    bool   `koanf:"strict"`     // Fail on unsupported targets
	OutputDir string `koanf:"output_dir"` // Where compiled programs are written
	Workers   int    `koanf:"workers"`    // Graphs compiled in parallel
	Verbose   bool   `koanf:"verbose"`
	Checksum  bool   `koanf:"checksum"` // Record a data checksum in context binaries
}

// Defaults returns the built-in configuration.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"strict":     false,
		"output_dir": DefaultOutputDir,
		"workers":    runtime.NumCPU(),
		"verbose":    false,
		"checksum":   true,
	}
}

// Loader loads configuration. The zero value is not usable; use NewLoader.
type Loader struct {
	k        *koanf.Koanf
	fileUsed string
}

// NewLoader creates a loader.
func NewLoader() *Loader {
	return &Loader{k: koanf.New(".")}
}

// FileUsed returns the config file that was read, if any.
func (l *Loader) FileUsed() string {
	return l.fileUsed
}

// Load reads configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// An explicit cfgFile must exist; otherwise bornc.yaml in the working
// directory is read when present.
func (l *Loader) Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	l.k = koanf.New(".")
	l.fileUsed = ""

	// 1. Defaults
	if err := l.k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		l.fileUsed = path
	}

	// 3. Environment: BORNC_OUTPUT_DIR -> output_dir
	if err := l.k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := l.k.Load(posflag.ProviderWithFlag(flags, ".", l.k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	return nil
}

// contextKey is used to store the config in a context.
type contextKey struct{}

// WithContext returns a copy of ctx carrying cfg.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the config stored in ctx, or the defaults.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if c, ok := ctx.Value(contextKey{}).(*Config); ok {
			return c
		}
	}
	return &Config{
		OutputDir: DefaultOutputDir,
		Workers:   runtime.NumCPU(),
		Checksum:  true,
	}
}
