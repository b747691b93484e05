package confloader

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "RESPKV_"

// EnvLevelSeparator separates nesting levels in environment variable names.
// A single underscore stays part of the key, so RESPKV_STORAGE__SWEEP_INTERVAL
// maps to storage.sweep_interval.
const EnvLevelSeparator = "__"

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	envFiles  []string
	overrides map[string]any
	loaded    bool
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithEnvFile adds a dotenv file whose variables are exported into the
// process environment before environment variables are read. Variables
// already present in the environment are not overridden.
func WithEnvFile(path string) Option {
	return func(l *Loader) {
		if path != "" {
			l.envFiles = append(l.envFiles, path)
		}
	}
}

// WithOverrides sets values that take precedence over every other source,
// typically command-line flags. Keys are dotted paths; nil and empty
// string values are ignored.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load loads configuration from all sources and unmarshals into target.
// Loading order (later sources override earlier):
//  1. Values already present in target
//  2. Configuration file (YAML)
//  3. Environment variables, including those from env files
//  4. Overrides
func (l *Loader) Load(target any) error {
	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.LoadEnvFiles(l.envFiles...); err != nil {
		return err
	}

	if err := l.LoadEnv(); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if err := l.LoadOverrides(l.overrides); err != nil {
		return err
	}

	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	l.loaded = true
	return nil
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}

	return nil
}

// LoadEnvFiles exports the variables of the given dotenv files into the
// process environment. It does not read them into the loader; LoadEnv does.
func (l *Loader) LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// LoadEnv loads configuration from environment variables.
// Example: RESPKV_SERVER__RESP__ADDR=0.0.0.0:6379 -> server.resp.addr
func (l *Loader) LoadEnv() error {
	provider := env.Provider(l.envPrefix, ".", l.envKey)
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	return nil
}

func (l *Loader) envKey(s string) string {
	s = strings.TrimPrefix(s, l.envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, EnvLevelSeparator, ".")
}

// LoadOverrides loads dotted-key values on top of what is already loaded.
func (l *Loader) LoadOverrides(values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	if err := l.k.Load(overrideProvider(values), nil); err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}
	return nil
}

// Unmarshal unmarshals the loaded configuration into the target struct.
// Uses koanf tags for struct field mapping.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// Get returns a value from the configuration by key.
func (l *Loader) Get(key string) any {
	return l.k.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetInt returns an int value from the configuration.
func (l *Loader) GetInt(key string) int {
	return l.k.Int(key)
}

// GetBool returns a bool value from the configuration.
func (l *Loader) GetBool(key string) bool {
	return l.k.Bool(key)
}

// IsLoaded returns true if configuration has been loaded.
func (l *Loader) IsLoaded() bool {
	return l.loaded
}

// All returns all configuration as a map.
func (l *Loader) All() map[string]any {
	return l.k.All()
}

// Keys returns all configuration keys.
func (l *Loader) Keys() []string {
	return l.k.Keys()
}
