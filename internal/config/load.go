package config

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/dshills/dashwire/internal/config/loader"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "DASHWIRE_"

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	fs  loader.FileSystem
	env bool
}

// WithFileSystem reads the config file from fs.
func WithFileSystem(fs loader.FileSystem) Option {
	return func(o *loadOptions) {
		o.fs = fs
	}
}

// WithEnv enables or disables the environment layer. Enabled by default.
func WithEnv(enable bool) Option {
	return func(o *loadOptions) {
		o.env = enable
	}
}

// Load stacks the TOML file at path (skipped when path is empty) and the
// environment over Default, then validates the result. A named file that
// does not exist is ErrFileNotFound.
func Load(path string, opts ...Option) (Config, error) {
	lo := loadOptions{fs: loader.DefaultFS(), env: true}
	for _, opt := range opts {
		opt(&lo)
	}

	defaults, err := toMap(Default())
	if err != nil {
		return Config{}, err
	}

	var layers []loader.Source
	if path != "" {
		layers = append(layers, loader.NewFile(lo.fs, path, true))
	}
	if lo.env {
		layers = append(layers, loader.NewEnv(EnvPrefix))
	}
	merged, _, err := loader.Stack(defaults, layers...)
	if err != nil {
		return Config{}, err
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func toMap(cfg Config) (map[string]any, error) {
	data, err := jsoniter.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := jsoniter.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]any) (Config, error) {
	data, err := jsoniter.Marshal(m)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := jsoniter.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
