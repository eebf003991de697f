// Package config holds program configuration and logger preparation for
// the ucss command line shell. The parsing engine itself is configured
// programmatically; this package only feeds it.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"
)

type (
	EngineConfig struct {
		// CacheCapacity bounds each per-preprocessor compiled-output LRU.
		CacheCapacity int `yaml:"cache_capacity" validate:"min=1,max=65536"`
	}

	LoggerConfig struct {
		Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
		Destination string `yaml:"destination,omitempty" validate:"omitempty,filepath"`
		Mode        string `yaml:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
	}

	LoggingConfig struct {
		FileLogger    LoggerConfig `yaml:"file"`
		ConsoleLogger LoggerConfig `yaml:"console"`
	}

	Config struct {
		Version int           `yaml:"version" validate:"eq=1"`
		Engine  EngineConfig  `yaml:"engine"`
		Logging LoggingConfig `yaml:"logging"`
	}
)

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Version: 1,
		Engine:  EngineConfig{CacheCapacity: 32},
		Logging: LoggingConfig{
			FileLogger:    LoggerConfig{Level: "none"},
			ConsoleLogger: LoggerConfig{Level: "normal"},
		},
	}
}

// LoadConfiguration reads and validates a YAML configuration file.
// An empty name returns defaults.
func LoadConfiguration(fname string) (*Config, error) {
	cfg := Default()
	if len(fname) == 0 {
		return cfg, nil
	}

	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to read configuration: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("unable to parse configuration '%s': %w", fname, err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration '%s': %w", fname, err)
	}
	return cfg, nil
}

// Dump serializes the processed configuration back to YAML.
func Dump(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
