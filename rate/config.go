// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-core-stack/throttle/errors"
)

// Config describes the limiters a LimitManager is populated with.
//
//	limiters:
//	  - key: api
//	    capacity: 100
//	    window: 1s
//	  - key: downloads
//	    capacity: 20
//	    window: 500ms
//	    chunk: 65536
type Config struct {
	Limiters []LimiterConfig `yaml:"limiters"`
}

// LimiterConfig describes one named rate window
type LimiterConfig struct {
	// name the limiter is registered and looked up with
	Key string `yaml:"key"`

	// admissions allowed per window
	Capacity int `yaml:"capacity"`

	// rolling window, defaults to DefaultWindow
	Window time.Duration `yaml:"window"`

	// bytes moved per admission by the reader and writer wrappers,
	// defaults to DefaultChunk
	Chunk int `yaml:"chunk"`
}

func (c *LimiterConfig) applyDefaults() {
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.Chunk == 0 {
		c.Chunk = DefaultChunk
	}
}

// ApplyDefaults fills every unset window and chunk
func (c *Config) ApplyDefaults() {
	for i := range c.Limiters {
		c.Limiters[i].applyDefaults()
	}
}

// Validate checks every limiter entry, reporting the first problem as
// an InvalidConfiguration error
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Limiters))
	for i, l := range c.Limiters {
		if l.Key == "" {
			return errors.Wrapf(errors.InvalidConfiguration, "limiters[%d]: key must not be empty", i)
		}
		if _, ok := seen[l.Key]; ok {
			return errors.Wrapf(errors.InvalidConfiguration, "limiters[%d]: duplicate key %q", i, l.Key)
		}
		seen[l.Key] = struct{}{}
		if l.Capacity <= 0 {
			return errors.Wrapf(errors.InvalidConfiguration, "limiter %q: capacity must be positive, got %d", l.Key, l.Capacity)
		}
		if l.Window < 0 {
			return errors.Wrapf(errors.InvalidConfiguration, "limiter %q: window must be positive, got %s", l.Key, l.Window)
		}
		if l.Chunk < 0 {
			return errors.Wrapf(errors.InvalidConfiguration, "limiter %q: chunk must be positive, got %d", l.Key, l.Chunk)
		}
	}
	return nil
}

// ParseConfig decodes a YAML configuration, applies defaults and
// validates it
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(errors.InvalidConfiguration, "failed to parse limiter configuration: %s", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the YAML configuration at path
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.NotFound, "failed to read limiter configuration %q: %s", path, err)
	}
	return ParseConfig(data)
}
