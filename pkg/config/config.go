// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/copytree/pkg/dispatch"
	"github.com/walteh/copytree/pkg/fault"
	"github.com/walteh/copytree/pkg/filter"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	parsersMu sync.RWMutex
	parsers   []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsersMu.Lock()
	defer parsersMu.Unlock()
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	parsersMu.RLock()
	defer parsersMu.RUnlock()
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📚 Config represents the complete configuration
type Config struct {
	Source      string   `json:"source" yaml:"source" hcl:"source"`
	Destination string   `json:"destination" yaml:"destination" hcl:"destination"`
	Workers     int      `json:"workers,omitempty" yaml:"workers,omitempty" hcl:"workers,optional"`
	QueueSize   int      `json:"queue_size,omitempty" yaml:"queue_size,omitempty" hcl:"queue_size,optional"`
	MaxDepth    int      `json:"max_depth,omitempty" yaml:"max_depth,omitempty" hcl:"max_depth,optional"`
	Include     []string `json:"include,omitempty" yaml:"include,omitempty" hcl:"include,optional"`
	Exclude     []string `json:"exclude,omitempty" yaml:"exclude,omitempty" hcl:"exclude,optional"`
	LogLevel    string   `json:"log_level,omitempty" yaml:"log_level,omitempty" hcl:"log_level,optional"`

	location string
}

// 🎯 Load loads the configuration from a file. Relative source and
// destination paths are taken relative to the file's directory.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.IO(err, "reading config file %s", path)
	}

	p := GetParser(path)
	if p == nil {
		return nil, fault.Invalid("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config %s: %w", path, err)
	}

	cfg.location = path
	cfg.resolve(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config %s: %w", path, err)
	}

	logger.Debug().Stringer("config", cfg).Msg("configuration loaded")
	return cfg, nil
}

// Location is the file the config was loaded from, empty when built in code
func (cfg *Config) Location() string {
	return cfg.location
}

func (cfg *Config) resolve(dir string) {
	if cfg.Source != "" && !filepath.IsAbs(cfg.Source) {
		cfg.Source = filepath.Join(dir, cfg.Source)
	}
	if cfg.Destination != "" && !filepath.IsAbs(cfg.Destination) {
		cfg.Destination = filepath.Join(dir, cfg.Destination)
	}
}

// 🔍 Validate checks the configuration and fills defaults
func (cfg *Config) Validate() error {
	if cfg.Source == "" {
		return fault.Invalid("source is required")
	}
	if cfg.Destination == "" {
		return fault.Invalid("destination is required")
	}
	if cfg.Workers < 0 {
		return fault.Invalid("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.QueueSize < 0 {
		return fault.Invalid("queue_size must not be negative, got %d", cfg.QueueSize)
	}
	if cfg.MaxDepth < 0 {
		return fault.Invalid("max_depth must not be negative, got %d", cfg.MaxDepth)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return fault.Invalid("log_level %q is not a level", cfg.LogLevel)
	}
	if _, err := cfg.Filter(); err != nil {
		return err
	}

	cfg.Source = filepath.Clean(cfg.Source)
	cfg.Destination = filepath.Clean(cfg.Destination)

	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = dispatch.DefaultQueueSize
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = zerolog.InfoLevel.String()
	}

	return nil
}

// Filter builds the glob filter described by Include and Exclude
func (cfg *Config) Filter() (*filter.Glob, error) {
	return filter.NewGlob(cfg.Include, cfg.Exclude)
}

// Level is the configured log level, info when unset
func (cfg *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// PoolOptions converts the worker settings for dispatch.New
func (cfg *Config) PoolOptions() dispatch.Options {
	return dispatch.Options{Workers: cfg.Workers, QueueSize: cfg.QueueSize}
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("%s -> %s (workers=%d, queue=%d)", cfg.Source, cfg.Destination, cfg.Workers, cfg.QueueSize)
}
