// Package config holds resolver and CLI settings loaded from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	procpkg "github.com/pranshuparmar/remotepid/internal/proc"
)

type Config struct {
	Backend  string    `yaml:"backend"`
	ProcRoot string    `yaml:"proc_root"`
	LsofPath string    `yaml:"lsof_path"`
	Log      LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

func Default() Config {
	return Config{
		Backend:  procpkg.BackendAuto,
		ProcRoot: "/proc",
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads path on top of the defaults. Unknown keys are an error so that
// typos do not silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !procpkg.ValidBackend(c.Backend) {
		return fmt.Errorf("unknown backend %q (want one of %s)", c.Backend, strings.Join(procpkg.Backends, ", "))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func (c Config) TableOptions() procpkg.Options {
	return procpkg.Options{
		Backend:  c.Backend,
		ProcRoot: c.ProcRoot,
		LsofPath: c.LsofPath,
	}
}
