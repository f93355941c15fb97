// Package config loads Reeves' runtime configuration: a YAML file with
// environment variable overrides, following the same precedence order
// as the rest of the ambient stack (defaults, then file, then env).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete Reeves runtime configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" json:"store"`
	Mirror      MirrorConfig      `yaml:"mirror" json:"mirror"`
	Orchestrate OrchestrateConfig `yaml:"orchestrate" json:"orchestrate"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Log         LogConfig         `yaml:"log" json:"log"`
}

// StoreConfig configures the Index Store.
type StoreConfig struct {
	// Path is the BoltDB file backing the Index Store.
	Path string `yaml:"path" json:"path"`
}

// MirrorConfig configures the read-only registry mirror the Orchestrator
// reads tarballs and index files from.
type MirrorConfig struct {
	// Root is the filesystem root of the mirror (contains a
	// crates/ tarball tree and an index/ tree of package listings).
	Root string `yaml:"root" json:"root"`
}

// OrchestrateConfig configures the Corpus Orchestrator's run-time knobs.
type OrchestrateConfig struct {
	// ScratchRoot is the directory each crate is extracted into before
	// sandboxed extraction. Cleared per-crate, not shared across runs.
	ScratchRoot string `yaml:"scratch_root" json:"scratch_root"`
	// Concurrency is the bounded worker pool size. 0 means runtime.NumCPU().
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// ServerConfig configures the HTTP search server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr" json:"addr"`
	// StaticRoot is the directory of bundled static assets served for
	// every path other than the search endpoint.
	StaticRoot string `yaml:"static_root" json:"static_root"`
	// RequestSizeCapBytes rejects POST /reeves/search bodies larger than
	// this with "request too large". Spec floor is 1 MiB.
	RequestSizeCapBytes int64 `yaml:"request_size_cap_bytes" json:"request_size_cap_bytes"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level         string `yaml:"level" json:"level"`
	FilePath      string `yaml:"file_path" json:"file_path"`
	WriteToStderr bool   `yaml:"write_to_stderr" json:"write_to_stderr"`
}

// Default returns a Config with sensible defaults for running Reeves
// out of the current working directory.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "reeves.db",
		},
		Mirror: MirrorConfig{
			Root: "mirror",
		},
		Orchestrate: OrchestrateConfig{
			ScratchRoot: filepath.Join(os.TempDir(), "reeves-scratch"),
			Concurrency: runtime.NumCPU(),
		},
		Server: ServerConfig{
			Addr:                ":8080",
			StaticRoot:          "static",
			RequestSizeCapBytes: 1 << 20, // 1 MiB
		},
		Log: LogConfig{
			Level:         "info",
			FilePath:      "",
			WriteToStderr: true,
		},
	}
}

// Load builds a Config from, in increasing precedence: hardcoded
// defaults, an optional YAML file at path (skipped entirely if path is
// empty or does not exist), then REEVES_* environment variable
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.mergeFile(path); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overwrites c's fields with any non-zero value set in other.
// Log.WriteToStderr is the exception: it is taken from other, true or
// false, whenever other sets Log.FilePath, and left alone otherwise.
func (c *Config) mergeWith(other *Config) {
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
	if other.Mirror.Root != "" {
		c.Mirror.Root = other.Mirror.Root
	}
	if other.Orchestrate.ScratchRoot != "" {
		c.Orchestrate.ScratchRoot = other.Orchestrate.ScratchRoot
	}
	if other.Orchestrate.Concurrency != 0 {
		c.Orchestrate.Concurrency = other.Orchestrate.Concurrency
	}
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.StaticRoot != "" {
		c.Server.StaticRoot = other.Server.StaticRoot
	}
	if other.Server.RequestSizeCapBytes != 0 {
		c.Server.RequestSizeCapBytes = other.Server.RequestSizeCapBytes
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.FilePath != "" {
		c.Log.FilePath = other.Log.FilePath
	}
	if other.Log.FilePath != "" {
		c.Log.WriteToStderr = other.Log.WriteToStderr
	}
}

// applyEnvOverrides applies REEVES_* environment variable overrides,
// the highest-precedence configuration source.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("REEVES_DB_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("REEVES_MIRROR_ROOT"); v != "" {
		c.Mirror.Root = v
	}
	if v := os.Getenv("REEVES_SCRATCH_ROOT"); v != "" {
		c.Orchestrate.ScratchRoot = v
	}
	if v := os.Getenv("REEVES_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Orchestrate.Concurrency = n
		}
	}
	if v := os.Getenv("REEVES_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("REEVES_STATIC_ROOT"); v != "" {
		c.Server.StaticRoot = v
	}
	if v := os.Getenv("REEVES_REQ_SIZE_CAP"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Server.RequestSizeCapBytes = n
		}
	}
	if v := os.Getenv("REEVES_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("REEVES_LOG_FILE"); v != "" {
		c.Log.FilePath = v
	}
}

// Validate checks invariants that would otherwise surface as confusing
// failures deep inside the Orchestrator or server.
func (c *Config) Validate() error {
	if c.Orchestrate.Concurrency < 0 {
		return fmt.Errorf("orchestrate.concurrency must be non-negative, got %d", c.Orchestrate.Concurrency)
	}
	if c.Server.RequestSizeCapBytes < 1<<20 {
		return fmt.Errorf("server.request_size_cap_bytes must be at least 1 MiB, got %d", c.Server.RequestSizeCapBytes)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %s", c.Log.Level)
	}
	return nil
}

// WriteYAML writes c to path, creating or truncating it.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
