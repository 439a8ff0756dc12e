// Package config loads the jscan YAML configuration: the Accept/Reject
// filter seeds, decoder feature gates, and output defaults a scan runs
// with when none are given on the command line. Loading is a walk-up
// directory search for a config file, a typed Config struct mirrored by
// YAML tags, and a DefaultConfig fallback.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the jscan configuration file.
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the jscan configuration directory.
const ConfigDirName = ".jscan"

// Config holds every setting a scan needs when not overridden by flags.
type Config struct {
	Filter  FilterConfig  `yaml:"filter"`
	Decoder DecoderConfig `yaml:"decoder"`
	Output  OutputConfig  `yaml:"output"`
	Store   StoreConfig   `yaml:"store"`
}

// FilterConfig holds the Accept/Reject filter seeds.
type FilterConfig struct {
	AcceptPackages []string `yaml:"accept_packages"`
	RejectPackages []string `yaml:"reject_packages"`
	AcceptPaths    []string `yaml:"accept_paths"`
	RejectPaths    []string `yaml:"reject_paths"`
	AcceptClasses  []string `yaml:"accept_classes"`
	RejectClasses  []string `yaml:"reject_classes"`
	AcceptJars     []string `yaml:"accept_jars"`
	RejectJars     []string `yaml:"reject_jars"`
}

// DecoderConfig gates the classfile decoder's optional sections.
type DecoderConfig struct {
	EnableFieldInfo                    bool `yaml:"enable_field_info"`
	EnableMethodInfo                   bool `yaml:"enable_method_info"`
	EnableAnnotationInfo               bool `yaml:"enable_annotation_info"`
	EnableStaticFinalConstants         bool `yaml:"enable_static_final_constants"`
	IncludeRuntimeInvisibleAnnotations bool `yaml:"include_runtime_invisible_annotations"`
	IgnoreVisibilityFields             bool `yaml:"ignore_visibility_fields"`
	IgnoreVisibilityMethods            bool `yaml:"ignore_visibility_methods"`
}

// OutputConfig holds presentation options. Format is loaded and saved with
// the config file, but the CLI does not read it: query output follows the
// global --format flag (default yaml).
type OutputConfig struct {
	// Format is "yaml" or "json".
	Format string `yaml:"format"`
}

// StoreConfig holds defaults for the optional on-disk scan-result cache
// (internal/store).
type StoreConfig struct {
	// Enabled turns on writing/reading the .jscan/store cache.
	Enabled bool `yaml:"enabled"`
	// Driver selects "sqlite" (default, modernc.org/sqlite) or "dolt"
	// (github.com/dolthub/driver) as the store's backing engine.
	Driver string `yaml:"driver"`
}

// DefaultConfig returns the configuration a scan runs with when no config
// file is found: no filter seeds (accept everything), the field, method,
// annotation and static-final-constant decoder sections enabled with
// runtime-invisible annotations excluded, public-only fields/methods,
// YAML output, and
// the store enabled with the sqlite driver.
func DefaultConfig() *Config {
	return &Config{
		Decoder: DecoderConfig{
			EnableFieldInfo:            true,
			EnableMethodInfo:           true,
			EnableAnnotationInfo:       true,
			EnableStaticFinalConstants: true,
		},
		Output: OutputConfig{Format: "yaml"},
		Store:  StoreConfig{Enabled: true, Driver: "sqlite"},
	}
}

// Load walks up from the current working directory looking for the
// nearest .jscan/config.yaml. Returns DefaultConfig if none is found.
func Load() (*Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return LoadFromPath(dir)
}

// LoadFromPath walks up from startDir looking for a config file, stopping
// at the filesystem root. Returns DefaultConfig if none is found.
func LoadFromPath(startDir string) (*Config, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, ConfigDirName, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return loadFile(candidate)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", candidate, err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return DefaultConfig(), nil
		}
		dir = parent
	}
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to .jscan/config.yaml under dir, creating the
// directory if needed.
func Save(dir string, cfg *Config) error {
	cfgDir := filepath.Join(dir, ConfigDirName)
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", cfgDir, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(cfgDir, ConfigFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
