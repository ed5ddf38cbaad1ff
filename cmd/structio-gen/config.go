package main

import (
	"fmt"
	"go/token"
	"os"
	"strings"

	"github.com/hengadev/errsx"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration read when -config is not given
const DefaultConfigFile = "structio.yaml"

// Config represents the configuration for the code generator
type Config struct {
	Version    string                   `yaml:"version"`
	Generation GenerationConfig         `yaml:"generation"`
	Packages   map[string]PackageConfig `yaml:"packages"`
}

// GenerationConfig holds general generation settings
type GenerationConfig struct {
	// OutputSuffix is appended to the source file name, before ".go"
	OutputSuffix string `yaml:"output_suffix"`
	// CacheFile records source hashes so unchanged files are skipped.
	// Relative paths are resolved against each package directory.
	CacheFile string `yaml:"cache_file"`
}

// PackageConfig holds per-package overrides
type PackageConfig struct {
	OutputDir string `yaml:"output_dir"`
	Skip      bool   `yaml:"skip"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with empty config, not defaults
	config := &Config{
		Packages: make(map[string]PackageConfig),
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Generation: GenerationConfig{
			OutputSuffix: "_structio",
			CacheFile:    ".structio-gen.cache",
		},
		Packages: make(map[string]PackageConfig),
	}
}

// Validate checks the configuration and fills empty settings with defaults.
// Every problem is reported, keyed by its YAML path.
func (c *Config) Validate() error {
	defaults := DefaultConfig()
	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Generation.OutputSuffix == "" {
		c.Generation.OutputSuffix = defaults.Generation.OutputSuffix
	}
	if c.Packages == nil {
		c.Packages = make(map[string]PackageConfig)
	}

	var errs errsx.Map
	if c.Version != "1" {
		errs.Set("version", fmt.Errorf("unsupported version %q", c.Version))
	}
	if !isValidOutputSuffix(c.Generation.OutputSuffix) {
		errs.Set("generation.output_suffix", fmt.Errorf("%q must start with an underscore or a letter and hold no path separator", c.Generation.OutputSuffix))
	}
	if strings.HasSuffix(c.Generation.OutputSuffix, "_test") {
		errs.Set("generation.output_suffix", fmt.Errorf("%q would produce test files", c.Generation.OutputSuffix))
	}
	for pkg, pkgConfig := range c.Packages {
		if pkg == "" {
			errs.Set("packages", fmt.Errorf("package path cannot be empty"))
			continue
		}
		if pkgConfig.Skip && pkgConfig.OutputDir != "" {
			errs.Set(fmt.Sprintf("packages.%s.output_dir", pkg), fmt.Errorf("set on a skipped package"))
		}
	}

	if !errs.IsEmpty() {
		return errs.AsError()
	}
	return nil
}

// isValidOutputSuffix checks if output suffix is valid
func isValidOutputSuffix(s string) bool {
	if s == "" || strings.ContainsAny(s, `/\`) {
		return false
	}
	first := rune(s[0])
	if !(first == '_' || (first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
		return false
	}
	// the suffix must keep the file name a valid Go file name
	return token.IsIdentifier(strings.NewReplacer(".", "_", "-", "_").Replace(s))
}
