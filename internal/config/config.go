// Package config loads the optional SteganoChat CLI defaults file: the
// contacts path, default image format, and output directory a compose
// invocation falls back on when a flag is omitted.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the defaults an on-disk YAML file may override for the
// CLI surface: --contacts, --image-format, --output-dir.
type Config struct {
	Contacts    string `yaml:"contacts"`
	ImageFormat string `yaml:"imageFormat"`
	OutputDir   string `yaml:"outputDir"`
}

// defaultCandidates are checked in order when no explicit path is given.
var defaultCandidates = []string{
	"steganochat.yaml",
	".steganochat.yaml",
}

// Default returns the built-in fallback configuration.
func Default() Config {
	return Config{
		ImageFormat: "PNG",
		OutputDir:   ".",
	}
}

// Load reads configPath if given, otherwise the first existing default
// candidate, and merges it over Default(). A missing file at every
// candidate path is not an error — it simply yields the built-in
// defaults, since the config file is optional.
func Load(configPath string) (Config, error) {
	cfg := Default()

	candidates := defaultCandidates
	if configPath != "" {
		candidates = []string{configPath}
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if configPath != "" {
				return cfg, err
			}
			continue
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return cfg, err
		}
		merge(&cfg, parsed)
		applyEnvOverrides(&cfg)
		return cfg, nil
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func merge(dst *Config, src Config) {
	if src.Contacts != "" {
		dst.Contacts = src.Contacts
	}
	if src.ImageFormat != "" {
		dst.ImageFormat = src.ImageFormat
	}
	if src.OutputDir != "" {
		dst.OutputDir = src.OutputDir
	}
}

// applyEnvOverrides lets STEGANOCHAT_CONTACTS / STEGANOCHAT_IMAGE_FORMAT /
// STEGANOCHAT_OUTPUT_DIR override whatever the file (or built-in default)
// set, for scripted/CI invocations that can't pass flags.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("STEGANOCHAT_CONTACTS")); v != "" {
		cfg.Contacts = v
	}
	if v := strings.TrimSpace(os.Getenv("STEGANOCHAT_IMAGE_FORMAT")); v != "" {
		cfg.ImageFormat = v
	}
	if v := strings.TrimSpace(os.Getenv("STEGANOCHAT_OUTPUT_DIR")); v != "" {
		cfg.OutputDir = v
	}
}
