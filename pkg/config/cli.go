package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backends understood by the CLI.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

const defaultAPIBaseURL = "http://localhost:8080"

// CLIConfig is the on-disk configuration of the mediapp client.
type CLIConfig struct {
	APIBaseURL  string `yaml:"api_base_url"`
	Storage     string `yaml:"storage"`
	StoragePath string `yaml:"storage_path,omitempty"`
}

// DefaultCLIConfigPath returns <user config dir>/mediapp/config.yaml.
func DefaultCLIConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "mediapp", "config.yaml"), nil
}

// LoadCLIConfig reads the YAML file at path. A missing file yields defaults.
// MEDIAPP_API_URL overrides the file's base URL.
func LoadCLIConfig(path string) (CLIConfig, error) {
	cfg, err := ReadCLIConfigFile(path)
	if err != nil {
		return CLIConfig{}, err
	}
	cfg.APIBaseURL = GetString("MEDIAPP_API_URL", cfg.APIBaseURL)
	cfg.applyDefaults()
	return cfg, nil
}

// ReadCLIConfigFile returns the settings stored at path without defaults or
// environment overrides. A missing file or empty path yields the zero value.
func ReadCLIConfigFile(path string) (CLIConfig, error) {
	var cfg CLIConfig
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, nil
	case err != nil:
		return CLIConfig{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveCLIConfig writes cfg to path, creating parent directories.
func SaveCLIConfig(path string, cfg CLIConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *CLIConfig) applyDefaults() {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage)) {
	case StorageSQLite:
		c.Storage = StorageSQLite
	case StorageMemory:
		c.Storage = StorageMemory
	default:
		c.Storage = StorageFile
	}
}
