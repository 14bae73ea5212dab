package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all spreadnet configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Inference engine tuning
	Engine EngineConfig `yaml:"engine"`

	// Neuron suspension storage
	Storage StorageConfig `yaml:"storage"`

	// Document processing
	Processor ProcessorConfig `yaml:"processor"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ProcessorConfig configures the document processor.
type ProcessorConfig struct {
	Workers int `yaml:"workers"` // Max documents processed concurrently
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "spreadnet",
		Version: "0.3.0",

		Engine: DefaultEngineConfig(),

		Storage: StorageConfig{
			Backend: BackendMemory,
			Driver:  DriverModernc,
			Path:    ".spreadnet/model.db",
		},

		Processor: ProcessorConfig{
			Workers: 4,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("SPREADNET_STORE_PATH"); path != "" {
		c.Storage.Path = path
	}
	if backend := os.Getenv("SPREADNET_STORE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if driver := os.Getenv("SPREADNET_STORE_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	if v := os.Getenv("SPREADNET_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Processor.Workers = n
		}
	}
	if v := os.Getenv("SPREADNET_EPSILON"); v != "" {
		if eps, err := strconv.ParseFloat(v, 64); err == nil {
			c.Engine.Epsilon = eps
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if c.Processor.Workers < 1 {
		return fmt.Errorf("processor.workers must be >= 1, got %d", c.Processor.Workers)
	}
	return nil
}

// DefaultConfigPath returns .spreadnet/config.yaml under the workspace root.
func DefaultConfigPath() string {
	root, err := FindWorkspaceRoot()
	if err != nil {
		return filepath.Join(".spreadnet", "config.yaml")
	}
	return filepath.Join(root, ".spreadnet", "config.yaml")
}

// FindWorkspaceRoot walks up from the working directory looking for a
// .spreadnet directory or a go.mod file.
func FindWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	originalDir := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, ".spreadnet")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return originalDir, nil
}
