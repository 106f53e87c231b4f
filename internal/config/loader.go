package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader reads the configuration of one working directory
type Loader struct {
	workDir  string
	filePath string
	getenv   func(string) string
}

// NewLoader creates a loader for workDir/.multivarka.yml
func NewLoader(workDir string) *Loader {
	return &Loader{
		workDir:  workDir,
		filePath: filepath.Join(workDir, FileName),
		getenv:   os.Getenv,
	}
}

// NewFileLoader creates a loader for an explicit file path
func NewFileLoader(path string) *Loader {
	return &Loader{
		workDir:  filepath.Dir(path),
		filePath: path,
		getenv:   os.Getenv,
	}
}

// Path returns the file the loader reads
func (l *Loader) Path() string {
	return l.filePath
}

// Load reads and validates the file. ${VAR} references are expanded before
// parsing and the environment override is applied afterwards.
func (l *Loader) Load() (*Config, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", l.filePath)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Defaults()
	expanded := os.Expand(string(data), l.getenv)
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", l.filePath, err)
	}
	cfg.AddressSource = SourceFile

	l.applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", l.filePath, err)
	}
	return cfg, nil
}

// LoadOrDefault returns the defaults, with the environment override applied,
// when the file does not exist
func (l *Loader) LoadOrDefault() (*Config, error) {
	if _, err := os.Stat(l.filePath); os.IsNotExist(err) {
		cfg := Defaults()
		l.applyEnv(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return l.Load()
}

// Save writes cfg to the loader's file
func (l *Loader) Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(l.filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (l *Loader) applyEnv(cfg *Config) {
	if address := l.getenv(EnvAddress); address != "" {
		cfg.Server.Address = address
		cfg.AddressSource = SourceEnv
	}
}
