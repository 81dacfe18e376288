package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const fileName = "config.yml"

// Config models the client settings stored under the state directory.
type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
	} `yaml:"api"`
	Workspace string `yaml:"workspace"`
	User      string `yaml:"user"`
}

// Default returns a config pointing at the hosted API.
func Default() *Config {
	c := &Config{}
	c.API.BaseURL = "https://api.decidelog.io/v1"
	return c
}

// StateDir returns the local state directory, creating it if needed.
func StateDir(override string) (string, error) {
	dir := override
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".decidelog")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Path returns the config file path for a state dir.
func Path(stateDir string) string {
	return filepath.Join(stateDir, fileName)
}

// Load reads config from the state dir, falling back to defaults when the
// file does not exist yet.
func Load(stateDir string) (*Config, error) {
	data, err := os.ReadFile(Path(stateDir))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", Path(stateDir), err)
	}
	return cfg, nil
}

// Save writes the config back to the state dir.
func (c *Config) Save(stateDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(stateDir), data, 0o600)
}

// Validate ensures the settings needed to reach the API are present.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("config.api.base_url is required")
	}
	if c.API.Token == "" {
		return fmt.Errorf("config.api.token is required; set it with 'dlog auth login' or DECIDELOG_TOKEN")
	}
	return nil
}
