package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Remote  Remote  `yaml:"remote"`
	Import  Import  `yaml:"import"`
	Output  Output  `yaml:"output"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

type Remote struct {
	BaseURL        string `yaml:"base_url"`
	AppKeyEnv      string `yaml:"app_key_env"`
	TokenEnv       string `yaml:"token_env"`
	WorldID        string `yaml:"world_id"`
	ActivityFeed   string `yaml:"activity_feed"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AppKey resolves the application key from the configured env var.
func (r Remote) AppKey() string { return os.Getenv(r.AppKeyEnv) }

// Token resolves the user token from the configured env var.
func (r Remote) Token() string { return os.Getenv(r.TokenEnv) }

type Import struct {
	Drafts        bool `yaml:"drafts"`
	WIP           bool `yaml:"wip"`
	ExternalFetch bool `yaml:"external_fetch"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for lorebridge.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "lorebridge")
}

// DataDir returns the XDG data directory for lorebridge.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "lorebridge")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/lorebridge/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'lorebridge init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Remote: Remote{
			BaseURL:        "https://api.worldforge.example/v1",
			AppKeyEnv:      "LOREBRIDGE_APP_KEY",
			TokenEnv:       "LOREBRIDGE_TOKEN",
			TimeoutSeconds: 30,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
