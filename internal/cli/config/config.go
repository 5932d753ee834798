package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL        = "http://127.0.0.1:8080"
	DefaultTimeout        = 10 * time.Second
	DefaultTokenStatePath = ".stackit/session.json"
	DefaultHistoryPath    = ".stackit/history"
)

// Config holds CLI configuration.
type Config struct {
	BaseURL        string        `yaml:"baseURL"`
	Timeout        time.Duration `yaml:"timeout"`
	TokenStatePath string        `yaml:"tokenStatePath"`
	HistoryPath    string        `yaml:"historyPath"`
	PrettyJSON     *bool         `yaml:"prettyJSON"`
}

// Load reads the YAML file at path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, fmt.Errorf("read config file failed: %w", err)
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file failed: %w", err)
		}
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TokenStatePath == "" {
		cfg.TokenStatePath = DefaultTokenStatePath
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = DefaultHistoryPath
	}
	if cfg.PrettyJSON == nil {
		value := true
		cfg.PrettyJSON = &value
	}
}
