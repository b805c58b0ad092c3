// Package config loads server configuration from an optional YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogMode string `yaml:"log_mode"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Database struct {
		// Driver is "memory", "sqlite" or "postgres".
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Redis struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"redis"`

	NLP struct {
		BaseURL string        `yaml:"base_url"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
		// APIKey is only ever read from the environment (OPENAI_API_KEY),
		// never from the file.
	} `yaml:"nlp"`

	RateFeed struct {
		URL string `yaml:"url"`
	} `yaml:"rate_feed"`
}

func defaults() Config {
	var cfg Config
	cfg.LogMode = "development"
	cfg.Server.Addr = ":8080"
	cfg.Database.Driver = "memory"
	cfg.Redis.Addr = "localhost:6379"
	cfg.NLP.Model = "gpt-4o-mini"
	cfg.NLP.Timeout = 30 * time.Second
	return cfg
}

// Load reads the YAML file at path (skipped when path is empty or missing)
// and then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.LogMode = getEnv("LOG_MODE", cfg.LogMode)
	cfg.Server.Addr = getEnv("SERVER_ADDR", cfg.Server.Addr)
	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DB_DSN", cfg.Database.DSN)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v)
	}
	cfg.NLP.BaseURL = getEnv("NLP_BASE_URL", cfg.NLP.BaseURL)
	cfg.NLP.Model = getEnv("NLP_MODEL", cfg.NLP.Model)
	cfg.RateFeed.URL = getEnv("RATE_FEED_URL", cfg.RateFeed.URL)

	return cfg, nil
}

func getEnv(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
