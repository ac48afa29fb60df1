// Package config loads server settings from an optional YAML file,
// with environment variable overrides for deployment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the server settings.
type Config struct {
	Port         int    `yaml:"port"`
	DBPath       string `yaml:"db_path"`
	UploadsDir   string `yaml:"uploads_dir"`
	SessionHours int    `yaml:"session_hours"`
	Institution  string `yaml:"institution"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:         9000,
		DBPath:       "catrack.db",
		UploadsDir:   "uploads",
		SessionHours: 24,
		Institution:  "University Asset Register",
	}
}

// Load reads the YAML file at path (skipped when path is empty) and
// then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("CATRACK_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("CATRACK_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CATRACK_UPLOADS"); v != "" {
		cfg.UploadsDir = v
	}
	if v := os.Getenv("CATRACK_INSTITUTION"); v != "" {
		cfg.Institution = v
	}

	if cfg.SessionHours <= 0 {
		cfg.SessionHours = 24
	}
	return cfg, nil
}
