package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultTimeoutSeconds is applied when http.timeout_seconds is omitted.
const DefaultTimeoutSeconds = 30

// LoadConfig reads, parses, and validates the YAML configuration file.
func LoadConfig(filename string) (*Config, error) {
	fileBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filename, err)
	}

	var config Config
	if err := yaml.Unmarshal(fileBytes, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in '%s': %w", filename, err)
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.HTTP.TimeoutSeconds <= 0 {
		config.HTTP.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if config.Auth.Type == "" {
		config.Auth.Type = "none"
	}

	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
