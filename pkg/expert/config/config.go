package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the session configuration for the expert shell.
type Config struct {
	// DB is the path of the sqlite snapshot database, empty to disable.
	DB string `yaml:"db"`
	// KB is a YAML knowledge-base file loaded at startup.
	KB string `yaml:"kb"`
	// Rules is a rule file (.txt or .html) imported at startup.
	Rules string `yaml:"rules"`
	// MaxRounds bounds forward chaining; 0 means the engine default.
	MaxRounds int `yaml:"max_rounds"`
}

// Load reads a session configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
