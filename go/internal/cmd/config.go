package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/geodueler/geodueler/go/internal/session"
)

// Config holds the optional game defaults file. Anything left zero falls
// back to the built-in defaults.
type Config struct {
	Game struct {
		Rounds       int    `yaml:"rounds"`
		TimeLimitSec int    `yaml:"time_limit_sec"`
		DefaultName  string `yaml:"default_name"`
	} `yaml:"game"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// sessionConfig overlays the file's game defaults on the built-ins.
func (c *Config) sessionConfig() session.Config {
	cfg := session.DefaultConfig()
	if c == nil {
		return cfg
	}
	if c.Game.Rounds > 0 {
		cfg.DefaultRounds = c.Game.Rounds
	}
	if c.Game.TimeLimitSec > 0 {
		cfg.DefaultTimeLimitSec = c.Game.TimeLimitSec
	}
	if c.Game.DefaultName != "" {
		cfg.DefaultName = c.Game.DefaultName
	}
	return cfg
}
