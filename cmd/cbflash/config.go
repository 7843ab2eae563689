package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// QueueConfig describes one queue to register at startup, the YAML
// counterpart of the register_queue arguments in spec.md §6.
type QueueConfig struct {
	Magic    uint32 `yaml:"magic"`
	ElemSize int    `yaml:"elem_size"`
	NumElems int    `yaml:"num_elems"`
}

// Config is the cbflash demo/CLI configuration file format, the way
// mklimuk-sensors keeps its own device configuration in YAML rather than
// a bespoke flag-only surface.
type Config struct {
	FlashType int           `yaml:"flash_type"`
	Queues    []QueueConfig `yaml:"queues"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
