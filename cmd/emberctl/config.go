package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emberdb/ember/engine"
)

// fileConfig is the yaml engine configuration consumed at open time.
//
//	logging:
//	  enabled: true
//	file_close_sync: false
//	checkpoint:
//	  wait: 60s
type fileConfig struct {
	Logging struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"logging"`
	FileCloseSync bool `yaml:"file_close_sync"`
	Checkpoint    struct {
		Wait time.Duration `yaml:"wait"`
	} `yaml:"checkpoint"`
}

// loadConfig reads a yaml config file into engine options. Unset fields
// keep their defaults.
func loadConfig(path string) (engine.Options, error) {
	opts := engine.DefaultOptions()

	raw, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read config: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return opts, fmt.Errorf("parse config %s: %w", path, err)
	}

	opts.LoggingEnabled = cfg.Logging.Enabled
	opts.FileCloseSync = cfg.FileCloseSync
	if cfg.Checkpoint.Wait != 0 {
		opts.CheckpointWait = cfg.Checkpoint.Wait
	}
	return opts, nil
}
