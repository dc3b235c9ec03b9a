// Package config loads server settings from the environment and simulation
// definitions from YAML files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Server holds the runtime settings of the HTTP server, read from the
// environment (a .env file is honored when present).
type Server struct {
	Port          string
	DataDir       string
	SweepInterval time.Duration
}

// LoadServer reads server settings from the environment with defaults.
func LoadServer() (*Server, error) {
	cfg := &Server{
		Port:          envOr("MONUMENT_PORT", "8080"),
		DataDir:       envOr("MONUMENT_DATA_DIR", "./data"),
		SweepInterval: 5 * time.Second,
	}
	if v := os.Getenv("MONUMENT_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MONUMENT_SWEEP_INTERVAL %q: %w", v, err)
		}
		cfg.SweepInterval = d
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid MONUMENT_PORT %q", cfg.Port)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
