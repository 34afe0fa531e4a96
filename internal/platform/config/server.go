// Package config resolves settings for the Analysis Service and the
// extension agent from files, environment variables and CLI flags.
package config

import (
	"fmt"
	"os"
	"time"
)

// ServerConfig holds Analysis Service settings.
type ServerConfig struct {
	Port          string        // listen port, without colon
	ScoreCacheTTL time.Duration // lifetime of a memoised score in Redis
	Version       string        // "version" field of every result
}

// LoadServerConfig reads PORT, SCORE_CACHE_TTL and ANALYSIS_VERSION.
func LoadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{
		Port:          "8080",
		ScoreCacheTTL: 10 * time.Minute,
		Version:       "1.0",
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("ANALYSIS_VERSION"); v != "" {
		cfg.Version = v
	}
	if v := os.Getenv("SCORE_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("SCORE_CACHE_TTL: %w", err)
		}
		cfg.ScoreCacheTTL = d
	}
	return cfg, nil
}

// Addr returns the gin listen address.
func (c ServerConfig) Addr() string {
	return ":" + c.Port
}
