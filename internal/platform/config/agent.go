package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultAgentConfigPath is read when present; a missing file is not an error.
	DefaultAgentConfigPath = "deeptrust.yml"

	envBackendURL        = "DEEPTRUST_BACKEND_URL"
	envAnalysisTimeout   = "ANALYSIS_TIMEOUT"
	envDetectionDebounce = "DETECTION_DEBOUNCE"
	envBadgePolicy       = "BADGE_POLICY"
	envErrorCooldown     = "ERROR_COOLDOWN"
	envChromeRemoteURL   = "CHROME_REMOTE_URL"
	envDetectionTTL      = "DETECTION_TTL"
)

// Badge policies for repeated results on the same element.
const (
	BadgeReplace = "replace"
	BadgeStack   = "stack"
)

// AgentConfig holds the extension runtime settings.
type AgentConfig struct {
	BackendURL        string
	AnalysisTimeout   time.Duration // 0 leaves the transport defaults in charge
	DetectionDebounce time.Duration // 0 re-scans on every mutation
	BadgePolicy       string
	ErrorCooldown     time.Duration
	ChromeRemoteURL   string
	DetectionTTL      time.Duration
}

// DefaultAgentConfig returns the baseline configuration.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		BackendURL:    "http://localhost:8080",
		BadgePolicy:   BadgeReplace,
		ErrorCooldown: 2 * time.Second,
		DetectionTTL:  30 * time.Minute,
	}
}

// AgentOverrides captures values coming from the YAML file, env vars or CLI flags.
// Empty strings and nil pointers mean "not set".
type AgentOverrides struct {
	BackendURL        string
	AnalysisTimeout   *time.Duration
	DetectionDebounce *time.Duration
	BadgePolicy       string
	ErrorCooldown     *time.Duration
	ChromeRemoteURL   string
	DetectionTTL      *time.Duration
}

// Loader merges configuration coming from files, environment variables, and CLI flags.
type Loader struct {
	ConfigPath string
}

// LoadAgent resolves the agent configuration: defaults < file < env < flags.
func (l Loader) LoadAgent(flags AgentOverrides) (AgentConfig, error) {
	cfg := DefaultAgentConfig()

	path := l.ConfigPath
	if path == "" {
		path = DefaultAgentConfigPath
	}
	if fileExists(path) {
		fileOv, err := loadAgentFile(path)
		if err != nil {
			return cfg, err
		}
		cfg.apply(fileOv)
	}

	envOv, err := agentOverridesFromEnv()
	if err != nil {
		return cfg, err
	}
	cfg.apply(envOv)
	cfg.apply(flags)

	return cfg, cfg.Validate()
}

// Validate checks the merged configuration.
func (c AgentConfig) Validate() error {
	if c.BackendURL == "" {
		return errors.New("backend URL is required; set " + envBackendURL + " or backend_url")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend URL %q", c.BackendURL)
	}
	if c.BadgePolicy != BadgeReplace && c.BadgePolicy != BadgeStack {
		return fmt.Errorf("badge policy must be %q or %q (got %q)", BadgeReplace, BadgeStack, c.BadgePolicy)
	}
	if c.AnalysisTimeout < 0 || c.DetectionDebounce < 0 || c.ErrorCooldown < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

func (c *AgentConfig) apply(src AgentOverrides) {
	if src.BackendURL != "" {
		c.BackendURL = src.BackendURL
	}
	if src.AnalysisTimeout != nil {
		c.AnalysisTimeout = *src.AnalysisTimeout
	}
	if src.DetectionDebounce != nil {
		c.DetectionDebounce = *src.DetectionDebounce
	}
	if src.BadgePolicy != "" {
		c.BadgePolicy = src.BadgePolicy
	}
	if src.ErrorCooldown != nil {
		c.ErrorCooldown = *src.ErrorCooldown
	}
	if src.ChromeRemoteURL != "" {
		c.ChromeRemoteURL = src.ChromeRemoteURL
	}
	if src.DetectionTTL != nil {
		c.DetectionTTL = *src.DetectionTTL
	}
}

func loadAgentFile(path string) (AgentOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AgentOverrides{}, err
	}

	type rawConfig struct {
		BackendURL        string `yaml:"backend_url"`
		AnalysisTimeout   string `yaml:"analysis_timeout"`
		DetectionDebounce string `yaml:"detection_debounce"`
		BadgePolicy       string `yaml:"badge_policy"`
		ErrorCooldown     string `yaml:"error_cooldown"`
		ChromeRemoteURL   string `yaml:"chrome_remote_url"`
		DetectionTTL      string `yaml:"detection_ttl"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return AgentOverrides{}, fmt.Errorf("parse %s: %w", path, err)
	}

	over := AgentOverrides{
		BackendURL:      raw.BackendURL,
		BadgePolicy:     raw.BadgePolicy,
		ChromeRemoteURL: raw.ChromeRemoteURL,
	}
	durations := []struct {
		name string
		raw  string
		dst  **time.Duration
	}{
		{"analysis_timeout", raw.AnalysisTimeout, &over.AnalysisTimeout},
		{"detection_debounce", raw.DetectionDebounce, &over.DetectionDebounce},
		{"error_cooldown", raw.ErrorCooldown, &over.ErrorCooldown},
		{"detection_ttl", raw.DetectionTTL, &over.DetectionTTL},
	}
	for _, d := range durations {
		if err := parseDurationInto(d.name, d.raw, d.dst); err != nil {
			return AgentOverrides{}, err
		}
	}
	return over, nil
}

func agentOverridesFromEnv() (AgentOverrides, error) {
	over := AgentOverrides{
		BackendURL:      os.Getenv(envBackendURL),
		BadgePolicy:     os.Getenv(envBadgePolicy),
		ChromeRemoteURL: os.Getenv(envChromeRemoteURL),
	}
	durations := []struct {
		name string
		dst  **time.Duration
	}{
		{envAnalysisTimeout, &over.AnalysisTimeout},
		{envDetectionDebounce, &over.DetectionDebounce},
		{envErrorCooldown, &over.ErrorCooldown},
		{envDetectionTTL, &over.DetectionTTL},
	}
	for _, d := range durations {
		if err := parseDurationInto(d.name, os.Getenv(d.name), d.dst); err != nil {
			return AgentOverrides{}, err
		}
	}
	return over, nil
}

func parseDurationInto(name, raw string, dst **time.Duration) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = &d
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
