package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultCheckInterval  = 30 * time.Second
	DefaultRequestTimeout = 5 * time.Second
	DefaultMaxRetries     = 3
	DefaultBackoffBase    = 2.0
)

// Config is the top-level agent configuration.
// Fields map 1:1 to agent.example.yaml.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// TargetURL is the monitored endpoint. One target per agent instance.
	TargetURL string `yaml:"target_url"`

	// CheckInterval controls how often the target is probed. Minimum 1s.
	CheckInterval time.Duration `yaml:"check_interval"`

	// ServerURL is the base URL of pulsewatch-server, e.g. "http://localhost:8080".
	ServerURL string `yaml:"server_url"`

	// Auth configures how the agent authenticates to pulsewatch-server.
	Auth AuthConfig `yaml:"auth"`

	// RequestTimeout bounds both the probe request and each delivery attempt.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxRetries is how many times a failed delivery is retried after the
	// initial attempt. Only connection failures are retried.
	MaxRetries int `yaml:"max_retries"`

	// BackoffBase is the exponential backoff base: the wait before retry n
	// is BackoffBase^n seconds.
	BackoffBase float64 `yaml:"backoff_base"`
}

// AuthConfig specifies how the agent presents its API key.
type AuthConfig struct {
	// Header is the HTTP header name the key is sent in.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			CheckInterval:  DefaultCheckInterval,
			RequestTimeout: DefaultRequestTimeout,
			MaxRetries:     DefaultMaxRetries,
			BackoffBase:    DefaultBackoffBase,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Agent.TargetURL == "" {
		return fmt.Errorf("agent.target_url is required")
	}
	if cfg.Agent.ServerURL == "" {
		return fmt.Errorf("agent.server_url is required")
	}
	if cfg.Agent.CheckInterval < time.Second {
		return fmt.Errorf("agent.check_interval must be at least 1s")
	}
	if cfg.Agent.RequestTimeout <= 0 {
		return fmt.Errorf("agent.request_timeout must be positive")
	}
	if cfg.Agent.MaxRetries < 0 {
		return fmt.Errorf("agent.max_retries must not be negative")
	}
	if cfg.Agent.BackoffBase < 1 {
		return fmt.Errorf("agent.backoff_base must be at least 1")
	}
	return nil
}
