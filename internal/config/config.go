package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all quantum-breach configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Session timers
	Timing TimingConfig `yaml:"timing"`

	// Challenge text generation
	Payload PayloadConfig `yaml:"payload"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Prometheus listener
	Metrics MetricsConfig `yaml:"metrics"`

	// Console appearance
	UI UIConfig `yaml:"ui"`
}

// TimingConfig configures the detection tick and challenge countdown.
type TimingConfig struct {
	Tick string `yaml:"tick"`
}

// PayloadConfig configures the challenge text source.
type PayloadConfig struct {
	Provider       string  `yaml:"provider"` // gemini, fallback
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	Timeout        string  `yaml:"timeout"`
	Temperature    float32 `yaml:"temperature"`
	ThinkingBudget int32   `yaml:"thinking_budget"`
}

// MetricsConfig configures the optional /metrics listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// UIConfig configures the console.
type UIConfig struct {
	Theme string `yaml:"theme"` // auto, dark, light
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "quantum-breach",
		Version: "1.0.0",

		Timing: TimingConfig{
			Tick: "1s",
		},

		Payload: PayloadConfig{
			Provider:       ProviderGemini,
			Model:          "gemini-3-pro-preview",
			Timeout:        "30s",
			Temperature:    1.0,
			ThinkingBudget: 2000,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   filepath.Join(".breach", "logs", "breach.log"),
		},

		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
		},

		UI: UIConfig{
			Theme: "auto",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".breach", "config.yaml")
	}
	return filepath.Join(cwd, ".breach", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults when the file doesn't exist; env still applies.
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// API key, GEMINI_API_KEY wins over the generic name
	if key := os.Getenv("API_KEY"); key != "" {
		c.Payload.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Payload.APIKey = key
	}
	if c.Payload.APIKey != "" && c.Payload.Provider == "" {
		c.Payload.Provider = ProviderGemini
	}

	if tick := os.Getenv("BREACH_TICK"); tick != "" {
		c.Timing.Tick = tick
	}

	if addr := os.Getenv("BREACH_METRICS_ADDR"); addr != "" {
		c.Metrics.Listen = addr
		c.Metrics.Enabled = true
	}
}

// GetTick returns the timer interval as a duration.
func (c *Config) GetTick() time.Duration {
	d, err := time.ParseDuration(c.Timing.Tick)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// GetPayloadTimeout returns the text source timeout as a duration.
func (c *Config) GetPayloadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Payload.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Payload providers.
const (
	ProviderGemini   = "gemini"
	ProviderFallback = "fallback"
)

// ValidProviders lists all supported text providers.
var ValidProviders = []string{ProviderGemini, ProviderFallback}

// ValidThemes lists the console themes.
var ValidThemes = []string{"auto", "dark", "light"}

// UsesGemini reports whether challenge text should be requested from Gemini.
// Without a key the fallback table is used.
func (c *Config) UsesGemini() bool {
	return c.Payload.Provider == ProviderGemini && c.Payload.APIKey != ""
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(ValidProviders, c.Payload.Provider) {
		return fmt.Errorf("invalid payload provider: %s (valid: %v)", c.Payload.Provider, ValidProviders)
	}
	if _, err := time.ParseDuration(c.Timing.Tick); err != nil {
		return fmt.Errorf("invalid timing.tick %q: %w", c.Timing.Tick, err)
	}
	if c.GetTick() < 10*time.Millisecond {
		return fmt.Errorf("timing.tick %s is below 10ms", c.Timing.Tick)
	}
	if c.Payload.Timeout != "" {
		if _, err := time.ParseDuration(c.Payload.Timeout); err != nil {
			return fmt.Errorf("invalid payload.timeout %q: %w", c.Payload.Timeout, err)
		}
	}
	if c.Payload.Temperature < 0 || c.Payload.Temperature > 2 {
		return fmt.Errorf("payload.temperature %.2f out of range [0,2]", c.Payload.Temperature)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics enabled without a listen address")
	}
	if c.UI.Theme != "" && !slices.Contains(ValidThemes, c.UI.Theme) {
		return fmt.Errorf("invalid ui.theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}
	return nil
}
