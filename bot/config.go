package bot

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "tickerbot/core/config"
	coredatabase "tickerbot/core/database"
)

// QuotesConfig points at the market-data provider.
type QuotesConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"QUOTES_BASE_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"QUOTES_TIMEOUT_SECONDS"`
}

// Timeout returns the per-call bound, defaulting to 5s.
func (c QuotesConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AIConfig points at the generative-language API.
type AIConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"AI_BASE_URL"`
	Model          string `yaml:"model" envconfig:"AI_MODEL"`
	APIKey         string `yaml:"api_key" envconfig:"AI_API_KEY"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"AI_TIMEOUT_SECONDS"`
}

// Timeout returns the per-call bound, defaulting to 30s.
func (c AIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Config is the application configuration: the shared core sections plus
// the bot's own service endpoints.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Quotes   QuotesConfig        `yaml:"quotes"`
	AI       AIConfig            `yaml:"ai"`
}

// CoreConfig exposes the embedded core configuration for the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// LoadConfig reads YAML, applies environment overrides, and validates.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if cfg.Quotes.BaseURL == "" {
		return nil, fmt.Errorf("quotes.base_url is required")
	}
	return &cfg, nil
}
