package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the top-level triage pipeline configuration.
type Config struct {
	DatabaseURL string       `yaml:"database_url"`
	Oracle      OracleConfig `yaml:"oracle"`
	GitHub      GitHubConfig `yaml:"github"`
	Stages      StagesConfig `yaml:"stages"`
	Retry       RetryConfig  `yaml:"retry"`
	LogLevel    string       `yaml:"log_level"`
}

// OracleConfig holds the judgment oracle (LLM) settings.
type OracleConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`

	// FlashModel serves the cheap early-stage judgments, ProModel the
	// expensive later-stage ones.
	FlashModel string `yaml:"flash_model"`
	ProModel   string `yaml:"pro_model"`
}

// GitHubConfig holds the metadata fetcher settings.
type GitHubConfig struct {
	BaseURL  string `yaml:"base_url"`
	TokenEnv string `yaml:"token_env"`
	MinStars int    `yaml:"min_stars"`
}

// StageConfig bounds a single stage's batch size, concurrency, and
// per-call timeout.
type StageConfig struct {
	MaxBatch    int           `yaml:"max_batch"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StagesConfig holds per-stage processing limits.
type StagesConfig struct {
	Screening     StageConfig `yaml:"screening"`
	CoreIdea      StageConfig `yaml:"core_idea"`
	Evaluation    StageConfig `yaml:"evaluation"`
	MarketInsight StageConfig `yaml:"market_insight"`
}

// RetryConfig holds oracle retry behavior settings.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		DatabaseURL: "postgres://localhost:5432/triage?sslmode=disable",
		Oracle: OracleConfig{
			BaseURL:    "https://generativelanguage.googleapis.com",
			APIKeyEnv:  "GEMINI_API_KEY",
			FlashModel: "gemini-2.5-flash",
			ProModel:   "gemini-2.5-pro",
		},
		GitHub: GitHubConfig{
			BaseURL:  "https://api.github.com",
			TokenEnv: "GITHUB_TOKEN",
			MinStars: 2,
		},
		Stages: StagesConfig{
			Screening:     StageConfig{MaxBatch: 1000, Concurrency: 10, Timeout: 30 * time.Second},
			CoreIdea:      StageConfig{MaxBatch: 200, Concurrency: 10, Timeout: 30 * time.Second},
			Evaluation:    StageConfig{MaxBatch: 50, Concurrency: 5, Timeout: 90 * time.Second},
			MarketInsight: StageConfig{MaxBatch: 5, Concurrency: 3, Timeout: 90 * time.Second},
		},
		Retry: RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   2 * time.Second,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault loads config from the given path. If the file does not
// exist, it returns the default configuration. Other errors (e.g. parse
// failures) are still returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// ResolveOracleKey reads the oracle API key from the environment variable
// named in the config. A missing key is a fatal configuration error: the
// pipeline cannot run a single stage without it.
func (c *Config) ResolveOracleKey() (string, error) {
	if c.Oracle.APIKeyEnv == "" {
		return "", errors.New("oracle.api_key_env is not configured")
	}
	key := os.Getenv(c.Oracle.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", c.Oracle.APIKeyEnv)
	}
	return key, nil
}

// ResolveGitHubToken reads the optional GitHub token. An empty token is
// allowed; unauthenticated requests just hit lower rate limits.
func (c *Config) ResolveGitHubToken() string {
	if c.GitHub.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.GitHub.TokenEnv)
}

// Validate checks the config for required fields and returns a
// descriptive error if any are missing or invalid.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url must not be empty"))
	}
	if c.Oracle.FlashModel == "" {
		errs = append(errs, errors.New("oracle.flash_model is required"))
	}
	if c.Oracle.ProModel == "" {
		errs = append(errs, errors.New("oracle.pro_model is required"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.BaseDelay < 0 {
		errs = append(errs, fmt.Errorf("retry.base_delay must be >= 0, got %s", c.Retry.BaseDelay))
	}

	for name, sc := range map[string]StageConfig{
		"screening":      c.Stages.Screening,
		"core_idea":      c.Stages.CoreIdea,
		"evaluation":     c.Stages.Evaluation,
		"market_insight": c.Stages.MarketInsight,
	} {
		if sc.MaxBatch < 1 {
			errs = append(errs, fmt.Errorf("stages.%s.max_batch must be >= 1, got %d", name, sc.MaxBatch))
		}
		if sc.Concurrency < 1 {
			errs = append(errs, fmt.Errorf("stages.%s.concurrency must be >= 1, got %d", name, sc.Concurrency))
		}
		if sc.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("stages.%s.timeout must be > 0, got %s", name, sc.Timeout))
		}
	}

	return errors.Join(errs...)
}
