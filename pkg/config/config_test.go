package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triage.yaml")
	data := `
database_url: postgres://db:5432/triage
stages:
  market_insight:
    max_batch: 10
    concurrency: 2
    timeout: 2m
retry:
  max_attempts: 4
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://db:5432/triage" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Stages.MarketInsight.MaxBatch != 10 {
		t.Errorf("market_insight.max_batch = %d, want 10", cfg.Stages.MarketInsight.MaxBatch)
	}
	if cfg.Stages.MarketInsight.Timeout != 2*time.Minute {
		t.Errorf("market_insight.timeout = %s, want 2m", cfg.Stages.MarketInsight.Timeout)
	}
	if cfg.Retry.MaxAttempts != 4 {
		t.Errorf("retry.max_attempts = %d, want 4", cfg.Retry.MaxAttempts)
	}
	// Untouched sections keep defaults.
	if cfg.Stages.Screening.Concurrency != 10 {
		t.Errorf("screening.concurrency = %d, want default 10", cfg.Stages.Screening.Concurrency)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}
	if cfg.Oracle.FlashModel == "" {
		t.Error("expected defaults for missing file")
	}
}

func TestValidate_Failures(t *testing.T) {
	cfg := Default()
	cfg.DatabaseURL = ""
	cfg.Stages.Evaluation.Concurrency = 0
	cfg.Retry.MaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation errors")
	}
}

func TestResolveOracleKey(t *testing.T) {
	cfg := Default()
	cfg.Oracle.APIKeyEnv = "TRIAGE_TEST_ORACLE_KEY"

	if _, err := cfg.ResolveOracleKey(); err == nil {
		t.Error("expected error when env var is unset")
	}

	t.Setenv("TRIAGE_TEST_ORACLE_KEY", "sk-test")
	key, err := cfg.ResolveOracleKey()
	if err != nil {
		t.Fatalf("ResolveOracleKey() error: %v", err)
	}
	if key != "sk-test" {
		t.Errorf("key = %q, want sk-test", key)
	}
}
