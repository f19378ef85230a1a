package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
runner:
  batch_size: 50
  worker_parallelism: 4
  max_row_retries: 2
  grace_window: "3s"
  name_field: "DirectorName"

thresholds:
  rule_confidence: 0.8
  phonetic_confidence: 0.65

learning:
  deactivation_floor: 0.6
  deactivation_min_applications: 20
  db_path: "./testdata/learning.db"

store:
  job_db_path: "./testdata/jobs.db"

llm:
  primary_provider: "anthropic"
  anthropic_api_key: "test-key"
  secondary_provider: "openai_compat"
  secondary_base_url: "https://example.test/v1"
  max_retries: 3
  requests_per_second: 5
  burst: 5

log:
  level: "debug"
  format: "text"
`

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Runner.BatchSize != 50 {
		t.Errorf("runner.batch_size = %d, want 50", cfg.Runner.BatchSize)
	}
	if cfg.Runner.GraceWindow != 3*time.Second {
		t.Errorf("runner.grace_window = %v, want 3s", cfg.Runner.GraceWindow)
	}
	if cfg.Thresholds.RuleConfidence != 0.8 {
		t.Errorf("thresholds.rule_confidence = %v, want 0.8", cfg.Thresholds.RuleConfidence)
	}
	if cfg.Learning.DeactivationMinApplications != 20 {
		t.Errorf("learning.deactivation_min_applications = %d, want 20", cfg.Learning.DeactivationMinApplications)
	}
	if cfg.LLM.PrimaryProvider != "anthropic" {
		t.Errorf("llm.primary_provider = %q, want anthropic", cfg.LLM.PrimaryProvider)
	}
	if !cfg.LLM.HasSecondary() {
		t.Error("expected HasSecondary() to be true")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("RUNNER_BATCH_SIZE", "250")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Runner.BatchSize != 250 {
		t.Errorf("runner.batch_size = %d, want 250 (ENV override)", cfg.Runner.BatchSize)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want warn (ENV override)", cfg.Log.Level)
	}
}

func TestLoad_NoFile_ENVOnly(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Runner.BatchSize != 100 {
		t.Errorf("runner.batch_size = %d, want 100 (default)", cfg.Runner.BatchSize)
	}
	if cfg.Thresholds.RuleConfidence != 0.8 {
		t.Errorf("thresholds.rule_confidence = %v, want 0.8 (default)", cfg.Thresholds.RuleConfidence)
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, `{{{invalid yaml`)
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func validConfig() Config {
	return Config{
		Runner: RunnerConfig{
			BatchSize:         100,
			WorkerParallelism: 0,
			MaxRowRetries:     3,
			GraceWindow:       5 * time.Second,
			NameField:         "DirectorName",
		},
		Thresholds: ThresholdsConfig{
			RuleConfidence:     0.8,
			PhoneticConfidence: 0.65,
		},
		Learning: LearningConfig{
			DeactivationFloor:           0.6,
			DeactivationMinApplications: 20,
			DBPath:                      "./data/learning.db",
		},
		Store: StoreConfig{
			JobDBPath: "./data/jobs.db",
		},
		LLM: LLMConfig{
			PrimaryProvider:   "anthropic",
			MaxRetries:        3,
			RequestsPerSecond: 5,
			Burst:             5,
		},
	}
}

func TestValidate_BatchSizeZero(t *testing.T) {
	cfg := validConfig()
	cfg.Runner.BatchSize = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for batch_size = 0")
	}
}

func TestValidate_RuleConfidenceOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Thresholds.RuleConfidence = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for rule_confidence > 1")
	}
}

func TestValidate_PhoneticConfidenceNegative(t *testing.T) {
	cfg := validConfig()
	cfg.Thresholds.PhoneticConfidence = -0.1

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative phonetic_confidence")
	}
}

func TestValidate_DeactivationMinApplicationsZero(t *testing.T) {
	cfg := validConfig()
	cfg.Learning.DeactivationMinApplications = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for deactivation_min_applications = 0")
	}
}

func TestValidate_EmptyLearningDBPath(t *testing.T) {
	cfg := validConfig()
	cfg.Learning.DBPath = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty learning db_path")
	}
}

func TestValidate_EmptyNameField(t *testing.T) {
	cfg := validConfig()
	cfg.Runner.NameField = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty runner.name_field")
	}
}

func TestValidate_LLMEmptyPrimaryProvider(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.PrimaryProvider = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty llm.primary_provider")
	}
}

func TestValidate_LLMMaxRetriesZero(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.MaxRetries = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for llm.max_retries = 0")
	}
}

func TestValidate_ValidConfigPasses(t *testing.T) {
	cfg := validConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
