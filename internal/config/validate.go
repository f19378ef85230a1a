package config

import "fmt"

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Runner.validate(); err != nil {
		return fmt.Errorf("runner: %w", err)
	}
	if err := c.Thresholds.validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if err := c.Learning.validate(); err != nil {
		return fmt.Errorf("learning: %w", err)
	}
	if err := c.LLM.validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	return nil
}

func (r RunnerConfig) validate() error {
	if r.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", r.BatchSize)
	}
	if r.WorkerParallelism < 0 {
		return fmt.Errorf("worker_parallelism must be >= 0 (got %d)", r.WorkerParallelism)
	}
	if r.MaxRowRetries < 0 {
		return fmt.Errorf("max_row_retries must be >= 0 (got %d)", r.MaxRowRetries)
	}
	if r.NameField == "" {
		return fmt.Errorf("name_field must not be empty")
	}
	return nil
}

func validUnitInterval(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0,1] (got %v)", name, v)
	}
	return nil
}

func (t ThresholdsConfig) validate() error {
	if err := validUnitInterval("rule_confidence", t.RuleConfidence); err != nil {
		return err
	}
	if err := validUnitInterval("phonetic_confidence", t.PhoneticConfidence); err != nil {
		return err
	}
	return nil
}

func (l LearningConfig) validate() error {
	if err := validUnitInterval("deactivation_floor", l.DeactivationFloor); err != nil {
		return err
	}
	if l.DeactivationMinApplications < 1 {
		return fmt.Errorf("deactivation_min_applications must be >= 1 (got %d)", l.DeactivationMinApplications)
	}
	if l.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	return nil
}

func (c LLMConfig) validate() error {
	if c.PrimaryProvider == "" {
		return fmt.Errorf("primary_provider must not be empty")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be >= 1 (got %d)", c.MaxRetries)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be > 0 (got %v)", c.RequestsPerSecond)
	}
	if c.Burst <= 0 {
		return fmt.Errorf("burst must be > 0 (got %d)", c.Burst)
	}
	return nil
}
