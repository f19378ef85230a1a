package config

import "time"

// Config is the root configuration surface: every threshold and tunable
// the core reads once at start-up, read either from a YAML file or the
// environment, and never re-read afterwards.
type Config struct {
	Runner     RunnerConfig     `yaml:"runner"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Learning   LearningConfig   `yaml:"learning"`
	Store      StoreConfig      `yaml:"store"`
	LLM        LLMConfig        `yaml:"llm"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Log        LogConfig        `yaml:"log"`
}

// RunnerConfig bounds the Batch Runner's batching, concurrency, and
// shutdown behaviour.
type RunnerConfig struct {
	BatchSize         int           `yaml:"batch_size"          env:"RUNNER_BATCH_SIZE"          env-default:"100"`
	WorkerParallelism int           `yaml:"worker_parallelism"  env:"RUNNER_WORKER_PARALLELISM"  env-default:"0"`
	MaxRowRetries     int           `yaml:"max_row_retries"     env:"RUNNER_MAX_ROW_RETRIES"     env-default:"3"`
	GraceWindow       time.Duration `yaml:"grace_window"        env:"RUNNER_GRACE_WINDOW"        env-default:"5s"`
	NameField         string        `yaml:"name_field"          env:"RUNNER_NAME_FIELD"          env-default:"DirectorName"`
}

// ThresholdsConfig carries the minimum confidence each non-LLM cascade
// layer must clear before its Classification is accepted.
type ThresholdsConfig struct {
	RuleConfidence     float64 `yaml:"rule_confidence"     env:"THRESHOLD_RULE_CONFIDENCE"     env-default:"0.8"`
	PhoneticConfidence float64 `yaml:"phonetic_confidence" env:"THRESHOLD_PHONETIC_CONFIDENCE" env-default:"0.65"`
}

// LearningConfig configures the Learning Store's pattern-deactivation
// policy and the path of its single-file database.
type LearningConfig struct {
	DeactivationFloor           float64 `yaml:"deactivation_floor"            env:"LEARNING_DEACTIVATION_FLOOR"            env-default:"0.6"`
	DeactivationMinApplications int     `yaml:"deactivation_min_applications" env:"LEARNING_DEACTIVATION_MIN_APPLICATIONS" env-default:"20"`
	DBPath                      string  `yaml:"db_path"                       env:"LEARNING_DB_PATH"                       env-default:"./data/learning.db"`
}

// StoreConfig configures the Job Store's single-file database.
type StoreConfig struct {
	JobDBPath string `yaml:"job_db_path" env:"JOB_DB_PATH" env-default:"./data/jobs.db"`
}

// LLMConfig configures the LLM Client Adapter: which providers to use, how
// to reach them, and the rate/retry budget the adapter enforces per
// provider. Credentials are injected here; the core never reads the
// environment itself.
type LLMConfig struct {
	PrimaryProvider string `yaml:"primary_provider" env:"LLM_PRIMARY_PROVIDER" env-default:"anthropic"`
	AnthropicAPIKey string `yaml:"anthropic_api_key" env:"LLM_ANTHROPIC_API_KEY"`
	AnthropicModel  string `yaml:"anthropic_model"  env:"LLM_ANTHROPIC_MODEL"  env-default:"claude-haiku-4-5"`

	SecondaryProvider string `yaml:"secondary_provider"  env:"LLM_SECONDARY_PROVIDER"`
	SecondaryBaseURL  string `yaml:"secondary_base_url"  env:"LLM_SECONDARY_BASE_URL"`
	SecondaryAPIKey   string `yaml:"secondary_api_key"   env:"LLM_SECONDARY_API_KEY"`
	SecondaryModel    string `yaml:"secondary_model"     env:"LLM_SECONDARY_MODEL"`

	PerAttemptTimeout time.Duration `yaml:"per_attempt_timeout" env:"LLM_PER_ATTEMPT_TIMEOUT" env-default:"20s"`
	MaxRetries        int           `yaml:"max_retries"         env:"LLM_MAX_RETRIES"         env-default:"3"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"LLM_REQUESTS_PER_SECOND" env-default:"5"`
	Burst             int           `yaml:"burst"               env:"LLM_BURST"               env-default:"5"`
}

// HasSecondary reports whether a secondary provider is configured for
// failover.
func (c LLMConfig) HasSecondary() bool { return c.SecondaryProvider != "" }

// DictionaryConfig optionally overrides the compiled-in seed dictionary.
type DictionaryConfig struct {
	DataDir string `yaml:"data_dir" env:"DICTIONARY_DATA_DIR"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
