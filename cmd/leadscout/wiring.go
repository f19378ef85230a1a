// Command leadscout is the batch lead-classification CLI: it wires the
// dictionary, Learning Store, LLM Client Adapter, Classifier Orchestrator,
// Job Store, and Batch Runner together behind a small set of subcommands.
// None of internal/* imports cobra; this package is the only collaborator
// that does.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hjonck/leadscout/internal/applog"
	classphonetic "github.com/hjonck/leadscout/internal/classify/phonetic"
	"github.com/hjonck/leadscout/internal/classify/rule"
	"github.com/hjonck/leadscout/internal/config"
	"github.com/hjonck/leadscout/internal/dictionary"
	"github.com/hjonck/leadscout/internal/domain"
	"github.com/hjonck/leadscout/internal/jobstore"
	"github.com/hjonck/leadscout/internal/learning"
	"github.com/hjonck/leadscout/internal/llmclient"
	"github.com/hjonck/leadscout/internal/orchestrate"
	"github.com/hjonck/leadscout/internal/runner"
)

// core bundles every long-lived component a job needs, closed together via
// Close once the command is done with them.
type core struct {
	cfg          config.Config
	logger       *slog.Logger
	learningDB   *learning.Store
	jobs         *jobstore.Store
	orchestrator *orchestrate.Orchestrator
}

func (c *core) Close() {
	if c.learningDB != nil {
		_ = c.learningDB.Close()
	}
	if c.jobs != nil {
		_ = c.jobs.Close()
	}
}

// buildCore loads configuration, initialises logging, and assembles the
// classifier cascade and both SQLite stores. Every subcommand that touches
// the cascade or the Job Store starts here.
func buildCore(ctx context.Context) (*core, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := applog.New(cfg.Log)

	dict, err := loadDictionary(cfg.Dictionary)
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}

	learningDB, err := learning.Open(ctx, cfg.Learning.DBPath, learning.DeactivationPolicy{
		Floor:           cfg.Learning.DeactivationFloor,
		MinApplications: cfg.Learning.DeactivationMinApplications,
	})
	if err != nil {
		return nil, fmt.Errorf("open learning store: %w", err)
	}

	jobs, err := jobstore.Open(ctx, cfg.Store.JobDBPath)
	if err != nil {
		learningDB.Close()
		return nil, fmt.Errorf("open job store: %w", err)
	}

	ruleClassifier := rule.New(dict)
	phoneticClassifier := classphonetic.New(learningDB)

	llmAdapter, err := buildLLMAdapter(cfg.LLM)
	if err != nil {
		learningDB.Close()
		jobs.Close()
		return nil, fmt.Errorf("build llm adapter: %w", err)
	}

	thresholds := domain.Thresholds{
		RuleConfidence:     cfg.Thresholds.RuleConfidence,
		PhoneticConfidence: cfg.Thresholds.PhoneticConfidence,
	}
	orchestrator := orchestrate.New(learningDB, ruleClassifier, phoneticClassifier, llmAdapter, thresholds)

	logger.Info("core initialised",
		slog.String("learning_db", cfg.Learning.DBPath),
		slog.String("job_db", cfg.Store.JobDBPath),
		slog.String("llm_primary", cfg.LLM.PrimaryProvider),
		slog.Bool("llm_secondary_configured", cfg.LLM.HasSecondary()),
	)

	return &core{cfg: *cfg, logger: logger, learningDB: learningDB, jobs: jobs, orchestrator: orchestrator}, nil
}

func loadDictionary(cfg config.DictionaryConfig) (*dictionary.Store, error) {
	if cfg.DataDir == "" {
		return dictionary.Load()
	}
	var fsys fs.FS = os.DirFS(cfg.DataDir)
	return dictionary.LoadFromFS(fsys)
}

func buildLLMAdapter(cfg config.LLMConfig) (*llmclient.Adapter, error) {
	adapterCfg := llmclient.Config{
		MaxRetries:        cfg.MaxRetries,
		PerAttemptTimeout: cfg.PerAttemptTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}

	var primary llmclient.Provider
	switch cfg.PrimaryProvider {
	case "anthropic":
		client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
		primary = llmclient.NewAnthropicProvider(client, cfg.AnthropicModel, "anthropic")
	case "openai_compat":
		primary = llmclient.NewOpenAICompatProvider(&http.Client{Timeout: cfg.PerAttemptTimeout},
			cfg.SecondaryBaseURL, cfg.SecondaryAPIKey, cfg.SecondaryModel, "openai_compat")
	default:
		return nil, fmt.Errorf("unknown llm.primary_provider %q", cfg.PrimaryProvider)
	}

	var secondary llmclient.Provider
	if cfg.HasSecondary() {
		switch cfg.SecondaryProvider {
		case "anthropic":
			client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
			secondary = llmclient.NewAnthropicProvider(client, cfg.AnthropicModel, "anthropic")
		case "openai_compat":
			secondary = llmclient.NewOpenAICompatProvider(&http.Client{Timeout: cfg.PerAttemptTimeout},
				cfg.SecondaryBaseURL, cfg.SecondaryAPIKey, cfg.SecondaryModel, "openai_compat")
		default:
			return nil, fmt.Errorf("unknown llm.secondary_provider %q", cfg.SecondaryProvider)
		}
	}

	return llmclient.New(primary, secondary, adapterCfg), nil
}

func runnerConfig(cfg config.RunnerConfig) runner.Config {
	rc := runner.DefaultConfig()
	rc.BatchSize = cfg.BatchSize
	rc.WorkerParallelism = cfg.WorkerParallelism
	rc.MaxRowRetries = cfg.MaxRowRetries
	rc.NameField = cfg.NameField
	if rc.WorkerParallelism == 0 {
		rc.WorkerParallelism = 1
	}
	return rc
}

// fingerprintFile is an opaque, cheap stand-in for a content hash: size
// plus modification time, good enough to detect "this isn't the file the
// job was started against" without reading gigabytes of CSV twice.
func fingerprintFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano()), nil
}

// runWithGracefulShutdown cancels ctx on SIGINT/SIGTERM and gives the
// in-flight batch up to gracePeriod to commit before forcing the process to
// exit, so a partially-committed batch is never left holding a stale Lock
// longer than necessary.
func runWithGracefulShutdown(ctx context.Context, logger *slog.Logger, gracePeriod time.Duration, fn func(context.Context) (domain.JobSummary, error)) (domain.JobSummary, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		logger.Warn("shutdown signal received, waiting for in-flight batch to commit",
			slog.Duration("grace_window", gracePeriod))
		select {
		case <-done:
		case <-time.After(gracePeriod):
			logger.Error("grace window exceeded, forcing exit")
			os.Exit(1)
		}
	}()
	summary, err := fn(ctx)
	close(done)
	return summary, err
}
