// Package runner drives a RowSource through the Classifier Orchestrator in
// durably committed batches, resumable after interruption via the Job
// Store.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/hjonck/leadscout/internal/domain"
	"github.com/hjonck/leadscout/internal/jobstore"
	"github.com/hjonck/leadscout/internal/orchestrate"
	"github.com/hjonck/leadscout/pkg/ctxutil"
)

// Config bounds the Runner's batching, concurrency, and retry behaviour.
type Config struct {
	BatchSize         int
	WorkerParallelism int
	MaxRowRetries     int
	NameField         string // the input_fields key holding the name to classify
}

func DefaultConfig() Config {
	return Config{BatchSize: 100, WorkerParallelism: 8, MaxRowRetries: 3, NameField: "name"}
}

// Runner is the Batch Runner.
type Runner struct {
	jobs         *jobstore.Store
	orchestrator *orchestrate.Orchestrator
	cfg          Config
	logger       *slog.Logger
}

func New(jobs *jobstore.Store, orchestrator *orchestrate.Orchestrator, cfg Config, logger *slog.Logger) *Runner {
	return &Runner{jobs: jobs, orchestrator: orchestrator, cfg: cfg, logger: logger}
}

// Run begins a new Job for inputPath and drives it to completion or
// interruption.
func (r *Runner) Run(ctx context.Context, inputPath, inputFingerprint, outputPath, heldBy string, source RowSource, sink RowSink) (domain.JobSummary, error) {
	jobID, err := r.jobs.BeginJob(ctx, inputPath, inputFingerprint, outputPath, r.cfg.BatchSize, heldBy)
	if err != nil {
		return domain.JobSummary{}, fmt.Errorf("runner: begin_job: %w", err)
	}
	return r.drive(ctx, jobID, 0, source, sink)
}

// Resume finds the most recent non-terminal Job for inputPath whose
// recorded fingerprint matches inputFingerprint, replays source.Next once per
// committed row (ProcessedCount plus FailedCount, since CommitBatch counts
// failed rows separately) to reach the first unprocessed row — never
// LastCommittedBatch*BatchSize, since a crash mid-batch can leave fewer rows
// committed than a full batch accounts for — and continues from the next
// batch index.
func (r *Runner) Resume(ctx context.Context, inputPath, inputFingerprint string, source RowSource, sink RowSink) (domain.JobSummary, error) {
	jobID, lastCommittedBatch, processedCount, err := r.jobs.ResumeJob(ctx, inputPath, inputFingerprint)
	if err != nil {
		return domain.JobSummary{}, fmt.Errorf("runner: resume_job: %w", err)
	}
	job, err := r.jobs.GetJob(ctx, jobID)
	if err != nil {
		return domain.JobSummary{}, fmt.Errorf("runner: get_job: %w", err)
	}
	committedRows := processedCount + job.FailedCount
	for i := int64(0); i < committedRows; i++ {
		if _, err := source.Next(ctx); err != nil {
			return domain.JobSummary{}, fmt.Errorf("runner: replay %d already-committed rows: %w", committedRows, err)
		}
	}
	return r.drive(ctx, jobID, lastCommittedBatch+1, source, sink)
}

func (r *Runner) drive(ctx context.Context, jobID string, startBatchIndex int, source RowSource, sink RowSink) (domain.JobSummary, error) {
	summary := domain.JobSummary{
		JobID:           jobID,
		Status:          domain.JobStatusRunning,
		ErrorKindCounts: make(map[domain.ErrorKind]int64),
		StartedAt:       time.Now().UTC(),
	}
	if total, ok := source.TotalRows(); ok {
		summary.TotalRows = total
	}

	batchIndex := startBatchIndex
	for {
		rows, readErr := r.readBatch(ctx, source)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			r.abandon(ctx, jobID, readErr)
			return summary, fmt.Errorf("runner: read batch %d: %w", batchIndex, readErr)
		}

		if len(rows) > 0 {
			results := r.processBatch(ctx, jobID, batchIndex, rows)
			if err := r.jobs.CommitBatch(ctx, jobID, batchIndex, results); err != nil {
				r.abandon(ctx, jobID, err)
				return summary, fmt.Errorf("runner: commit_batch %d: %w", batchIndex, err)
			}
			for _, res := range results {
				if err := sink.Write(ctx, res); err != nil {
					return summary, fmt.Errorf("runner: write result row %d: %w", res.RowIndex, err)
				}
				tally(&summary, res)
			}
			batchIndex++
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
	}

	if err := sink.Close(); err != nil {
		return summary, fmt.Errorf("runner: close sink: %w", err)
	}
	if err := r.jobs.FinishJob(ctx, jobID, domain.JobStatusCompleted, ""); err != nil {
		return summary, fmt.Errorf("runner: finish_job: %w", err)
	}

	summary.Status = domain.JobStatusCompleted
	summary.CompletedAt = time.Now().UTC()
	return summary, nil
}

func tally(summary *domain.JobSummary, res domain.LeadResult) {
	switch res.ProcessingStatus {
	case domain.ProcessingStatusSuccess:
		summary.ProcessedCount++
	case domain.ProcessingStatusRetryExhausted:
		summary.RetryExhausted++
		summary.FailedCount++
	default:
		summary.FailedCount++
	}
	if res.ErrorKind != domain.ErrorKindNone {
		summary.ErrorKindCounts[res.ErrorKind]++
	}
	summary.CostAccum += res.Cost
	summary.TimeAccumMS += res.LatencyMS
}

func (r *Runner) abandon(ctx context.Context, jobID string, cause error) {
	_ = r.jobs.FinishJob(ctx, jobID, domain.JobStatusFailed, cause.Error())
}

func (r *Runner) readBatch(ctx context.Context, source RowSource) ([]Row, error) {
	rows := make([]Row, 0, r.cfg.BatchSize)
	for i := 0; i < r.cfg.BatchSize; i++ {
		row, err := source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return rows, io.EOF
			}
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// processBatch runs the network-free cascade layers concurrently across the
// batch, then makes a single sequential pass over whatever rows abstained,
// re-running the network-free layers for each before calling the LLM, so
// the LLM layer's immediate learning is visible row-by-row within that
// pass instead of racing.
func (r *Runner) processBatch(ctx context.Context, jobID string, batchIndex int, rows []Row) []domain.LeadResult {
	results := make([]domain.LeadResult, len(rows))
	fastNames := make([]domain.NormalisedName, len(rows))

	var needsLLMMu sync.Mutex
	var needsLLM []int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.WorkerParallelism)

	for i, row := range rows {
		i, row := i, row
		rowCtx := ctxutil.WithRowIndex(ctxutil.WithJobID(gctx, jobID), row.Index)
		g.Go(func() error {
			start := time.Now()
			c, n, ok, err := r.orchestrator.ClassifyFast(rowCtx, row.Fields[r.cfg.NameField])
			latencyMS := time.Since(start).Milliseconds()

			if err != nil {
				kind := c.ErrorKind
				if kind == domain.ErrorKindNone {
					kind = domain.ErrorKindStoreIO
				}
				r.logRowError(rowCtx, kind, err)
				results[i] = errorResult(jobID, row, batchIndex, kind, err, latencyMS, 0, c)
				return nil
			}
			if ok {
				results[i] = successResult(jobID, row, batchIndex, c, latencyMS)
				return nil
			}

			fastNames[i] = n
			needsLLMMu.Lock()
			needsLLM = append(needsLLM, i)
			needsLLMMu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // every g.Go above returns nil; row failures are captured in results, not propagated

	sort.Ints(needsLLM)
	for _, i := range needsLLM {
		row := rows[i]
		rowCtx := ctxutil.WithRowIndex(ctxutil.WithJobID(ctx, jobID), row.Index)
		start := time.Now()
		if c, _, ok, err := r.orchestrator.ClassifyFast(rowCtx, row.Fields[r.cfg.NameField]); err == nil && ok {
			results[i] = successResult(jobID, row, batchIndex, c, time.Since(start).Milliseconds())
			continue
		}
		c, err := r.classifyViaLLMWithRetry(rowCtx, fastNames[i])
		latencyMS := time.Since(start).Milliseconds()

		if err != nil {
			kind := c.ErrorKind
			if kind == domain.ErrorKindNone {
				kind = domain.ErrorKindStoreIO
			}
			r.logRowError(rowCtx, kind, err)
			results[i] = errorResult(jobID, row, batchIndex, kind, err, latencyMS, r.cfg.MaxRowRetries, c)
			continue
		}
		results[i] = successResult(jobID, row, batchIndex, c, latencyMS)
	}

	return results
}

// classifyViaLLMWithRetry retries a retryable LLM failure up to
// cfg.MaxRowRetries times with exponential backoff before giving up.
func (r *Runner) classifyViaLLMWithRetry(ctx context.Context, n domain.NormalisedName) (domain.Classification, error) {
	var result domain.Classification
	var lastFailure domain.Classification

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(r.cfg.MaxRowRetries))
	operation := func() error {
		c, err := r.orchestrator.ClassifyViaLLM(ctx, n)
		if err == nil {
			result = c
			return nil
		}
		lastFailure = c
		if !c.ErrorKind.Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return lastFailure, err
	}
	return result, nil
}

// logRowError reports a row-level classification failure with the Job ID
// and row index ctx carries, so failures across a batch's concurrent and
// sequential passes attribute back to the same correlation an operator
// sees in the Job Store.
func (r *Runner) logRowError(ctx context.Context, kind domain.ErrorKind, err error) {
	if r.logger == nil {
		return
	}
	rowIndex, _ := ctxutil.RowIndexFromCtx(ctx)
	r.logger.ErrorContext(ctx, "row classification failed",
		slog.String("job_id", ctxutil.JobIDFromCtx(ctx)),
		slog.Int64("row_index", rowIndex),
		slog.String("error_kind", string(kind)),
		slog.String("error", err.Error()))
}

func successResult(jobID string, row Row, batchIndex int, c domain.Classification, latencyMS int64) domain.LeadResult {
	classification := c
	return domain.LeadResult{
		JobID:            jobID,
		RowIndex:         row.Index,
		BatchIndex:       batchIndex,
		InputFields:      row.Fields,
		Classification:   &classification,
		ProcessingStatus: domain.ProcessingStatusSuccess,
		LatencyMS:        latencyMS,
		Method:           c.Method,
		Provider:         c.Provider,
	}
}

func errorResult(jobID string, row Row, batchIndex int, kind domain.ErrorKind, err error, latencyMS int64, retryCount int, c domain.Classification) domain.LeadResult {
	status := domain.ProcessingStatusFailed
	if kind.Retryable() {
		status = domain.ProcessingStatusRetryExhausted
	}
	result := domain.LeadResult{
		JobID:            jobID,
		RowIndex:         row.Index,
		BatchIndex:       batchIndex,
		InputFields:      row.Fields,
		ProcessingStatus: status,
		RetryCount:       retryCount,
		ErrorKind:        kind,
		ErrorMessage:     err.Error(),
		LatencyMS:        latencyMS,
		Method:           c.Method,
		Provider:         c.Provider,
	}
	if c.Category != "" {
		classification := c
		result.Classification = &classification
	}
	return result
}
