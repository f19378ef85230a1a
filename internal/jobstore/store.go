// Package jobstore is the durable store of Jobs, Lead Results, and Locks
// that the Batch Runner uses to commit progress and resume after an
// interruption.
package jobstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/hjonck/leadscout/internal/domain"
	"github.com/hjonck/leadscout/internal/sqlstore"
)

//go:embed migrations
var migrations embed.FS

var sq = squirrel.StatementBuilderType(squirrel.NewStatementBuilder(squirrel.Question))

// Store is the Job Store. Unlike the Learning Store, it has no
// process-wide write serialiser of its own: the Runner guarantees exactly
// one Runner instance per job, so commits for a given job are already
// sequential at the caller.
type Store struct {
	db *sql.DB
	tx *sqlstore.TxManager
}

func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlstore.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := sqlstore.Migrate(ctx, db, migrations); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, tx: sqlstore.NewTxManager(db)}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// BeginJob atomically verifies no conflicting Lock exists and no earlier
// Job for inputPath used a different fingerprint, then creates a new Job
// in the running state with its Lock.
func (s *Store) BeginJob(ctx context.Context, inputPath, inputFingerprint, outputPath string, batchSize int, heldBy string) (jobID string, err error) {
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var lockJobID, lockStatus string
		lockQuery := `SELECT job_locks.job_id, job_executions.status FROM job_locks
JOIN job_executions ON job_executions.job_id = job_locks.job_id
WHERE job_locks.input_path = ?`
		row := sqlstore.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, lockQuery, inputPath)
		switch err := row.Scan(&lockJobID, &lockStatus); {
		case err == nil:
			if !domain.JobStatus(lockStatus).IsTerminal() {
				return domain.ErrConcurrentJob
			}
		case err != sql.ErrNoRows:
			return fmt.Errorf("jobstore: check existing lock: %w", err)
		}

		var latestFingerprint string
		latestQuery := `SELECT input_fingerprint FROM job_executions WHERE input_path = ? ORDER BY started_at DESC LIMIT 1`
		row = sqlstore.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, latestQuery, inputPath)
		switch err := row.Scan(&latestFingerprint); {
		case err == nil:
			if latestFingerprint != inputFingerprint {
				return domain.ErrInputChanged
			}
		case err != sql.ErrNoRows:
			return fmt.Errorf("jobstore: check latest fingerprint: %w", err)
		}

		jobID = uuid.NewString()
		insertJob := sq.Insert("job_executions").
			Columns("job_id", "input_path", "input_fingerprint", "output_path", "batch_size",
				"last_committed_batch", "processed_count", "failed_count", "status", "started_at", "cost_accum", "time_accum_ms").
			Values(jobID, inputPath, inputFingerprint, outputPath, batchSize, -1, 0, 0, string(domain.JobStatusRunning), now(ctx), 0, 0)
		query, args, err := insertJob.ToSql()
		if err != nil {
			return fmt.Errorf("jobstore: build insert job_executions: %w", err)
		}
		if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("jobstore: insert job_executions: %w", err)
		}

		insertLock := sq.Insert("job_locks").
			Columns("input_path", "job_id", "held_by", "acquired_at").
			Values(inputPath, jobID, heldBy, now(ctx))
		query, args, err = insertLock.ToSql()
		if err != nil {
			return fmt.Errorf("jobstore: build insert job_locks: %w", err)
		}
		if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("jobstore: insert job_locks: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return jobID, nil
}

// ResumeJob finds the most recent non-terminal (running or paused) Job for
// inputPath whose recorded fingerprint matches inputFingerprint, mirroring
// the fingerprint check BeginJob performs before starting a new Job.
func (s *Store) ResumeJob(ctx context.Context, inputPath, inputFingerprint string) (jobID string, lastCommittedBatch int, processedCount int64, err error) {
	query := `SELECT job_id, input_fingerprint, last_committed_batch, processed_count FROM job_executions
WHERE input_path = ? AND status IN (?, ?) ORDER BY started_at DESC LIMIT 1`
	row := sqlstore.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, query, inputPath,
		string(domain.JobStatusRunning), string(domain.JobStatusPaused))
	var storedFingerprint string
	if err := row.Scan(&jobID, &storedFingerprint, &lastCommittedBatch, &processedCount); err != nil {
		if err == sql.ErrNoRows {
			return "", 0, 0, domain.ErrNotFound
		}
		return "", 0, 0, fmt.Errorf("jobstore: resume_job: %w", err)
	}
	if storedFingerprint != inputFingerprint {
		return "", 0, 0, domain.ErrInputChanged
	}
	return jobID, lastCommittedBatch, processedCount, nil
}

// CommitBatch atomically writes every Lead Result for batchIndex and
// advances the Job's progress counters. This is the sole durability
// boundary for progress: anything not yet in a committed batch is
// unprocessed as far as resume is concerned.
func (s *Store) CommitBatch(ctx context.Context, jobID string, batchIndex int, results []domain.LeadResult) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var successCount, failedCount int64
		var costDelta float64
		var timeDelta int64

		for _, r := range results {
			fieldsJSON, err := json.Marshal(r.InputFields)
			if err != nil {
				return fmt.Errorf("jobstore: marshal input_fields for row %d: %w", r.RowIndex, err)
			}

			var category, method, provider *string
			var confidence *float64
			if r.Classification != nil {
				c := string(r.Classification.Category)
				m := string(r.Classification.Method)
				category, method = &c, &m
				if r.Classification.Provider != "" {
					provider = &r.Classification.Provider
				}
				confidence = &r.Classification.Confidence
			}
			var errorKind, errorMessage *string
			if r.ErrorKind != domain.ErrorKindNone {
				ek := string(r.ErrorKind)
				errorKind = &ek
			}
			if r.ErrorMessage != "" {
				errorMessage = &r.ErrorMessage
			}

			insert := sq.Insert("lead_processing_results").
				Columns("job_id", "row_index", "batch_index", "input_fields", "category", "confidence",
					"method", "provider", "processing_status", "retry_count", "error_kind", "error_message",
					"latency_ms", "cost").
				Values(jobID, r.RowIndex, batchIndex, string(fieldsJSON), category, confidence, method,
					provider, string(r.ProcessingStatus), r.RetryCount, errorKind, errorMessage, r.LatencyMS, r.Cost)
			query, args, err := insert.ToSql()
			if err != nil {
				return fmt.Errorf("jobstore: build insert lead_processing_results: %w", err)
			}
			if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("jobstore: insert lead_processing_results row %d: %w", r.RowIndex, err)
			}

			switch r.ProcessingStatus {
			case domain.ProcessingStatusSuccess:
				successCount++
			default:
				failedCount++
			}
			costDelta += r.Cost
			timeDelta += r.LatencyMS
		}

		update := `UPDATE job_executions SET
  last_committed_batch = MAX(last_committed_batch, ?),
  processed_count = processed_count + ?,
  failed_count = failed_count + ?,
  cost_accum = cost_accum + ?,
  time_accum_ms = time_accum_ms + ?
WHERE job_id = ?`
		if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, update, batchIndex, successCount, failedCount, costDelta, timeDelta, jobID); err != nil {
			return fmt.Errorf("jobstore: update job_executions progress: %w", err)
		}
		return nil
	})
}

// FinishJob transitions a Job to status, recording errorSummary if given.
// The Lock is released — and completed_at stamped — only when status is
// terminal (completed/failed); a non-terminal transition like pausing a Job
// leaves its Lock in place, since the Job is still resumable and another
// run must not start against the same input while it is.
func (s *Store) FinishJob(ctx context.Context, jobID string, status domain.JobStatus, errorSummary string) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var summary *string
		if errorSummary != "" {
			summary = &errorSummary
		}
		if !status.IsTerminal() {
			update := `UPDATE job_executions SET status = ?, error_summary = ? WHERE job_id = ?`
			if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, update, string(status), summary, jobID); err != nil {
				return fmt.Errorf("jobstore: finish_job update: %w", err)
			}
			return nil
		}

		update := `UPDATE job_executions SET status = ?, completed_at = ?, error_summary = ? WHERE job_id = ?`
		if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, update, string(status), now(ctx), summary, jobID); err != nil {
			return fmt.Errorf("jobstore: finish_job update: %w", err)
		}
		if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, `DELETE FROM job_locks WHERE job_id = ?`, jobID); err != nil {
			return fmt.Errorf("jobstore: finish_job release lock: %w", err)
		}
		return nil
	})
}

// ReleaseStaleLocks removes Locks older than ageThreshold whose Job is not
// running.
func (s *Store) ReleaseStaleLocks(ctx context.Context, ageThreshold time.Duration) (int64, error) {
	cutoff := now(ctx).Add(-ageThreshold)
	query := `DELETE FROM job_locks WHERE acquired_at < ? AND job_id IN (
  SELECT job_id FROM job_executions WHERE status != ?
)`
	res, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, query, cutoff, string(domain.JobStatusRunning))
	if err != nil {
		return 0, fmt.Errorf("jobstore: release_stale_locks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("jobstore: release_stale_locks rows affected: %w", err)
	}
	return n, nil
}

// GetJob returns the current state of a single Job.
func (s *Store) GetJob(ctx context.Context, jobID string) (domain.Job, error) {
	query := `SELECT job_id, input_path, input_fingerprint, output_path, batch_size, total_rows,
last_committed_batch, processed_count, failed_count, status, started_at, completed_at,
cost_accum, time_accum_ms, error_summary
FROM job_executions WHERE job_id = ?`
	row := sqlstore.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, query, jobID)
	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Job{}, domain.ErrNotFound
		}
		return domain.Job{}, fmt.Errorf("jobstore: get_job: %w", err)
	}
	return job, nil
}

// ListJobs returns every Job, most recently started first.
func (s *Store) ListJobs(ctx context.Context) ([]domain.Job, error) {
	query := `SELECT job_id, input_path, input_fingerprint, output_path, batch_size, total_rows,
last_committed_batch, processed_count, failed_count, status, started_at, completed_at,
cost_accum, time_accum_ms, error_summary
FROM job_executions ORDER BY started_at DESC`
	rows, err := sqlstore.QuerierFromCtx(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("jobstore: list_jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("jobstore: list_jobs scan: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("jobstore: list_jobs: %w", err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (domain.Job, error) {
	var j domain.Job
	var status string
	var completedAt sql.NullTime
	var errorSummary sql.NullString
	err := row.Scan(&j.JobID, &j.InputPath, &j.InputFingerprint, &j.OutputPath, &j.BatchSize, &j.TotalRows,
		&j.LastCommittedBatch, &j.ProcessedCount, &j.FailedCount, &status, &j.StartedAt, &completedAt,
		&j.CostAccum, &j.TimeAccumMS, &errorSummary)
	if err != nil {
		return domain.Job{}, err
	}
	j.Status = domain.JobStatus(status)
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	j.ErrorSummary = errorSummary.String
	return j, nil
}

// ListResults returns every committed Lead Result for a Job, ordered by
// RowIndex, for export after a run completes.
func (s *Store) ListResults(ctx context.Context, jobID string) ([]domain.LeadResult, error) {
	query := `SELECT row_index, batch_index, input_fields, category, confidence, method, provider,
processing_status, retry_count, error_kind, error_message, latency_ms, cost
FROM lead_processing_results WHERE job_id = ? ORDER BY row_index`
	rows, err := sqlstore.QuerierFromCtx(ctx, s.db).QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("jobstore: list_results: %w", err)
	}
	defer rows.Close()

	var results []domain.LeadResult
	for rows.Next() {
		var r domain.LeadResult
		var fieldsJSON, processingStatus string
		var category, method, provider, errorKind, errorMessage sql.NullString
		var confidence sql.NullFloat64
		r.JobID = jobID
		if err := rows.Scan(&r.RowIndex, &r.BatchIndex, &fieldsJSON, &category, &confidence, &method,
			&provider, &processingStatus, &r.RetryCount, &errorKind, &errorMessage, &r.LatencyMS, &r.Cost); err != nil {
			return nil, fmt.Errorf("jobstore: list_results scan: %w", err)
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &r.InputFields); err != nil {
			return nil, fmt.Errorf("jobstore: list_results unmarshal input_fields for row %d: %w", r.RowIndex, err)
		}
		r.ProcessingStatus = domain.ProcessingStatus(processingStatus)
		r.ErrorKind = domain.ErrorKind(errorKind.String)
		r.ErrorMessage = errorMessage.String
		if category.Valid {
			r.Classification = &domain.Classification{
				Category:   domain.Category(category.String),
				Confidence: confidence.Float64,
				Method:     domain.Method(method.String),
				Provider:   provider.String,
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("jobstore: list_results: %w", err)
	}
	return results, nil
}

type clockCtxKey struct{}

func now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(clockCtxKey{}).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}

// WithClock overrides now() for deterministic tests.
func WithClock(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, clockCtxKey{}, t)
}
