package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hjonck/leadscout/internal/domain"
	"github.com/hjonck/leadscout/internal/ingest/csv"
	"github.com/hjonck/leadscout/internal/runner"
)

// newRunCmd begins a new classification Job over an input CSV file.
//
// Flags:
//
//	--input    path to the input CSV (required; must carry a DirectorName column)
//	--output   path to write the result CSV to (required)
//	--held-by  identifier recorded on the Job's Lock (default: hostname)
//
// Exit codes: 0 = completed, 1 = error or interrupted before completion.
func newRunCmd() *cobra.Command {
	var input, output, heldBy string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a new classification job over an input CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(input, output, heldBy)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "path to input CSV (required)")
	cmd.Flags().StringVar(&output, "output", "", "path to output CSV (required)")
	cmd.Flags().StringVar(&heldBy, "held-by", defaultHeldBy(), "identifier recorded on the job's lock")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

func runJob(input, output, heldBy string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	fingerprint, err := fingerprintFile(input)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}

	source, err := csv.NewSource(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer source.Close()

	sink, err := csv.NewSink(output, source.InputColumns(), false)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	rnr := runner.New(c.jobs, c.orchestrator, runnerConfig(c.cfg.Runner), c.logger)

	summary, err := runWithGracefulShutdown(ctx, c.logger, c.cfg.Runner.GraceWindow,
		func(ctx context.Context) (domain.JobSummary, error) {
			return rnr.Run(ctx, input, fingerprint, output, heldBy, source, sink)
		})
	logSummary(c.logger, summary, err)
	return err
}

func defaultHeldBy() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "leadscout-cli"
	}
	return host
}

func logSummary(logger *slog.Logger, summary domain.JobSummary, err error) {
	if err != nil {
		logger.Error("job did not complete",
			slog.String("job_id", summary.JobID),
			slog.String("status", summary.Status.String()),
			slog.Int64("processed", summary.ProcessedCount),
			slog.Int64("failed", summary.FailedCount),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Info("job finished",
		slog.String("job_id", summary.JobID),
		slog.String("status", summary.Status.String()),
		slog.Int64("total_rows", summary.TotalRows),
		slog.Int64("processed", summary.ProcessedCount),
		slog.Int64("failed", summary.FailedCount),
		slog.Int64("retry_exhausted", summary.RetryExhausted),
		slog.Float64("cost_accum", summary.CostAccum),
	)
}
