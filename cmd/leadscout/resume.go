package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hjonck/leadscout/internal/domain"
	"github.com/hjonck/leadscout/internal/ingest/csv"
	"github.com/hjonck/leadscout/internal/runner"
)

// newResumeCmd continues the most recent running or paused Job for an input
// CSV file, replaying already-processed rows before resuming from the first
// unprocessed one.
//
// Flags:
//
//	--input   path to the same input CSV the original run used (required)
//	--output  path to the output CSV; appended to rather than truncated (required)
//
// Exit codes: 0 = completed, 1 = error or interrupted before completion.
func newResumeCmd() *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume the running or paused job for an input CSV after an interruption",
		RunE: func(cmd *cobra.Command, args []string) error {
			return resumeJob(input, output)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "path to input CSV (required)")
	cmd.Flags().StringVar(&output, "output", "", "path to output CSV to append to (required)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

func resumeJob(input, output string) error {
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

	sink, err := csv.NewSink(output, source.InputColumns(), true)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	rnr := runner.New(c.jobs, c.orchestrator, runnerConfig(c.cfg.Runner), c.logger)

	summary, err := runWithGracefulShutdown(ctx, c.logger, c.cfg.Runner.GraceWindow,
		func(ctx context.Context) (domain.JobSummary, error) {
			return rnr.Resume(ctx, input, fingerprint, source, sink)
		})
	logSummary(c.logger, summary, err)
	return err
}
