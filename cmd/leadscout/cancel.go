package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hjonck/leadscout/internal/config"
	"github.com/hjonck/leadscout/internal/domain"
	"github.com/hjonck/leadscout/internal/jobstore"
)

// newCancelCmd marks a running job paused and leaves its Lock in place, so
// the job remains resumable via "resume" and a fresh "run" against the same
// input path is still rejected until the job is resumed to completion or
// ReleaseStaleLocks reclaims an abandoned lock.
//
// Flags:
//
//	--job-id  the job to cancel (required)
//	--reason  text recorded as the job's error summary
//
// Exit codes: 0 = success, 1 = error.
func newCancelCmd() *cobra.Command {
	var jobID, reason string

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Pause a running job, keeping its lock so it can be resumed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cancelJob(jobID, reason)
		},
	}
	cmd.Flags().StringVar(&jobID, "job-id", "", "job to cancel (required)")
	cmd.Flags().StringVar(&reason, "reason", "cancelled by operator", "reason recorded on the job")
	cmd.MarkFlagRequired("job-id")
	return cmd
}

func cancelJob(jobID, reason string) error {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	jobs, err := jobstore.Open(ctx, cfg.Store.JobDBPath)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer jobs.Close()

	job, err := jobs.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("job %s is already %s", jobID, job.Status)
	}

	if err := jobs.FinishJob(ctx, jobID, domain.JobStatusPaused, reason); err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	fmt.Printf("job %s cancelled\n", jobID)
	return nil
}
