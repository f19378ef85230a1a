package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hjonck/leadscout/internal/config"
	"github.com/hjonck/leadscout/internal/domain"
	"github.com/hjonck/leadscout/internal/jobstore"
)

// newExportCmd re-exports every committed Lead Result for a job to a CSV
// file, independent of whatever output file the original run was writing
// to — useful for recovering results after a crash between batches and a
// resume, or for producing a second copy in a different location.
//
// Flags:
//
//	--job-id  the job to export (required)
//	--output  path to write the export CSV to (required)
//
// Exit codes: 0 = success, 1 = error.
func newExportCmd() *cobra.Command {
	var jobID, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every committed lead result for a job to a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportJob(jobID, output)
		},
	}
	cmd.Flags().StringVar(&jobID, "job-id", "", "job to export (required)")
	cmd.Flags().StringVar(&output, "output", "", "path to write export CSV to (required)")
	cmd.MarkFlagRequired("job-id")
	cmd.MarkFlagRequired("output")
	return cmd
}

func exportJob(jobID, output string) error {
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

	if _, err := jobs.GetJob(ctx, jobID); err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	results, err := jobs.ListResults(ctx, jobID)
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	inputColumns := inputColumnsOf(results)
	header := append(append([]string{}, inputColumns...),
		"category", "confidence", "method", "provider", "processing_status", "error_kind", "error_message", "latency_ms")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range results {
		record := make([]string, 0, len(header))
		for _, col := range inputColumns {
			record = append(record, r.InputFields[col])
		}
		record = append(record, exportResultFields(r)...)
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", r.RowIndex, err)
		}
	}
	w.Flush()
	return w.Error()
}

func inputColumnsOf(results []domain.LeadResult) []string {
	if len(results) == 0 {
		return nil
	}
	cols := make([]string, 0, len(results[0].InputFields))
	for k := range results[0].InputFields {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func exportResultFields(r domain.LeadResult) []string {
	var category, confidence, method, provider string
	if r.Classification != nil {
		category = string(r.Classification.Category)
		confidence = strconv.FormatFloat(r.Classification.Confidence, 'f', 4, 64)
		method = string(r.Classification.Method)
		provider = r.Classification.Provider
	}
	return []string{
		category, confidence, method, provider,
		string(r.ProcessingStatus), string(r.ErrorKind), r.ErrorMessage, strconv.FormatInt(r.LatencyMS, 10),
	}
}
