package csv

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hjonck/leadscout/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func TestSource_ReadsRowsAndTotal(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "leads.csv",
		"DirectorName,CompanyName\nPriya Naidoo,Acme CC\nJohan Van Der Merwe,Beta Ltd\n")

	src, err := NewSource(path)
	if err != nil {
		t.Fatalf("NewSource() error: %v", err)
	}
	defer src.Close()

	if total, ok := src.TotalRows(); !ok || total != 2 {
		t.Errorf("TotalRows() = (%d, %v), want (2, true)", total, ok)
	}

	ctx := context.Background()
	first, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if first.Index != 0 || first.Fields["DirectorName"] != "Priya Naidoo" || first.Fields["CompanyName"] != "Acme CC" {
		t.Errorf("first row = %+v, unexpected", first)
	}

	second, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if second.Index != 1 || second.Fields["DirectorName"] != "Johan Van Der Merwe" {
		t.Errorf("second row = %+v, unexpected", second)
	}

	if _, err := src.Next(ctx); err != io.EOF {
		t.Errorf("Next() after exhaustion = %v, want io.EOF", err)
	}
}

func TestNewSource_RejectsMissingDirectorNameColumn(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "leads.csv", "FullName,CompanyName\nPriya Naidoo,Acme CC\n")

	if _, err := NewSource(path); err == nil {
		t.Fatal("NewSource() error = nil, want an error for a missing DirectorName column")
	}
}

func TestSink_WritesHeaderAndResultColumns(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.csv")

	sink, err := NewSink(outPath, []string{"DirectorName", "CompanyName"}, false)
	if err != nil {
		t.Fatalf("NewSink() error: %v", err)
	}

	classification := &domain.Classification{
		Category:   domain.CategoryIndian,
		Confidence: 0.9,
		Method:     domain.MethodRule,
	}
	result := domain.LeadResult{
		RowIndex:         0,
		InputFields:      map[string]string{"DirectorName": "Priya Naidoo", "CompanyName": "Acme CC"},
		Classification:   classification,
		ProcessingStatus: domain.ProcessingStatusSuccess,
		LatencyMS:        12,
	}
	if err := sink.Write(context.Background(), result); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "DirectorName,CompanyName,category,confidence,method,provider,processing_status,error_kind,error_message,latency_ms") {
		t.Errorf("output missing expected header, got:\n%s", out)
	}
	if !strings.Contains(out, "Priya Naidoo,Acme CC,indian,0.9000,rule,,success,,,12") {
		t.Errorf("output missing expected row, got:\n%s", out)
	}
}

func TestSink_ResumeAppendsWithoutRewritingHeader(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.csv")

	first, err := NewSink(outPath, []string{"DirectorName"}, false)
	if err != nil {
		t.Fatalf("NewSink() error: %v", err)
	}
	result := domain.LeadResult{
		RowIndex:         0,
		InputFields:      map[string]string{"DirectorName": "Priya Naidoo"},
		ProcessingStatus: domain.ProcessingStatusSuccess,
	}
	if err := first.Write(context.Background(), result); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	resumed, err := NewSink(outPath, []string{"DirectorName"}, true)
	if err != nil {
		t.Fatalf("NewSink() resume error: %v", err)
	}
	result2 := domain.LeadResult{
		RowIndex:         1,
		InputFields:      map[string]string{"DirectorName": "Johan Van Der Merwe"},
		ProcessingStatus: domain.ProcessingStatusSuccess,
	}
	if err := resumed.Write(context.Background(), result2); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := resumed.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("output has %d lines, want 3 (header + 2 rows): %v", len(lines), lines)
	}
}
