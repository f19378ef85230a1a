// Package csv is a reference RowSource/RowSink pair for the Batch Runner,
// built on stdlib encoding/csv. It is the boundary adapter the Runner's
// core depends on only through an interface — not core classification
// logic, so it carries no dependency obligation of its own. An XLSX
// adapter can implement the same two interfaces without the Runner
// changing at all.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hjonck/leadscout/internal/domain"
	"github.com/hjonck/leadscout/internal/runner"
)

// DirectorNameColumn is the one column the Source requires; every other
// column is carried through untouched as an opaque field.
const DirectorNameColumn = "DirectorName"

var resultColumns = []string{
	"category", "confidence", "method", "provider",
	"processing_status", "error_kind", "error_message", "latency_ms",
}

// Source streams an input CSV file one record at a time. It never loads the
// whole file into memory.
type Source struct {
	f         *os.File
	r         *csv.Reader
	header    []string
	nextIndex int64
	total     int64
	haveTotal bool
}

// NewSource opens path and reads its header row. It also makes a second,
// disposable pass over the file to count data rows for progress reporting
// — streamed one record at a time, so memory use stays flat regardless of
// file size.
func NewSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest/csv: open %s: %w", path, err)
	}
	r := csv.NewReader(f)
	r.ReuseRecord = true
	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ingest/csv: read header: %w", err)
	}
	header = append([]string(nil), header...)
	if !containsColumn(header, DirectorNameColumn) {
		f.Close()
		return nil, fmt.Errorf("ingest/csv: missing required column %q", DirectorNameColumn)
	}

	total, haveTotal := countDataRows(path)

	return &Source{f: f, r: r, header: header, total: total, haveTotal: haveTotal}, nil
}

func containsColumn(header []string, name string) bool {
	for _, h := range header {
		if h == name {
			return true
		}
	}
	return false
}

func countDataRows(path string) (int64, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true
	if _, err := r.Read(); err != nil {
		return 0, err == io.EOF
	}
	var n int64
	for {
		if _, err := r.Read(); err != nil {
			if err == io.EOF {
				return n, true
			}
			return 0, false
		}
		n++
	}
}

// TotalRows reports the number of data rows if the disposable counting pass
// succeeded.
func (s *Source) TotalRows() (int64, bool) { return s.total, s.haveTotal }

// Next returns the next row, or io.EOF once the file is exhausted.
func (s *Source) Next(ctx context.Context) (runner.Row, error) {
	record, err := s.r.Read()
	if err != nil {
		return runner.Row{}, err
	}

	fields := make(map[string]string, len(s.header))
	for i, col := range s.header {
		if i < len(record) {
			fields[col] = record[i]
		}
	}

	row := runner.Row{Index: s.nextIndex, Fields: fields}
	s.nextIndex++
	return row, nil
}

// Close releases the underlying file.
func (s *Source) Close() error { return s.f.Close() }

// InputColumns exposes the header this Source read, so a Sink can be given
// the same column order for a stable output layout.
func (s *Source) InputColumns() []string { return s.header }

// Sink writes results to an output CSV: every input column, untouched,
// followed by the fixed classification columns. When resuming, Write
// appends to an existing file without rewriting its header.
type Sink struct {
	f      *os.File
	w      *csv.Writer
	header []string
}

// NewSink opens path for writing. When resume is false, path is truncated
// and a fresh header (inputColumns + resultColumns) is written immediately.
// When resume is true, path is opened for append and the header is assumed
// already present from the run being resumed.
func NewSink(path string, inputColumns []string, resume bool) (*Sink, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if resume {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ingest/csv: open %s: %w", path, err)
	}

	header := make([]string, 0, len(inputColumns)+len(resultColumns))
	header = append(header, inputColumns...)
	header = append(header, resultColumns...)

	w := csv.NewWriter(f)
	s := &Sink{f: f, w: w, header: header}
	if !resume {
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("ingest/csv: write header: %w", err)
		}
	}
	return s, nil
}

// Write appends one result row, ordered to match the header built at
// construction time.
func (s *Sink) Write(ctx context.Context, result domain.LeadResult) error {
	record := make([]string, len(s.header))
	inputColCount := len(s.header) - len(resultColumns)
	for i := 0; i < inputColCount; i++ {
		record[i] = result.InputFields[s.header[i]]
	}

	var category, method string
	var confidence float64
	if result.Classification != nil {
		category = result.Classification.Category.String()
		method = result.Classification.Method.String()
		confidence = result.Classification.Confidence
	}

	record[inputColCount+0] = category
	record[inputColCount+1] = strconv.FormatFloat(confidence, 'f', 4, 64)
	record[inputColCount+2] = method
	record[inputColCount+3] = result.Provider
	record[inputColCount+4] = result.ProcessingStatus.String()
	record[inputColCount+5] = string(result.ErrorKind)
	record[inputColCount+6] = result.ErrorMessage
	record[inputColCount+7] = strconv.FormatInt(result.LatencyMS, 10)

	if err := s.w.Write(record); err != nil {
		return fmt.Errorf("ingest/csv: write row %d: %w", result.RowIndex, err)
	}
	return nil
}

// Close flushes buffered output and closes the file.
func (s *Sink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return fmt.Errorf("ingest/csv: flush: %w", err)
	}
	return s.f.Close()
}
