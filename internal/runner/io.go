package runner

import (
	"context"

	"github.com/hjonck/leadscout/internal/domain"
)

// Row is one input record, keyed by its zero-based position in the input so
// resume can skip exactly the rows already accounted for.
type Row struct {
	Index  int64
	Fields map[string]string
}

// RowSource supplies input rows in index order. Next returns io.EOF once
// exhausted.
type RowSource interface {
	TotalRows() (int64, bool)
	Next(ctx context.Context) (Row, error)
}

// RowSink receives the outcome of every row, in the order its batch
// commits, for assembling the output spreadsheet.
type RowSink interface {
	Write(ctx context.Context, result domain.LeadResult) error
	Close() error
}
