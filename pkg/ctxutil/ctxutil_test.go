package ctxutil

import (
	"context"
	"testing"
)

func TestWithJobID_And_JobIDFromCtx(t *testing.T) {
	t.Parallel()

	ctx := WithJobID(context.Background(), "job-123")

	got := JobIDFromCtx(ctx)
	if got != "job-123" {
		t.Fatalf("expected job-123, got %s", got)
	}
}

func TestJobIDFromCtx_EmptyContext(t *testing.T) {
	t.Parallel()

	got := JobIDFromCtx(context.Background())
	if got != "" {
		t.Fatalf("expected empty string, got %s", got)
	}
}

func TestJobIDFromCtx_WrongType(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), ctxKey("job_id"), 12345)

	got := JobIDFromCtx(ctx)
	if got != "" {
		t.Fatalf("expected empty string, got %s", got)
	}
}

func TestWithRowIndex_And_RowIndexFromCtx(t *testing.T) {
	t.Parallel()

	ctx := WithRowIndex(context.Background(), 42)

	got, ok := RowIndexFromCtx(ctx)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestRowIndexFromCtx_EmptyContext(t *testing.T) {
	t.Parallel()

	got, ok := RowIndexFromCtx(context.Background())
	if ok {
		t.Fatal("expected ok=false for empty context")
	}
	if got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestRowIndexFromCtx_WrongType(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), ctxKey("row_index"), "not-an-int")

	got, ok := RowIndexFromCtx(ctx)
	if ok {
		t.Fatal("expected ok=false for wrong type")
	}
	if got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
