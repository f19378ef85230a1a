package llmclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hjonck/leadscout/internal/domain"
)

type fakeProvider struct {
	tag     string
	answers []fakeCall
	calls   int
}

type fakeCall struct {
	answer domain.LLMAnswer
	err    error
}

func (f *fakeProvider) ProviderTag() string { return f.tag }

func (f *fakeProvider) Classify(ctx context.Context, n domain.NormalisedName) (domain.LLMAnswer, error) {
	idx := f.calls
	if idx >= len(f.answers) {
		idx = len(f.answers) - 1
	}
	call := f.answers[idx]
	f.calls++
	return call.answer, call.err
}

func testConfig() Config {
	return Config{MaxRetries: 2, PerAttemptTimeout: time.Second, RequestsPerSecond: 1000, Burst: 1000}
}

func normalise(t *testing.T, raw string) domain.NormalisedName {
	t.Helper()
	n, err := domain.NormalizeName(raw)
	if err != nil {
		t.Fatalf("NormalizeName(%q) error: %v", raw, err)
	}
	return n
}

func TestAdapter_PrimarySucceedsFirstTry(t *testing.T) {
	t.Parallel()
	primary := &fakeProvider{tag: "anthropic", answers: []fakeCall{
		{answer: domain.LLMAnswer{Category: domain.CategoryAfrican, Confidence: 0.9, ProviderTag: "anthropic"}},
	}}
	a := New(primary, nil, testConfig())

	got, kind, err := a.Classify(context.Background(), normalise(t, "Thabo Mthembu"))
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if kind != domain.ErrorKindNone {
		t.Errorf("kind = %q, want none", kind)
	}
	if got.Category != domain.CategoryAfrican {
		t.Errorf("category = %q, want african", got.Category)
	}
}

func TestAdapter_RetriesRetryableErrorThenSucceeds(t *testing.T) {
	t.Parallel()
	primary := &fakeProvider{tag: "anthropic", answers: []fakeCall{
		{err: errRateLimited},
		{answer: domain.LLMAnswer{Category: domain.CategoryIndian, Confidence: 0.8, ProviderTag: "anthropic"}},
	}}
	a := New(primary, nil, testConfig())

	got, kind, err := a.Classify(context.Background(), normalise(t, "Priya Naidoo"))
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if kind != domain.ErrorKindNone {
		t.Errorf("kind = %q, want none", kind)
	}
	if got.Category != domain.CategoryIndian {
		t.Errorf("category = %q, want indian", got.Category)
	}
}

func TestAdapter_FallsBackToSecondaryAfterPrimaryExhausted(t *testing.T) {
	t.Parallel()
	primary := &fakeProvider{tag: "anthropic", answers: []fakeCall{
		{err: errRateLimited},
	}}
	secondary := &fakeProvider{tag: "openai-compat", answers: []fakeCall{
		{answer: domain.LLMAnswer{Category: domain.CategoryWhite, Confidence: 0.7, ProviderTag: "openai-compat"}},
	}}
	cfg := testConfig()
	cfg.MaxRetries = 0
	a := New(primary, secondary, cfg)

	got, kind, err := a.Classify(context.Background(), normalise(t, "Johan Van Der Merwe"))
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if kind != domain.ErrorKindNone {
		t.Errorf("kind = %q, want none", kind)
	}
	if got.ProviderTag != "openai-compat" {
		t.Errorf("provider tag = %q, want openai-compat (failover)", got.ProviderTag)
	}
}

func TestAdapter_NonRetryableErrorNeverFallsBack(t *testing.T) {
	t.Parallel()
	primary := &fakeProvider{tag: "anthropic", answers: []fakeCall{
		{err: errors.Join(domain.ErrValidation, errors.New("unrecognised category"))},
	}}
	secondary := &fakeProvider{tag: "openai-compat", answers: []fakeCall{
		{answer: domain.LLMAnswer{Category: domain.CategoryWhite, Confidence: 0.7, ProviderTag: "openai-compat"}},
	}}
	a := New(primary, secondary, testConfig())

	_, kind, err := a.Classify(context.Background(), normalise(t, "Johan Van Der Merwe"))
	if err == nil {
		t.Fatal("expected an error for a non-retryable failure")
	}
	if kind != domain.ErrorKindLLMMalformed {
		t.Errorf("kind = %q, want llm.malformed", kind)
	}
	if secondary.calls != 0 {
		t.Error("secondary provider should never be called for a non-retryable primary error")
	}
}
