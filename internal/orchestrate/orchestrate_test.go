package orchestrate

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	classphonetic "github.com/hjonck/leadscout/internal/classify/phonetic"
	"github.com/hjonck/leadscout/internal/classify/rule"
	"github.com/hjonck/leadscout/internal/dictionary"
	"github.com/hjonck/leadscout/internal/domain"
	"github.com/hjonck/leadscout/internal/learning"
	"github.com/hjonck/leadscout/internal/llmclient"
)

func thresholds() domain.Thresholds {
	return domain.Thresholds{RuleConfidence: 0.8, PhoneticConfidence: 0.65}
}

type fakeProvider struct {
	tag     string
	answers []domain.LLMAnswer
	calls   int
}

func (f *fakeProvider) ProviderTag() string { return f.tag }

func (f *fakeProvider) Classify(ctx context.Context, n domain.NormalisedName) (domain.LLMAnswer, error) {
	idx := f.calls
	if idx >= len(f.answers) {
		idx = len(f.answers) - 1
	}
	a := f.answers[idx]
	f.calls++
	return a, nil
}

func testOrchestrator(t *testing.T, provider *fakeProvider) *Orchestrator {
	t.Helper()
	ctx := context.Background()

	fixture := fstest.MapFS{
		"data/given_names.csv": &fstest.MapFile{Data: []byte(
			"surface_form,category,confidence_weight,source_tag\n" +
				"PRIYA,indian,0.9,curated_test\n")},
		"data/surnames.csv": &fstest.MapFile{Data: []byte(
			"surface_form,category,confidence_weight,source_tag\n" +
				"NAIDOO,indian,0.9,curated_test\n")},
	}
	dict, err := dictionary.LoadFromFS(fixture)
	if err != nil {
		t.Fatalf("LoadFromFS() error: %v", err)
	}

	learningStore, err := learning.Open(ctx, filepath.Join(t.TempDir(), "learning.db"), learning.DeactivationPolicy{Floor: 0.6, MinApplications: 20})
	if err != nil {
		t.Fatalf("learning.Open() error: %v", err)
	}
	t.Cleanup(func() { learningStore.Close() })

	llm := llmclient.New(provider, nil, llmclient.Config{
		MaxRetries:        1,
		PerAttemptTimeout: time.Second,
		RequestsPerSecond: 1000,
		Burst:             1000,
	})

	return New(learningStore, rule.New(dict), classphonetic.New(learningStore), llm, thresholds())
}

func TestClassify_RuleLayerShortCircuitsBeforeLLM(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{tag: "anthropic", answers: []domain.LLMAnswer{
		{Category: domain.CategoryWhite, Confidence: 0.9, ProviderTag: "anthropic"},
	}}
	o := testOrchestrator(t, provider)

	got, err := o.Classify(context.Background(), "Priya Naidoo")
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if got.Method != domain.MethodRule {
		t.Errorf("method = %q, want rule", got.Method)
	}
	if got.Category != domain.CategoryIndian {
		t.Errorf("category = %q, want indian", got.Category)
	}
	if provider.calls != 0 {
		t.Error("LLM provider should never be called when the rule layer accepts")
	}
}

func TestClassify_LLMFallbackThenCacheHitOnSecondCall(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{tag: "anthropic", answers: []domain.LLMAnswer{
		{Category: domain.CategoryAfrican, Confidence: 0.85, ProviderTag: "anthropic"},
	}}
	o := testOrchestrator(t, provider)
	ctx := context.Background()

	first, err := o.Classify(ctx, "Xiluva Rirhandzu")
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if first.Method != domain.MethodLLM {
		t.Errorf("first call method = %q, want llm", first.Method)
	}

	second, err := o.Classify(ctx, "Xiluva Rirhandzu")
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if second.Method != domain.MethodCache {
		t.Errorf("second call method = %q, want cache", second.Method)
	}
	if second.Category != domain.CategoryAfrican {
		t.Errorf("category = %q, want african", second.Category)
	}
}

func TestClassify_LearnedAffixVisibleToNextRecordInSameBatch(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{tag: "anthropic", answers: []domain.LLMAnswer{
		{Category: domain.CategoryAfrican, Confidence: 0.85, ProviderTag: "anthropic"},
	}}
	o := testOrchestrator(t, provider)
	ctx := context.Background()

	if _, err := o.Classify(ctx, "Xiluva Rirhandzu"); err != nil {
		t.Fatalf("Classify() first error: %v", err)
	}

	got, err := o.Classify(ctx, "Xilani Dube")
	if err != nil {
		t.Fatalf("Classify() second error: %v", err)
	}
	if got.Method == domain.MethodLLM {
		t.Error("expected the learned-affix layer to answer without a second LLM call")
	}
	if got.Category != domain.CategoryAfrican {
		t.Errorf("category = %q, want african", got.Category)
	}
	if provider.calls != 1 {
		t.Errorf("LLM provider calls = %d, want 1 (only for the first, unrelated name)", provider.calls)
	}
}
