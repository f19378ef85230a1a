package phonetic

import (
	"context"
	"testing"

	"github.com/hjonck/leadscout/internal/domain"
	phoneticcodec "github.com/hjonck/leadscout/internal/phonetic"
)

type fakeIndex struct {
	candidates []Candidate
	err        error
}

func (f fakeIndex) CandidatesSharingCodes(ctx context.Context, codes phoneticcodec.Codes, minShared int) ([]Candidate, error) {
	return f.candidates, f.err
}

func normalise(t *testing.T, raw string) domain.NormalisedName {
	t.Helper()
	n, err := domain.NormalizeName(raw)
	if err != nil {
		t.Fatalf("NormalizeName(%q) error: %v", raw, err)
	}
	return n
}

func TestClassify_StrongAgreementEmitsHighConfidence(t *testing.T) {
	t.Parallel()

	idx := fakeIndex{candidates: []Candidate{
		{Token: "MTHEBMU", Category: domain.CategoryAfrican, Agreement: 3},
	}}
	c := New(idx)

	got, ok := c.Classify(context.Background(), normalise(t, "Thabo Mthembu"))
	if !ok {
		t.Fatal("expected a classification, got abstention")
	}
	if got.Category != domain.CategoryAfrican {
		t.Errorf("category = %q, want african", got.Category)
	}
	if got.Method != domain.MethodPhonetic {
		t.Errorf("method = %q, want phonetic", got.Method)
	}
	if got.Confidence < 0.70 || got.Confidence > 0.90 {
		t.Errorf("confidence = %v, want in [0.70, 0.90]", got.Confidence)
	}
}

func TestClassify_WeakAgreementBelowSimilarityFloorAbstains(t *testing.T) {
	t.Parallel()

	idx := fakeIndex{candidates: []Candidate{
		{Token: "ZZZZZZ", Category: domain.CategoryAfrican, Agreement: 2},
	}}
	c := New(idx)

	_, ok := c.Classify(context.Background(), normalise(t, "Thabo Mthembu"))
	if ok {
		t.Fatal("expected abstention when similarity is below the weak-agreement floor")
	}
}

func TestClassify_NoCandidatesAbstains(t *testing.T) {
	t.Parallel()

	c := New(fakeIndex{})
	_, ok := c.Classify(context.Background(), normalise(t, "Thabo Mthembu"))
	if ok {
		t.Fatal("expected abstention with no candidates")
	}
}
