package llmclient

import (
	"errors"
	"testing"

	"github.com/hjonck/leadscout/internal/domain"
)

func TestToLLMAnswer_BelowFloorIsRefused(t *testing.T) {
	t.Parallel()
	p := parsedAnswer{Category: "african", Confidence: 0.4}

	_, err := p.toLLMAnswer("anthropic")
	if err == nil {
		t.Fatal("expected an error for a sub-floor confidence")
	}
	if !errors.Is(err, errRefused) {
		t.Errorf("error = %v, want errRefused", err)
	}
	if classifyError(err) != domain.ErrorKindLLMRefused {
		t.Errorf("classifyError() = %q, want llm.refused", classifyError(err))
	}
}

func TestToLLMAnswer_AboveCeilingIsCapped(t *testing.T) {
	t.Parallel()
	p := parsedAnswer{Category: "indian", Confidence: 0.99}

	answer, err := p.toLLMAnswer("anthropic")
	if err != nil {
		t.Fatalf("toLLMAnswer() error: %v", err)
	}
	if answer.Confidence != maxConfidence {
		t.Errorf("Confidence = %v, want %v", answer.Confidence, maxConfidence)
	}
}

func TestToLLMAnswer_UnrecognisedCategoryRejected(t *testing.T) {
	t.Parallel()
	p := parsedAnswer{Category: "martian", Confidence: 0.8}

	_, err := p.toLLMAnswer("anthropic")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want domain.ErrValidation", err)
	}
}
