// Package llmclient wraps the LLM fallback layer of the classification
// cascade: a primary and secondary provider, rate-limited and retried, with
// confidence clamped to the band the rest of the system trusts.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hjonck/leadscout/internal/domain"
)

// errRefused marks an LLM answer whose self-reported confidence fell below
// minConfidence: the model is effectively abstaining, and the cascade must
// discard the answer as llm.refused rather than accept it at a floor value.
var errRefused = errors.New("llmclient: answer refused, confidence below floor")

// Provider classifies a single normalised name and returns the category the
// model proposes along with its self-reported confidence. ProviderTag
// identifies which concrete provider produced the answer, for
// LLMAnswer.ProviderTag.
type Provider interface {
	ProviderTag() string
	Classify(ctx context.Context, n domain.NormalisedName) (domain.LLMAnswer, error)
}

// classifyPrompt builds the instruction sent to every provider. The output
// contract (a single JSON object, nothing else) is identical across
// providers so response parsing can be shared.
func classifyPrompt(n domain.NormalisedName) string {
	return fmt.Sprintf(`You are classifying a South African person's name into exactly one demographic category for lead-generation analytics.

Name: %s

Categories (pick exactly one):
- african
- indian
- coloured
- cape_malay
- white
- unknown (only if genuinely ambiguous or not a recognisable South African name pattern)

Respond with ONLY a single JSON object, no markdown, no explanation:
{"category": "<one of the categories above>", "confidence": <number between 0 and 1>}`, n.Canonical)
}

// parsedAnswer is the wire shape every provider's JSON response is decoded
// into before being converted to a domain.LLMAnswer.
type parsedAnswer struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

func (p parsedAnswer) toLLMAnswer(providerTag string) (domain.LLMAnswer, error) {
	category := domain.Category(p.Category)
	if !category.IsValid() {
		return domain.LLMAnswer{}, fmt.Errorf("%w: unrecognised category %q", domain.ErrValidation, p.Category)
	}
	if p.Confidence < minConfidence {
		return domain.LLMAnswer{}, fmt.Errorf("%w: confidence %.2f", errRefused, p.Confidence)
	}
	return domain.LLMAnswer{
		Category:    category,
		Confidence:  capConfidence(p.Confidence),
		ProviderTag: providerTag,
	}, nil
}

const (
	minConfidence = 0.5
	maxConfidence = 0.95
)

// capConfidence enforces the ceiling the cascade trusts an LLM answer to
// report honestly: above 0.95 no layer in this system is allowed to claim
// near-certainty. The floor is enforced separately in toLLMAnswer, which
// discards a sub-floor answer as refused instead of clamping it up.
func capConfidence(c float64) float64 {
	if c > maxConfidence {
		return maxConfidence
	}
	return c
}

// extractJSON returns the text from the first '{' to the last '}' in a
// string, tolerating the occasional markdown fence or leading commentary a
// model adds despite instructions not to. It does not check that the span
// holds a single well-formed object.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return s[start : end+1], nil
}
