// Package orchestrate wires the cascade: exact cache, rule dictionary,
// learned-affix lookup, phonetic family matching, and LLM fallback, each
// layer tried in order and accepted only once its result clears the
// configured confidence threshold for its method.
package orchestrate

import (
	"context"
	"errors"
	"fmt"

	classphonetic "github.com/hjonck/leadscout/internal/classify/phonetic"
	"github.com/hjonck/leadscout/internal/classify/rule"
	"github.com/hjonck/leadscout/internal/domain"
	"github.com/hjonck/leadscout/internal/learning"
	"github.com/hjonck/leadscout/internal/llmclient"
)

// Orchestrator is the Classifier Orchestrator: stateless beyond its
// dependencies, safe to call concurrently from multiple Runner workers —
// except for ClassifyViaLLM, which the Runner must serialise per batch to
// preserve immediate-learning visibility (see the Runner's two-phase batch
// processing).
type Orchestrator struct {
	learning   *learning.Store
	rule       *rule.Classifier
	phonetic   *classphonetic.Classifier
	llm        *llmclient.Adapter
	thresholds domain.Thresholds
}

func New(learningStore *learning.Store, ruleClassifier *rule.Classifier, phoneticClassifier *classphonetic.Classifier, llm *llmclient.Adapter, thresholds domain.Thresholds) *Orchestrator {
	return &Orchestrator{
		learning:   learningStore,
		rule:       ruleClassifier,
		phonetic:   phoneticClassifier,
		llm:        llm,
		thresholds: thresholds,
	}
}

// Classify runs rawName through every cascade layer in order, returning the
// first Classification that clears its layer's confidence threshold,
// falling back to the LLM layer if none of them do.
func (o *Orchestrator) Classify(ctx context.Context, rawName string) (domain.Classification, error) {
	c, n, ok, err := o.ClassifyFast(ctx, rawName)
	if err != nil {
		return domain.Classification{}, err
	}
	if ok {
		return c, nil
	}
	return o.ClassifyViaLLM(ctx, n)
}

// ClassifyFast tries every cascade layer that needs no network call: exact
// cache, rule dictionary, learned-affix lookup, and phonetic family
// matching. ok is false when no layer cleared its threshold, meaning the
// caller must fall back to ClassifyViaLLM. Safe to call concurrently.
func (o *Orchestrator) ClassifyFast(ctx context.Context, rawName string) (domain.Classification, domain.NormalisedName, bool, error) {
	n, err := domain.NormalizeName(rawName)
	if err != nil {
		c := domain.Classification{
			InputName: rawName,
			Category:  domain.CategoryUnknown,
			Method:    domain.MethodRule,
			ErrorKind: normalizeErrorKind(err),
		}
		return c, domain.NormalisedName{}, false, err
	}

	if c, ok, err := o.learning.LookupExact(ctx, n.Canonical); err != nil {
		return storeErrorClassification(n), n, false, fmt.Errorf("orchestrate: lookup_exact: %w", err)
	} else if ok {
		return c, n, true, nil
	}

	if c, ok := o.rule.Classify(n); ok && c.Confidence >= domain.MethodRule.Threshold(o.thresholds) {
		return c, n, true, nil
	}

	if c, _, ok, err := o.learning.MatchLearnedAffix(ctx, n); err != nil {
		return storeErrorClassification(n), n, false, fmt.Errorf("orchestrate: match_learned_affix: %w", err)
	} else if ok && c.Confidence >= domain.MethodPhonetic.Threshold(o.thresholds) {
		return c, n, true, nil
	}

	if c, ok := o.phonetic.Classify(ctx, n); ok && c.Confidence >= domain.MethodPhonetic.Threshold(o.thresholds) {
		return c, n, true, nil
	}

	return domain.Classification{}, n, false, nil
}

// ClassifyViaLLM calls the LLM layer and, on success, durably records the
// answer and extracts any patterns it yields before returning — so the very
// next call in the same batch can match against it. The Runner must call
// this sequentially within a batch: two concurrent calls for the same
// unseen name would both reach the LLM instead of the second benefiting
// from the first's freshly recorded answer.
func (o *Orchestrator) ClassifyViaLLM(ctx context.Context, n domain.NormalisedName) (domain.Classification, error) {
	answer, errKind, err := o.llm.Classify(ctx, n)
	if err != nil {
		return domain.Classification{
			InputName:      n.Original,
			NormalisedName: n.Canonical,
			Category:       domain.CategoryUnknown,
			Method:         domain.MethodLLM,
			ErrorKind:      errKind,
		}, fmt.Errorf("orchestrate: llm: %w", err)
	}

	if _, err := o.learning.RecordLLMAnswer(ctx, n, answer); err != nil {
		return domain.Classification{}, fmt.Errorf("orchestrate: record_llm_answer: %w", err)
	}

	return domain.Classification{
		InputName:      n.Original,
		NormalisedName: n.Canonical,
		Category:       answer.Category,
		Confidence:     answer.Confidence,
		Method:         domain.MethodLLM,
		Provider:       answer.ProviderTag,
	}, nil
}

// storeErrorClassification builds the category=unknown/method=rule shell a
// Learning Store failure reports, so a failed row still carries a usable
// Classification through to the Runner and the output sink instead of a
// blank one.
func storeErrorClassification(n domain.NormalisedName) domain.Classification {
	return domain.Classification{
		InputName:      n.Original,
		NormalisedName: n.Canonical,
		Category:       domain.CategoryUnknown,
		Method:         domain.MethodRule,
		ErrorKind:      domain.ErrorKindStoreIO,
	}
}

// normalizeErrorKind maps a domain.NormalizeName failure to the cascade's
// closed ErrorKind taxonomy so callers can branch on it without string
// matching.
func normalizeErrorKind(err error) domain.ErrorKind {
	switch {
	case errors.Is(err, domain.ErrEmptyName):
		return domain.ErrorKindEmptyName
	case errors.Is(err, domain.ErrNameTooComplex):
		return domain.ErrorKindNameTooComplex
	default:
		return domain.ErrorKindStoreIO
	}
}
