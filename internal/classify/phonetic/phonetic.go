// Package phonetic implements the nearest-known-name classifier: the
// fourth cascade layer, consulted after the rule classifier and the
// learned-affix lookup both abstain.
package phonetic

import (
	"context"

	"github.com/hjonck/leadscout/internal/domain"
	phoneticcodec "github.com/hjonck/leadscout/internal/phonetic"
)

const (
	minSimilarityToRank  = 0.85
	strongAgreement      = 3
	strongSimilarity     = 0.90
	strongConfidenceBase = 0.70
	strongConfidenceStep = 0.05
	strongConfidenceCap  = 0.90
	weakAgreement        = 2
	weakSimilarity       = 0.92
	weakConfidence       = 0.65
)

// FamilyIndex is the read side of the Learning Store's phonetic-family
// index that this classifier queries. Implemented by learning.Store.
type FamilyIndex interface {
	CandidatesSharingCodes(ctx context.Context, codes phoneticcodec.Codes, minShared int) ([]Candidate, error)
}

// Candidate is one phonetic-family member considered for a token.
type Candidate struct {
	Token      string // folded canonical token the family was built from
	Category   domain.Category
	Agreement  int // codec codes shared with the query token
}

// Classifier is the Phonetic Classifier.
type Classifier struct {
	index FamilyIndex
}

func New(index FamilyIndex) *Classifier {
	return &Classifier{index: index}
}

// Classify implements the nearest-known-name algorithm over the surname
// token (authoritative tie-break per token) and, if the surname produces
// nothing, falls back to the given-name tokens in input order, returning the
// first one that produces a classification.
func (c *Classifier) Classify(ctx context.Context, n domain.NormalisedName) (domain.Classification, bool) {
	tokens := n.SignificantTokens()
	if len(tokens) == 0 {
		return domain.Classification{}, false
	}

	surname, hasSurname := n.SurnamePart()
	if hasSurname {
		if result, ok := c.classifyToken(ctx, n, surname.Folded); ok {
			return result, true
		}
	}

	for _, gp := range n.GivenParts() {
		if result, ok := c.classifyToken(ctx, n, gp.Folded); ok {
			return result, true
		}
	}

	return domain.Classification{}, false
}

func (c *Classifier) classifyToken(ctx context.Context, n domain.NormalisedName, token string) (domain.Classification, bool) {
	codes := phoneticcodec.Encode(token)
	candidates, err := c.index.CandidatesSharingCodes(ctx, codes, 2)
	if err != nil || len(candidates) == 0 {
		return domain.Classification{}, false
	}

	type scored struct {
		Candidate
		similarity float64
	}
	var ranked []scored
	for _, cand := range candidates {
		sim := phoneticcodec.Similarity(token, cand.Token)
		if sim < minSimilarityToRank {
			continue
		}
		ranked = append(ranked, scored{Candidate: cand, similarity: sim})
	}
	if len(ranked) == 0 {
		return domain.Classification{}, false
	}

	top := ranked[0]
	for _, r := range ranked[1:] {
		if r.similarity > top.similarity {
			top = r
		}
	}

	switch {
	case top.Agreement >= strongAgreement && top.similarity >= strongSimilarity:
		confidence := strongConfidenceBase + strongConfidenceStep*float64(top.Agreement-strongAgreement)
		if confidence > strongConfidenceCap {
			confidence = strongConfidenceCap
		}
		return domain.Classification{
			InputName:      n.Original,
			NormalisedName: n.Canonical,
			Category:       top.Category,
			Confidence:     confidence,
			Method:         domain.MethodPhonetic,
		}, true
	case top.Agreement >= weakAgreement && top.similarity >= weakSimilarity:
		return domain.Classification{
			InputName:      n.Original,
			NormalisedName: n.Canonical,
			Category:       top.Category,
			Confidence:     weakConfidence,
			Method:         domain.MethodPhonetic,
		}, true
	default:
		return domain.Classification{}, false
	}
}
