// Package rule implements the deterministic dictionary-backed classifier:
// the second cascade layer, consulted after the exact cache misses.
package rule

import (
	"github.com/hjonck/leadscout/internal/dictionary"
	"github.com/hjonck/leadscout/internal/domain"
)

const (
	baseConfidence       = 0.85
	agreementIncrement   = 0.05
	confidenceCeiling    = 0.95
	disagreementConfidence = 0.75
)

// Classifier is the Rule Classifier: given normalised name parts, it
// produces a Classification with Method == MethodRule, or abstains.
type Classifier struct {
	dict *dictionary.Store
}

func New(dict *dictionary.Store) *Classifier {
	return &Classifier{dict: dict}
}

type tokenMatch struct {
	category domain.Category
	weight   float64
}

// Classify implements the algorithm: resolve the surname (compound match
// takes precedence over a plain dictionary lookup of the last significant
// token), resolve every other significant token as a given name, then
// either agree on one category or let the surname's vote outweigh a
// single given-name vote. Returns ok=false on abstention.
func (c *Classifier) Classify(n domain.NormalisedName) (domain.Classification, bool) {
	var matches []tokenMatch

	allTokens := make([]string, 0, len(n.Parts))
	for _, p := range n.Parts {
		allTokens = append(allTokens, p.Folded)
	}

	var surnameMatch *tokenMatch
	if compound, span, ok := c.dict.MatchCompound(allTokens); ok && span > 0 {
		m := tokenMatch{category: compound.Category, weight: compound.ConfidenceWeight}
		surnameMatch = &m
		matches = append(matches, m)
	} else if sp, ok := n.SurnamePart(); ok {
		if entry, found := c.dict.LookupSurname(sp.Folded); found {
			m := tokenMatch{category: entry.Category, weight: entry.ConfidenceWeight}
			surnameMatch = &m
			matches = append(matches, m)
		}
	}

	for _, gp := range n.GivenParts() {
		entry, found := c.dict.LookupGiven(gp.Folded)
		if !found {
			continue
		}
		matches = append(matches, tokenMatch{category: entry.Category, weight: entry.ConfidenceWeight})
	}

	if len(matches) == 0 {
		return domain.Classification{}, false
	}

	if allAgree(matches) {
		confidence := baseConfidence + agreementIncrement*float64(len(matches))
		if confidence > confidenceCeiling {
			confidence = confidenceCeiling
		}
		return result(n, matches[0].category, confidence), true
	}

	if surnameMatch != nil {
		return result(n, surnameMatch.category, disagreementConfidence), true
	}

	// No surname evidence, given names disagree: prefer the strongest
	// weighted given-name match rather than abstain outright.
	best := matches[0]
	for _, m := range matches[1:] {
		if m.weight > best.weight {
			best = m
		}
	}
	return result(n, best.category, disagreementConfidence), true
}

func allAgree(matches []tokenMatch) bool {
	for _, m := range matches[1:] {
		if m.category != matches[0].category {
			return false
		}
	}
	return true
}

func result(n domain.NormalisedName, category domain.Category, confidence float64) domain.Classification {
	return domain.Classification{
		InputName:      n.Original,
		NormalisedName: n.Canonical,
		Category:       category,
		Confidence:     confidence,
		Method:         domain.MethodRule,
	}
}
