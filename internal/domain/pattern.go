package domain

import "time"

// LearnedPattern is a fragment extracted from an LLM answer and reused by
// the Learning Store's learned-affix lookup (MatchLearnedAffix) before
// falling back to the LLM again. Patterns are never deleted once written, only
// deactivated — Active flips to false when the pattern's outcome tally
// drops below the configured deactivation floor.
type LearnedPattern struct {
	ID               string
	Kind             PatternKind
	Key              string // the affix, phonetic code, or full canonical name
	Category         Category
	Confidence       float64
	SourceAnswerID   string // LLMAnswerRecord.ID this pattern was extracted from
	TimesApplied     int
	TimesCorrect     int
	Active           bool
	CreatedAt        time.Time
	LastAppliedAt    time.Time
}

// SuccessRate returns TimesCorrect/TimesApplied, or 1.0 when the pattern has
// never been applied (an unapplied pattern gets the benefit of the doubt).
func (p LearnedPattern) SuccessRate() float64 {
	if p.TimesApplied == 0 {
		return 1.0
	}
	return float64(p.TimesCorrect) / float64(p.TimesApplied)
}

// PhoneticFamily groups canonical names that share a phonetic code under one
// codec, carrying the majority category observed for that code so far.
type PhoneticFamily struct {
	Codec         string // "soundex", "metaphone", "double_metaphone", "nysiis"
	Code          string
	Category      Category
	MemberCount   int
	AgreeingCount int
}

// Agreement returns AgreeingCount/MemberCount, or 0 for a family with no
// members.
func (f PhoneticFamily) Agreement() float64 {
	if f.MemberCount == 0 {
		return 0
	}
	return float64(f.AgreeingCount) / float64(f.MemberCount)
}
