package domain

import "time"

// AlternativeScore is one runner-up category/confidence pair carried on a
// Classification's Alternatives list.
type AlternativeScore struct {
	Category   Category
	Confidence float64
}

// Classification is the result of classifying a single name. Invariant:
// Confidence >= Method.Threshold(...) unless ErrorKind is set — an
// abstaining layer never returns a Classification at all, it returns
// (Classification{}, false) from its Classify method instead.
type Classification struct {
	InputName      string
	NormalisedName string
	Category       Category
	Confidence     float64
	Method         Method
	LatencyMS      int64
	Provider       string // set only for Method == MethodLLM
	Alternatives   []AlternativeScore

	// ErrorKind is set when the cascade could not produce a classification
	// at all; Category is CategoryUnknown in that case.
	ErrorKind ErrorKind
}

// Failed reports whether this Classification represents a cascade failure
// rather than a genuine (possibly low-confidence-but-threshold-clearing)
// answer.
func (c Classification) Failed() bool {
	return c.ErrorKind != ErrorKindNone
}

// LLMAnswer is what the LLM Client Adapter returns for one name. Confidence
// is already clamped to [0.5, 0.95] by the adapter; answers below the floor
// are not returned as LLMAnswer at all — they surface as an ErrorKind of
// llm.refused.
type LLMAnswer struct {
	Category    Category
	Confidence  float64
	ProviderTag string
}

// LLMAnswerRecord is the immutable, durable record of an LLM answer. It is
// written once by Learning Store.RecordLLMAnswer and never updated.
type LLMAnswerRecord struct {
	ID             string
	NormalisedName string
	Category       Category
	Confidence     float64
	ProviderTag    string
	CreatedAt      time.Time
}
