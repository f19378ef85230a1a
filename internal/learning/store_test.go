package learning

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hjonck/leadscout/internal/domain"
	phoneticcodec "github.com/hjonck/leadscout/internal/phonetic"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "learning.db")
	s, err := Open(ctx, path, DeactivationPolicy{Floor: 0.6, MinApplications: 20})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func normalise(t *testing.T, raw string) domain.NormalisedName {
	t.Helper()
	n, err := domain.NormalizeName(raw)
	if err != nil {
		t.Fatalf("NormalizeName(%q) error: %v", raw, err)
	}
	return n
}

func TestLookupExact_MissBeforeRecordHitAfter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)
	n := normalise(t, "Xiluva Rirhandzu")

	if _, ok, err := s.LookupExact(ctx, n.Canonical); err != nil || ok {
		t.Fatalf("expected miss before recording, got ok=%v err=%v", ok, err)
	}

	_, err := s.RecordLLMAnswer(ctx, n, domain.LLMAnswer{Category: domain.CategoryAfrican, Confidence: 0.85, ProviderTag: "anthropic"})
	if err != nil {
		t.Fatalf("RecordLLMAnswer() error: %v", err)
	}

	got, ok, err := s.LookupExact(ctx, n.Canonical)
	if err != nil || !ok {
		t.Fatalf("expected hit after recording, got ok=%v err=%v", ok, err)
	}
	if got.Category != domain.CategoryAfrican || got.Method != domain.MethodCache {
		t.Errorf("got %+v, want category=african method=cache", got)
	}
}

func TestMatchLearnedAffix_VisibleImmediatelyAfterRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	first := normalise(t, "Xiluva Rirhandzu")
	if _, err := s.RecordLLMAnswer(ctx, first, domain.LLMAnswer{Category: domain.CategoryAfrican, Confidence: 0.85, ProviderTag: "anthropic"}); err != nil {
		t.Fatalf("RecordLLMAnswer() error: %v", err)
	}

	second := normalise(t, "Xilani Dube")
	got, patternID, ok, err := s.MatchLearnedAffix(ctx, second)
	if err != nil {
		t.Fatalf("MatchLearnedAffix() error: %v", err)
	}
	if !ok {
		t.Fatal("expected a learned-affix match via the shared 'xil' prefix")
	}
	if got.Category != domain.CategoryAfrican {
		t.Errorf("category = %q, want african", got.Category)
	}
	if patternID == "" {
		t.Error("expected a non-empty pattern id")
	}
}

func TestCandidatesSharingCodes_FindsPhoneticFamilyMember(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	n := normalise(t, "Thabo Mthembu")
	if _, err := s.RecordLLMAnswer(ctx, n, domain.LLMAnswer{Category: domain.CategoryAfrican, Confidence: 0.85, ProviderTag: "anthropic"}); err != nil {
		t.Fatalf("RecordLLMAnswer() error: %v", err)
	}

	surname, _ := n.SurnamePart()
	codes := phoneticcodec.Encode(surname.Folded)
	candidates, err := s.CandidatesSharingCodes(ctx, codes, 1)
	if err != nil {
		t.Fatalf("CandidatesSharingCodes() error: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatal("expected at least one candidate sharing a codec code with MTHEMBU")
	}
}

func TestRecordApplication_DeactivatesBelowFloor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	n := normalise(t, "Xiluva Rirhandzu")
	if _, err := s.RecordLLMAnswer(ctx, n, domain.LLMAnswer{Category: domain.CategoryAfrican, Confidence: 0.85, ProviderTag: "anthropic"}); err != nil {
		t.Fatalf("RecordLLMAnswer() error: %v", err)
	}

	second := normalise(t, "Xilani Dube")
	_, patternID, ok, err := s.MatchLearnedAffix(ctx, second)
	if err != nil || !ok {
		t.Fatalf("MatchLearnedAffix() ok=%v err=%v", ok, err)
	}

	for i := 0; i < 20; i++ {
		if err := s.RecordApplication(ctx, patternID, false); err != nil {
			t.Fatalf("RecordApplication() error: %v", err)
		}
	}

	// "Xilani" still shares the "XI" prefix_2 pattern with "Xiluva", so a
	// match may remain; it must not be the deactivated pattern.
	_, gotID, ok, err := s.MatchLearnedAffix(ctx, second)
	if err != nil {
		t.Fatalf("MatchLearnedAffix() error: %v", err)
	}
	if ok && gotID == patternID {
		t.Fatal("expected the pattern to be deactivated after 20 incorrect applications")
	}
	var active bool
	if err := s.db.QueryRowContext(ctx, `SELECT active FROM learned_patterns WHERE id = ?`, patternID).Scan(&active); err != nil {
		t.Fatalf("read active flag: %v", err)
	}
	if active {
		t.Fatal("expected learned_patterns.active = false after 20 incorrect applications")
	}
}

func TestExtractAndStorePatterns_FullNamePatternCarriesAnswerConfidenceVerbatim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	n := normalise(t, "Xiluva Rirhandzu")
	const answerConfidence = 0.73
	if _, err := s.RecordLLMAnswer(ctx, n, domain.LLMAnswer{Category: domain.CategoryAfrican, Confidence: answerConfidence, ProviderTag: "anthropic"}); err != nil {
		t.Fatalf("RecordLLMAnswer() error: %v", err)
	}

	var confidence float64
	row := s.db.QueryRowContext(ctx,
		`SELECT confidence FROM learned_patterns WHERE kind = ? AND key = ?`,
		string(domain.PatternKindFullName), n.Canonical)
	if err := row.Scan(&confidence); err != nil {
		t.Fatalf("query learned_patterns: %v", err)
	}
	if confidence != answerConfidence {
		t.Errorf("full_name pattern confidence = %v, want %v (the LLM answer's own confidence)", confidence, answerConfidence)
	}

	var affixConfidence float64
	row = s.db.QueryRowContext(ctx,
		`SELECT confidence FROM learned_patterns WHERE kind = ? LIMIT 1`,
		string(domain.PatternKindAffixPrefix2))
	if err := row.Scan(&affixConfidence); err != nil {
		t.Fatalf("query learned_patterns affix row: %v", err)
	}
	if affixConfidence != patternAffixConfidence {
		t.Errorf("affix pattern confidence = %v, want flat %v", affixConfidence, patternAffixConfidence)
	}
}
