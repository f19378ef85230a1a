// Package learning is the durable, single-writer-per-process store of LLM
// answers, learned affix/phonetic patterns, and the full-name cache that
// gives the classifier cascade its exact-cache and learned-affix layers.
package learning

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	classphonetic "github.com/hjonck/leadscout/internal/classify/phonetic"
	"github.com/hjonck/leadscout/internal/domain"
	phoneticcodec "github.com/hjonck/leadscout/internal/phonetic"
	"github.com/hjonck/leadscout/internal/sqlstore"
)

//go:embed migrations
var migrations embed.FS

var sq = squirrel.StatementBuilderType(squirrel.NewStatementBuilder(squirrel.Question))

// DeactivationPolicy controls when a learned pattern stops being eligible
// for MatchLearnedAffix: its measured accuracy must fall below Floor after
// at least MinApplications observations.
type DeactivationPolicy struct {
	Floor           float64
	MinApplications int
}

// Store is the Learning Store. All writes go through writeMu, which is the
// one process-wide serialiser the orchestration layer relies on for the
// immediate-learning ordering guarantee — a later row's lookup always sees
// an earlier row's commit because no second write can be in flight
// concurrently with it.
type Store struct {
	db      *sql.DB
	tx      *sqlstore.TxManager
	writeMu sync.Mutex
	policy  DeactivationPolicy
}

// Open opens (and migrates) the learning database file at path.
func Open(ctx context.Context, path string, policy DeactivationPolicy) (*Store, error) {
	db, err := sqlstore.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := sqlstore.Migrate(ctx, db, migrations); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, tx: sqlstore.NewTxManager(db), policy: policy}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// LookupExact implements the exact-cache layer: O(1) indexed lookup by
// normalised name.
func (s *Store) LookupExact(ctx context.Context, normalisedName string) (domain.Classification, bool, error) {
	q := sq.Select("category", "confidence").
		From("full_name_cache").
		Where(squirrel.Eq{"normalised_name": normalisedName})
	query, args, err := q.ToSql()
	if err != nil {
		return domain.Classification{}, false, fmt.Errorf("learning: build lookup_exact query: %w", err)
	}

	var category string
	var confidence float64
	row := sqlstore.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, query, args...)
	if err := row.Scan(&category, &confidence); err != nil {
		if err == sql.ErrNoRows {
			return domain.Classification{}, false, nil
		}
		return domain.Classification{}, false, fmt.Errorf("learning: lookup_exact: %w", err)
	}

	return domain.Classification{
		NormalisedName: normalisedName,
		Category:       domain.Category(category),
		Confidence:     confidence,
		Method:         domain.MethodCache,
	}, true, nil
}

// MatchLearnedAffix looks up the full canonical name and every significant
// token's 3- and 2-letter prefixes and suffixes against active learned
// patterns, preferring the lowest domain.Rank (so a 3-letter affix beats a
// 2-letter one), then higher confidence, then higher times_applied.
func (s *Store) MatchLearnedAffix(ctx context.Context, n domain.NormalisedName) (domain.Classification, string, bool, error) {
	keys := candidateKeys(n)
	if len(keys) == 0 {
		return domain.Classification{}, "", false, nil
	}

	q := sq.Select("id", "kind", "category", "confidence", "times_applied", "times_correct").
		From("learned_patterns").
		Where(squirrel.Eq{"key": keys}).
		Where(squirrel.Eq{"active": true})
	query, args, err := q.ToSql()
	if err != nil {
		return domain.Classification{}, "", false, fmt.Errorf("learning: build match_learned_affix query: %w", err)
	}

	rows, err := sqlstore.QuerierFromCtx(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Classification{}, "", false, fmt.Errorf("learning: match_learned_affix: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		id            string
		kind          domain.PatternKind
		category      string
		confidence    float64
		timesApplied  int
		timesCorrect  int
	}
	var best *candidate
	for rows.Next() {
		var c candidate
		var kindStr string
		if err := rows.Scan(&c.id, &kindStr, &c.category, &c.confidence, &c.timesApplied, &c.timesCorrect); err != nil {
			return domain.Classification{}, "", false, fmt.Errorf("learning: scan pattern row: %w", err)
		}
		c.kind = domain.PatternKind(kindStr)
		if best == nil || better(c.kind, c.confidence, c.timesApplied, best.kind, best.confidence, best.timesApplied) {
			cc := c
			best = &cc
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Classification{}, "", false, fmt.Errorf("learning: iterate pattern rows: %w", err)
	}
	if best == nil {
		return domain.Classification{}, "", false, nil
	}

	return domain.Classification{
		NormalisedName: n.Canonical,
		InputName:      n.Original,
		Category:       domain.Category(best.category),
		Confidence:     best.confidence,
		Method:         domain.MethodPhonetic,
	}, best.id, true, nil
}

func better(kindA domain.PatternKind, confA float64, evidA int, kindB domain.PatternKind, confB float64, evidB int) bool {
	rankA, rankB := domain.Rank(kindA), domain.Rank(kindB)
	if rankA != rankB {
		return rankA < rankB
	}
	if confA != confB {
		return confA > confB
	}
	return evidA > evidB
}

func candidateKeys(n domain.NormalisedName) []string {
	var keys []string
	keys = append(keys, n.Canonical)
	for _, t := range n.SignificantTokens() {
		for _, l := range []int{3, 2} {
			if len([]rune(t)) >= l {
				r := []rune(t)
				keys = append(keys, string(r[:l]))
				keys = append(keys, string(r[len(r)-l:]))
			}
		}
	}
	return keys
}

// CandidatesSharingCodes implements classphonetic.FamilyIndex: it returns
// every phonetic-family member sharing at least minShared codec codes with
// codes, annotated with how many codes it actually shares.
func (s *Store) CandidatesSharingCodes(ctx context.Context, codes phoneticcodec.Codes, minShared int) ([]classphonetic.Candidate, error) {
	nonEmpty := codes.NonEmpty()
	if len(nonEmpty) == 0 {
		return nil, nil
	}

	counts := make(map[string]*classphonetic.Candidate)
	for codec, code := range nonEmpty {
		q := sq.Select("token", "category").
			From("phonetic_family_members").
			Where(squirrel.Eq{"codec_id": codec, "code": code})
		query, args, err := q.ToSql()
		if err != nil {
			return nil, fmt.Errorf("learning: build phonetic candidates query: %w", err)
		}
		rows, err := sqlstore.QuerierFromCtx(ctx, s.db).QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("learning: query phonetic candidates: %w", err)
		}
		for rows.Next() {
			var token, category string
			if err := rows.Scan(&token, &category); err != nil {
				rows.Close()
				return nil, fmt.Errorf("learning: scan phonetic candidate: %w", err)
			}
			key := token + "|" + category
			if existing, ok := counts[key]; ok {
				existing.Agreement++
			} else {
				counts[key] = &classphonetic.Candidate{Token: token, Category: domain.Category(category), Agreement: 1}
			}
		}
		rows.Close()
	}

	var out []classphonetic.Candidate
	for _, c := range counts {
		if c.Agreement >= minShared {
			out = append(out, *c)
		}
	}
	return out, nil
}

// RecordLLMAnswer durably persists an LLM answer and, within the same
// transaction, extracts and commits every derived pattern — the two
// operations the immediate-learning guarantee requires to land atomically.
// writeMu is held for the duration so no other write can observe a
// half-committed state and no concurrent commit can interleave with this
// one, preserving the ordering guarantee the orchestrator depends on.
func (s *Store) RecordLLMAnswer(ctx context.Context, n domain.NormalisedName, answer domain.LLMAnswer) (domain.LLMAnswerRecord, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	record := domain.LLMAnswerRecord{
		ID:             uuid.NewString(),
		NormalisedName: n.Canonical,
		Category:       answer.Category,
		Confidence:     answer.Confidence,
		ProviderTag:    answer.ProviderTag,
		CreatedAt:      now(ctx),
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.insertLLMAnswer(ctx, record); err != nil {
			return err
		}
		if err := s.upsertFullNameCache(ctx, n.Canonical, record); err != nil {
			return err
		}
		return s.extractAndStorePatterns(ctx, n, record)
	})
	if err != nil {
		return domain.LLMAnswerRecord{}, err
	}
	return record, nil
}

func (s *Store) insertLLMAnswer(ctx context.Context, r domain.LLMAnswerRecord) error {
	q := sq.Insert("llm_classifications").
		Columns("id", "normalised_name", "category", "confidence", "provider_tag", "created_at").
		Values(r.ID, r.NormalisedName, string(r.Category), r.Confidence, r.ProviderTag, r.CreatedAt)
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("learning: build insert llm_classifications: %w", err)
	}
	if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("learning: insert llm_classifications: %w", err)
	}
	return nil
}

func (s *Store) upsertFullNameCache(ctx context.Context, normalisedName string, r domain.LLMAnswerRecord) error {
	query := `INSERT INTO full_name_cache (normalised_name, category, confidence, source_answer_id)
VALUES (?, ?, ?, ?)
ON CONFLICT(normalised_name) DO UPDATE SET category=excluded.category, confidence=excluded.confidence, source_answer_id=excluded.source_answer_id`
	if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, query, normalisedName, string(r.Category), r.Confidence, r.ID); err != nil {
		return fmt.Errorf("learning: upsert full_name_cache: %w", err)
	}
	return nil
}

const (
	patternAffixConfidence = 0.85
)

func (s *Store) extractAndStorePatterns(ctx context.Context, n domain.NormalisedName, r domain.LLMAnswerRecord) error {
	// full_name carries the LLM answer's own confidence verbatim; every
	// other pattern kind is a generalisation over it and gets the flat
	// affix confidence instead.
	if err := s.insertPattern(ctx, domain.PatternKindFullName, n.Canonical, r, r.Confidence); err != nil {
		return err
	}

	for _, t := range n.SignificantTokens() {
		runes := []rune(t)
		if len(runes) >= 2 {
			if err := s.insertPattern(ctx, domain.PatternKindAffixPrefix2, string(runes[:2]), r, patternAffixConfidence); err != nil {
				return err
			}
			if err := s.insertPattern(ctx, domain.PatternKindAffixSuffix2, string(runes[len(runes)-2:]), r, patternAffixConfidence); err != nil {
				return err
			}
		}
		if len(runes) >= 3 {
			if err := s.insertPattern(ctx, domain.PatternKindAffixPrefix3, string(runes[:3]), r, patternAffixConfidence); err != nil {
				return err
			}
			if err := s.insertPattern(ctx, domain.PatternKindAffixSuffix3, string(runes[len(runes)-3:]), r, patternAffixConfidence); err != nil {
				return err
			}
		}

		codes := phoneticcodec.Encode(t)
		for codec, code := range codes.NonEmpty() {
			if err := s.recordPhoneticMember(ctx, codec, code, t, r); err != nil {
				return err
			}
			kind := domain.PatternKindPhoneticFamilySoundex
			if codec == phoneticcodec.CodecDoubleMetaphone {
				kind = domain.PatternKindPhoneticFamilyDoubleMeta
			} else if codec != phoneticcodec.CodecSoundex {
				continue // NYSIIS/metaphone have no dedicated PatternKind
			}
			if err := s.insertPattern(ctx, kind, code, r, patternAffixConfidence); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) insertPattern(ctx context.Context, kind domain.PatternKind, key string, r domain.LLMAnswerRecord, confidence float64) error {
	q := sq.Insert("learned_patterns").
		Columns("id", "kind", "key", "category", "confidence", "source_answer_id", "times_applied", "times_correct", "active", "created_at").
		Values(uuid.NewString(), string(kind), key, string(r.Category), confidence, r.ID, 0, 0, true, r.CreatedAt)
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("learning: build insert learned_patterns: %w", err)
	}
	if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("learning: insert learned_patterns: %w", err)
	}
	return nil
}

func (s *Store) recordPhoneticMember(ctx context.Context, codec, code, token string, r domain.LLMAnswerRecord) error {
	memberQuery := `INSERT OR IGNORE INTO phonetic_family_members (codec_id, code, token, category) VALUES (?, ?, ?, ?)`
	if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, memberQuery, codec, code, token, string(r.Category)); err != nil {
		return fmt.Errorf("learning: insert phonetic_family_members: %w", err)
	}

	upsertQuery := `INSERT INTO phonetic_families (codec_id, code, category, member_count, agreeing_count)
VALUES (?, ?, ?, 1, 1)
ON CONFLICT(codec_id, code, category) DO UPDATE SET
  member_count = member_count + 1,
  agreeing_count = agreeing_count + 1`
	if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, upsertQuery, codec, code, string(r.Category)); err != nil {
		return fmt.Errorf("learning: upsert phonetic_families: %w", err)
	}
	return nil
}

// RecordApplication feeds the deactivation policy with one application of
// patternID whose outcome is known: wasCorrect reports whether the
// pattern's category was confirmed.
func (s *Store) RecordApplication(ctx context.Context, patternID string, wasCorrect bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		correctDelta := 0
		if wasCorrect {
			correctDelta = 1
		}
		updateQuery := `UPDATE learned_patterns SET times_applied = times_applied + 1, times_correct = times_correct + ?, last_applied_at = ? WHERE id = ?`
		if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, updateQuery, correctDelta, now(ctx), patternID); err != nil {
			return fmt.Errorf("learning: record_application update: %w", err)
		}

		var timesApplied, timesCorrect int
		selectQuery := `SELECT times_applied, times_correct FROM learned_patterns WHERE id = ?`
		row := sqlstore.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, selectQuery, patternID)
		if err := row.Scan(&timesApplied, &timesCorrect); err != nil {
			return fmt.Errorf("learning: record_application read back: %w", err)
		}

		if timesApplied >= s.policy.MinApplications {
			accuracy := float64(timesCorrect) / float64(timesApplied)
			if accuracy < s.policy.Floor {
				deactivateQuery := `UPDATE learned_patterns SET active = 0 WHERE id = ?`
				if _, err := sqlstore.QuerierFromCtx(ctx, s.db).ExecContext(ctx, deactivateQuery, patternID); err != nil {
					return fmt.Errorf("learning: deactivate pattern: %w", err)
				}
			}
		}
		return nil
	})
}

// now is a seam for deterministic tests; production callers get wall-clock
// time. Context carries no override by default.
func now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(clockCtxKey{}).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}

type clockCtxKey struct{}

// WithClock overrides now() for deterministic tests.
func WithClock(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, clockCtxKey{}, t)
}
