// Package dictionary loads the curated given-name/surname lists the Rule
// Classifier matches normalised name tokens against.
package dictionary

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/hjonck/leadscout/internal/domain"
)

//go:embed data
var embedded embed.FS

// Role is which part of a name a dictionary entry may fill.
type Role string

const (
	RoleGiven   Role = "given"
	RoleSurname Role = "surname"
	RoleEither  Role = "either"
)

// Entry is one curated name/category association, as described by the
// data-model's Dictionary Entry.
type Entry struct {
	SurfaceForm      string
	Category         domain.Category
	Role             Role
	ConfidenceWeight float64
	SourceTag        string
}

// Store is the read-only, in-memory lookup structure built by Load. It is
// safe for concurrent use — nothing mutates it after construction.
type Store struct {
	given    map[string]Entry
	surname  map[string]Entry
	compound []compoundEntry
}

type compoundEntry struct {
	tokens []string // folded tokens, in order, e.g. ["VAN","DER","MERWE"]
	entry  Entry
}

// Load reads given_names.csv and surnames.csv from the package's embedded
// data directory, building compound-surname entries from any surface form
// containing whitespace (e.g. "VAN DER MERWE").
func Load() (*Store, error) {
	return load(embedded)
}

// LoadFromFS builds a Store from an arbitrary fs.FS with the same layout
// as the embedded data directory (data/given_names.csv, data/surnames.csv).
// Used by the CLI to load a data-directory override, and by tests in other
// packages that need a controlled fixture instead of the full curated
// dataset.
func LoadFromFS(fsys fs.FS) (*Store, error) {
	return load(fsys)
}

func load(fsys fs.FS) (*Store, error) {
	s := &Store{
		given:   make(map[string]Entry),
		surname: make(map[string]Entry),
	}

	givenRows, err := readCSV(fsys, "data/given_names.csv")
	if err != nil {
		return nil, fmt.Errorf("dictionary: loading given names: %w", err)
	}
	for _, row := range givenRows {
		e, err := parseEntry(row, RoleGiven)
		if err != nil {
			return nil, err
		}
		key := strings.ToUpper(e.SurfaceForm)
		if existing, ok := s.given[key]; ok && existing.Category != e.Category {
			return nil, fmt.Errorf("dictionary: %q maps to both %s and %s with role=given", key, existing.Category, e.Category)
		}
		s.given[key] = e
	}

	surnameRows, err := readCSV(fsys, "data/surnames.csv")
	if err != nil {
		return nil, fmt.Errorf("dictionary: loading surnames: %w", err)
	}
	for _, row := range surnameRows {
		e, err := parseEntry(row, RoleSurname)
		if err != nil {
			return nil, err
		}
		key := strings.ToUpper(e.SurfaceForm)
		if strings.Contains(key, " ") {
			s.compound = append(s.compound, compoundEntry{
				tokens: strings.Fields(key),
				entry:  e,
			})
			continue
		}
		s.surname[key] = e
	}

	return s, nil
}

func readCSV(fsys fs.FS, name string) ([]map[string]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, err
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseEntry(row map[string]string, role Role) (Entry, error) {
	weight, err := strconv.ParseFloat(row["confidence_weight"], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("dictionary: parsing confidence_weight for %q: %w", row["surface_form"], err)
	}
	cat := domain.Category(row["category"])
	if !cat.IsValid() {
		return Entry{}, fmt.Errorf("dictionary: %q has invalid category %q", row["surface_form"], row["category"])
	}
	return Entry{
		SurfaceForm:      row["surface_form"],
		Category:         cat,
		Role:             role,
		ConfidenceWeight: weight,
		SourceTag:        row["source_tag"],
	}, nil
}

// LookupGiven reports the dictionary entry for a folded token treated as a
// given name.
func (s *Store) LookupGiven(token string) (Entry, bool) {
	e, ok := s.given[strings.ToUpper(token)]
	return e, ok
}

// LookupSurname reports the dictionary entry for a folded token treated as
// a surname.
func (s *Store) LookupSurname(token string) (Entry, bool) {
	e, ok := s.surname[strings.ToUpper(token)]
	return e, ok
}

// MatchCompound reports whether tokens (folded, in order, including
// particles) contains one of the known compound-surname patterns, and if
// so which entry and how many tokens it spans.
func (s *Store) MatchCompound(tokens []string) (entry Entry, span int, ok bool) {
	upper := make([]string, len(tokens))
	for i, t := range tokens {
		upper[i] = strings.ToUpper(t)
	}

	// Longest match wins: try every compound entry, keep the one spanning
	// the most tokens, scanning every start offset so the surname need not
	// be the first token (e.g. a given name precedes "VAN DER MERWE").
	bestSpan := 0
	var best Entry
	for _, c := range s.compound {
		n := len(c.tokens)
		for start := 0; start+n <= len(upper); start++ {
			if matchesAt(upper, start, c.tokens) && n > bestSpan {
				bestSpan = n
				best = c.entry
			}
		}
	}
	if bestSpan == 0 {
		return Entry{}, 0, false
	}
	return best, bestSpan, true
}

func matchesAt(tokens []string, start int, pattern []string) bool {
	for i, p := range pattern {
		if tokens[start+i] != p {
			return false
		}
	}
	return true
}
