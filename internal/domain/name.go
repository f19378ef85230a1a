package domain

import (
	"strings"
)

// particles is the closed set of name particles recognised by the
// normaliser. They are ignored for dictionary lookup but retained in the
// parts list to recognise compound surnames.
var particles = map[string]bool{
	"van":   true,
	"der":   true,
	"de":    true,
	"du":    true,
	"le":    true,
	"von":   true,
	"ter":   true,
	"van't": true,
}

// IsParticle reports whether token (case-insensitive) is a recognised
// name particle.
func IsParticle(token string) bool {
	return particles[strings.ToLower(token)]
}

const (
	minSignificantTokenLen = 3
	maxInitialTokenLen     = 2
	maxSignificantTokens   = 6
)

// NamePart is a single token of a normalised name, tagged with its role.
type NamePart struct {
	// Surface is the token as it appeared in the input, case preserved.
	Surface string
	// Folded is Surface upper-cased and diacritic-folded, used for
	// dictionary lookup, phonetic encoding, and affix matching.
	Folded string
	Role   PartRole
}

// IsSignificant reports whether the part counts toward the
// minSignificantTokenLen / maxSignificantTokens rules: given-name or
// surname tokens, not particles or initials.
func (p NamePart) IsSignificant() bool {
	return p.Role == PartRoleGiven || p.Role == PartRoleSurname || p.Role == PartRoleUnknown
}

// NormalisedName is a NamePart list plus its canonical string form, used as
// the cache/dictionary/pattern key throughout the pipeline.
type NormalisedName struct {
	// Canonical is the space-joined, folded, significant+particle tokens —
	// the key used by LookupExact, MatchLearnedAffix, and the phonetic
	// family index.
	Canonical string
	Parts     []NamePart
	// Original is the input string, whitespace-collapsed but otherwise
	// unmodified, carried through to the output row.
	Original string
}

// SignificantTokens returns the Folded form of every significant part, in
// order.
func (n NormalisedName) SignificantTokens() []string {
	var out []string
	for _, p := range n.Parts {
		if p.IsSignificant() {
			out = append(out, p.Folded)
		}
	}
	return out
}

// SurnamePart returns the last significant token, which the rule and
// phonetic classifiers treat as the surname unless a compound match
// supersedes it.
func (n NormalisedName) SurnamePart() (NamePart, bool) {
	for i := len(n.Parts) - 1; i >= 0; i-- {
		if n.Parts[i].IsSignificant() {
			return n.Parts[i], true
		}
	}
	return NamePart{}, false
}

// GivenParts returns every significant part that is not the surname part.
func (n NormalisedName) GivenParts() []NamePart {
	surname, ok := n.SurnamePart()
	var out []NamePart
	seenSurname := false
	for _, p := range n.Parts {
		if !p.IsSignificant() {
			continue
		}
		if !seenSurname && ok && p.Folded == surname.Folded && p.Surface == surname.Surface {
			seenSurname = true
			continue
		}
		out = append(out, p)
	}
	return out
}

// NormalizeName canonicalises a raw input string into a NormalisedName.
// Steps, in order: strip/collapse whitespace, split on whitespace and
// hyphens, classify each token, then enforce the significant-token count
// rules.
//
// Returns ErrEmptyName if there are zero significant tokens, or
// ErrNameTooComplex if there are more than six. Particles and initials are
// not significant, so a compound surname's particles ("… van der X") never
// count toward the limit; no other exception to the bound is made.
func NormalizeName(raw string) (NormalisedName, error) {
	collapsed := collapseWhitespace(raw)
	if collapsed == "" {
		return NormalisedName{}, ErrEmptyName
	}

	fields := splitTokens(collapsed)

	parts := make([]NamePart, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, classifyToken(f))
	}

	significant := 0
	for _, p := range parts {
		if p.IsSignificant() {
			significant++
		}
	}

	if significant == 0 {
		return NormalisedName{}, ErrEmptyName
	}

	if significant > maxSignificantTokens {
		return NormalisedName{}, ErrNameTooComplex
	}

	return NormalisedName{
		Canonical: canonicalForm(parts),
		Parts:     parts,
		Original:  collapsed,
	}, nil
}

// hasCompoundParticlePattern reports whether parts contains one of the
// recognised compound-surname particle patterns: a particle ("van", "der",
// "du", "le", "de", …) immediately followed by a significant token.
func hasCompoundParticlePattern(parts []NamePart) bool {
	for i := 0; i < len(parts)-1; i++ {
		if parts[i].Role == PartRoleParticle && parts[i+1].IsSignificant() {
			return true
		}
	}
	return false
}

func canonicalForm(parts []NamePart) string {
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Role == PartRoleInitial {
			continue
		}
		tokens = append(tokens, p.Folded)
	}
	return strings.Join(tokens, " ")
}

func classifyToken(raw string) NamePart {
	folded := foldToken(raw)

	switch {
	case IsParticle(raw):
		return NamePart{Surface: raw, Folded: folded, Role: PartRoleParticle}
	case isInitial(raw):
		return NamePart{Surface: raw, Folded: folded, Role: PartRoleInitial}
	case len([]rune(folded)) >= minSignificantTokenLen:
		return NamePart{Surface: raw, Folded: folded, Role: PartRoleUnknown}
	default:
		// Shorter than an initial token but not a recognised particle —
		// still counted as non-significant so it cannot single-handedly
		// satisfy the "at least one significant token" rule.
		return NamePart{Surface: raw, Folded: folded, Role: PartRoleInitial}
	}
}

func isInitial(raw string) bool {
	trimmed := strings.TrimSuffix(raw, ".")
	runes := []rune(trimmed)
	return len(runes) > 0 && len(runes) <= maxInitialTokenLen
}

// collapseWhitespace trims leading/trailing whitespace and compresses any
// run of whitespace into a single space.
func collapseWhitespace(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteByte(' ')
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// splitTokens splits on whitespace and hyphens, dropping empty tokens
// produced by repeated hyphens.
func splitTokens(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-'
	})
	return fields
}

// foldToken upper-cases and diacritic-folds a single token for use as a
// dictionary/phonetic/cache key, preserving the original for display.
func foldToken(raw string) string {
	upper := strings.ToUpper(raw)
	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		b.WriteRune(foldRune(r))
	}
	return b.String()
}

// foldRune maps a Latin-script accented rune to its unaccented ASCII
// equivalent. Covers the diacritics common to Afrikaans, Portuguese, and
// other Southern African given/surnames; unmapped runes pass through
// unchanged. No third-party Unicode-normalisation library is wired for
// this — see DESIGN.md.
func foldRune(r rune) rune {
	if folded, ok := diacriticFold[r]; ok {
		return folded
	}
	return r
}

var diacriticFold = map[rune]rune{
	'À': 'A', 'Á': 'A', 'Â': 'A', 'Ã': 'A', 'Ä': 'A', 'Å': 'A',
	'È': 'E', 'É': 'E', 'Ê': 'E', 'Ë': 'E',
	'Ì': 'I', 'Í': 'I', 'Î': 'I', 'Ï': 'I',
	'Ò': 'O', 'Ó': 'O', 'Ô': 'O', 'Õ': 'O', 'Ö': 'O',
	'Ù': 'U', 'Ú': 'U', 'Û': 'U', 'Ü': 'U',
	'Ç': 'C', 'Ñ': 'N', 'Ý': 'Y',
}
