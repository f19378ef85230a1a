// Package phonetic produces the codec codes and string-similarity scores
// the rule-abstention fallback layers key their lookups on.
package phonetic

import (
	"strings"

	"github.com/xrash/smetrics"
)

// Codes is the full set of codec outputs for a single token.
// DoubleMetaphonePrimary and DoubleMetaphoneAlternate share one codec
// identity (CodecDoubleMetaphone); only the primary is indexed in the
// Learning Store (see NonEmpty).
type Codes struct {
	Soundex                 string
	Metaphone               string
	DoubleMetaphonePrimary  string
	DoubleMetaphoneAlternate string
	NYSIIS                  string
}

// Codec name identifiers used as the (codec_id, code) composite key in the
// Learning Store's phonetic_families table.
const (
	CodecSoundex          = "soundex"
	CodecMetaphone        = "metaphone"
	CodecDoubleMetaphone  = "double_metaphone"
	CodecNYSIIS           = "nysiis"
)

// NonEmpty returns the Soundex, Metaphone, Double Metaphone primary and
// NYSIIS codes keyed by codec name, skipping empty codes so none acts as a
// match-everything key. The Double Metaphone alternate is not included.
func (c Codes) NonEmpty() map[string]string {
	out := make(map[string]string, 5)
	if c.Soundex != "" {
		out[CodecSoundex] = c.Soundex
	}
	if c.Metaphone != "" {
		out[CodecMetaphone] = c.Metaphone
	}
	if c.DoubleMetaphonePrimary != "" {
		out[CodecDoubleMetaphone] = c.DoubleMetaphonePrimary
	}
	if c.NYSIIS != "" {
		out[CodecNYSIIS] = c.NYSIIS
	}
	return out
}

// SharedCodecCount returns how many codecs produced an identical code
// between a and b, counting the Double Metaphone primary/alternate as a
// match if either side matches either of the other's two codes.
func SharedCodecCount(a, b Codes) int {
	n := 0
	if a.Soundex != "" && a.Soundex == b.Soundex {
		n++
	}
	if a.Metaphone != "" && a.Metaphone == b.Metaphone {
		n++
	}
	if a.NYSIIS != "" && a.NYSIIS == b.NYSIIS {
		n++
	}
	if doubleMetaphoneMatch(a, b) {
		n++
	}
	return n
}

func doubleMetaphoneMatch(a, b Codes) bool {
	codes := func(c Codes) []string {
		var out []string
		if c.DoubleMetaphonePrimary != "" {
			out = append(out, c.DoubleMetaphonePrimary)
		}
		if c.DoubleMetaphoneAlternate != "" {
			out = append(out, c.DoubleMetaphoneAlternate)
		}
		return out
	}
	for _, x := range codes(a) {
		for _, y := range codes(b) {
			if x == y {
				return true
			}
		}
	}
	return false
}

// Encode computes every codec code for token. token should already be
// upper-cased and diacritic-folded (domain.NamePart.Folded) — codecs
// operate on plain ASCII letters only.
func Encode(token string) Codes {
	clean := asciiLettersOnly(token)
	if clean == "" {
		return Codes{}
	}
	primary, alternate := doubleMetaphone(clean)
	return Codes{
		Soundex:                  smetrics.Soundex(clean),
		Metaphone:                metaphone(clean),
		DoubleMetaphonePrimary:   primary,
		DoubleMetaphoneAlternate: alternate,
		NYSIIS:                   nysiis(clean),
	}
}

// Similarity computes Jaro-Winkler similarity between two already-folded
// tokens, in [0,1].
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return smetrics.JaroWinkler(a, b, 0.7, 4)
}

func asciiLettersOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
