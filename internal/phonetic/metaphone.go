package phonetic

import "strings"

// metaphone implements the original Lawrence Philips Metaphone algorithm.
// Input must already be upper-case ASCII letters only (see asciiLettersOnly).
func metaphone(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	n := len(r)
	var out strings.Builder

	isVowel := func(i int) bool {
		if i < 0 || i >= n {
			return false
		}
		switch r[i] {
		case 'A', 'E', 'I', 'O', 'U':
			return true
		}
		return false
	}

	i := 0
	switch {
	case n >= 2 && (s[:2] == "AE" || s[:2] == "GN" || s[:2] == "KN" || s[:2] == "PN" || s[:2] == "WR"):
		i = 1
	case n >= 1 && r[0] == 'X':
		out.WriteByte('S')
		i = 1
	case n >= 2 && s[:2] == "WH":
		out.WriteByte('W')
		i = 2
	}

	for ; i < n && out.Len() < 64; i++ {
		c := r[i]
		if i > 0 && r[i-1] == c && c != 'C' {
			continue // skip duplicate consonants
		}
		switch c {
		case 'A', 'E', 'I', 'O', 'U':
			if i == 0 {
				out.WriteRune(c)
			}
		case 'B':
			if !(i == n-1 && i > 0 && r[i-1] == 'M') {
				out.WriteByte('B')
			}
		case 'C':
			switch {
			case i+2 < n && r[i+1] == 'I' && r[i+2] == 'A':
				out.WriteByte('X')
			case i+1 < n && r[i+1] == 'H':
				if i > 0 && r[i-1] == 'S' {
					out.WriteByte('K')
				} else {
					out.WriteByte('X')
				}
				i++
			case i+1 < n && (r[i+1] == 'I' || r[i+1] == 'E' || r[i+1] == 'Y'):
				if !(i > 0 && r[i-1] == 'S') {
					out.WriteByte('S')
				}
			default:
				out.WriteByte('K')
			}
		case 'D':
			if i+2 < n && r[i+1] == 'G' && (r[i+2] == 'E' || r[i+2] == 'Y' || r[i+2] == 'I') {
				out.WriteByte('J')
				i += 2
			} else {
				out.WriteByte('T')
			}
		case 'G':
			switch {
			case i+1 < n && r[i+1] == 'H':
				if !(i+2 < n && !isVowel(i+2)) {
					out.WriteByte('F')
				}
				i++
			case i+1 < n && r[i+1] == 'N':
				// silent in GN/GNED, skip
			case i+1 < n && (r[i+1] == 'I' || r[i+1] == 'E' || r[i+1] == 'Y'):
				out.WriteByte('J')
			default:
				out.WriteByte('K')
			}
		case 'H':
			if isVowel(i-1) && !isVowel(i+1) {
				// silent between a vowel and non-vowel
			} else if i > 0 && (r[i-1] == 'C' || r[i-1] == 'S' || r[i-1] == 'P' || r[i-1] == 'T' || r[i-1] == 'G') {
				// already handled by the preceding consonant's own case
			} else {
				out.WriteByte('H')
			}
		case 'K':
			if !(i > 0 && r[i-1] == 'C') {
				out.WriteByte('K')
			}
		case 'P':
			if i+1 < n && r[i+1] == 'H' {
				out.WriteByte('F')
				i++
			} else {
				out.WriteByte('P')
			}
		case 'Q':
			out.WriteByte('K')
		case 'S':
			switch {
			case i+2 < n && r[i+1] == 'I' && (r[i+2] == 'O' || r[i+2] == 'A'):
				out.WriteByte('X')
			case i+1 < n && r[i+1] == 'H':
				out.WriteByte('X')
				i++
			default:
				out.WriteByte('S')
			}
		case 'T':
			switch {
			case i+2 < n && r[i+1] == 'I' && (r[i+2] == 'O' || r[i+2] == 'A'):
				out.WriteByte('X')
			case i+1 < n && r[i+1] == 'H':
				out.WriteByte('0')
				i++
			default:
				out.WriteByte('T')
			}
		case 'V':
			out.WriteByte('F')
		case 'W', 'Y':
			if isVowel(i + 1) {
				out.WriteRune(c)
			}
		case 'X':
			out.WriteString("KS")
		case 'Z':
			out.WriteByte('S')
		case 'F', 'J', 'L', 'M', 'N', 'R':
			out.WriteRune(c)
		}
	}
	return out.String()
}
