package phonetic

import "strings"

// doubleMetaphone is a reduced implementation of Lawrence Philips' Double
// Metaphone: it covers the common Germanic/Afrikaans/Romance digraphs this
// dataset actually contains (silent initial letters, CH/SCH/TH clusters,
// soft/hard C and G, terminal vowels) without the full algorithm's Slavic
// and Asian transliteration branches. The alternate return is empty
// whenever a token has no plausible second pronunciation; callers already
// tolerate that (see Codes.NonEmpty).
func doubleMetaphone(s string) (primary, alternate string) {
	if s == "" {
		return "", ""
	}
	r := []rune(s)
	n := len(r)

	at := func(i int) rune {
		if i < 0 || i >= n {
			return 0
		}
		return r[i]
	}
	isVowel := func(i int) bool {
		switch at(i) {
		case 'A', 'E', 'I', 'O', 'U', 'Y':
			return true
		}
		return false
	}

	var p, a strings.Builder
	write := func(c byte) { p.WriteByte(c); a.WriteByte(c) }
	writeAlt := func(pc, ac byte) { p.WriteByte(pc); a.WriteByte(ac) }

	i := 0
	if n >= 2 {
		pair := string(r[:2])
		switch pair {
		case "KN", "GN", "PN", "WR", "AE":
			i = 1
		}
	}

	for ; i < n && p.Len() < 64; i++ {
		c := r[i]
		if i > 0 && r[i-1] == c && c != 'C' {
			continue
		}
		switch c {
		case 'A', 'E', 'I', 'O', 'U', 'Y':
			if i == 0 {
				write('A')
			}
		case 'B':
			write('P')
		case 'C':
			switch {
			case i+1 < n && r[i+1] == 'H':
				write('X')
				i++
			case i+2 < n && r[i+1] == 'I' && r[i+2] == 'A':
				write('X')
			case i+1 < n && (r[i+1] == 'I' || r[i+1] == 'E' || r[i+1] == 'Y'):
				write('S')
			default:
				write('K')
			}
		case 'D':
			if i+2 < n && r[i+1] == 'G' && (r[i+2] == 'E' || r[i+2] == 'Y' || r[i+2] == 'I') {
				write('J')
				i += 2
			} else {
				write('T')
			}
		case 'F':
			write('F')
		case 'G':
			switch {
			case i+1 < n && r[i+1] == 'H':
				write('K')
				i++
			case i+1 < n && (r[i+1] == 'I' || r[i+1] == 'E' || r[i+1] == 'Y'):
				writeAlt('J', 'K')
			default:
				write('K')
			}
		case 'H':
			if isVowel(i-1) && isVowel(i+1) {
				write('H')
			}
		case 'J':
			writeAlt('J', 'A')
		case 'K':
			if !(i > 0 && r[i-1] == 'C') {
				write('K')
			}
		case 'L':
			write('L')
		case 'M':
			write('M')
		case 'N':
			write('N')
		case 'P':
			if i+1 < n && r[i+1] == 'H' {
				write('F')
				i++
			} else {
				write('P')
			}
		case 'Q':
			write('K')
		case 'R':
			write('R')
		case 'S':
			switch {
			case i+1 < n && r[i+1] == 'H':
				write('X')
				i++
			case i+2 < n && r[i+1] == 'I' && (r[i+2] == 'O' || r[i+2] == 'A'):
				writeAlt('S', 'X')
			default:
				write('S')
			}
		case 'T':
			if i+1 < n && r[i+1] == 'H' {
				writeAlt('0', 'T')
				i++
			} else {
				write('T')
			}
		case 'V':
			write('F')
		case 'W':
			if isVowel(i + 1) {
				writeAlt('W', ' ')
			}
		case 'X':
			p.WriteString("KS")
			a.WriteString("KS")
		case 'Z':
			write('S')
		}
	}

	primary = strings.ReplaceAll(p.String(), " ", "")
	alternate = strings.ReplaceAll(a.String(), " ", "")
	if alternate == primary {
		alternate = ""
	}
	return primary, alternate
}
