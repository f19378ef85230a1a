package phonetic

import "strings"

// nysiis implements the New York State Identification and Intelligence
// System algorithm: transcode well-known prefixes and suffixes, translate
// the remaining letters by a fixed substitution table while collapsing
// runs of the same output letter, then truncate to six characters.
func nysiis(s string) string {
	if len(s) < 1 {
		return ""
	}
	r := []rune(strings.ToUpper(s))

	switch {
	case strings.HasPrefix(string(r), "MAC"):
		r = append([]rune{'M', 'C'}, r[3:]...)
	case strings.HasPrefix(string(r), "KN"):
		r = r[1:]
	case strings.HasPrefix(string(r), "K"):
		r[0] = 'C'
	case strings.HasPrefix(string(r), "PH"), strings.HasPrefix(string(r), "PF"):
		r = append([]rune{'F'}, r[2:]...)
	case strings.HasPrefix(string(r), "SCH"):
		r = append([]rune{'S', 'S', 'S'}, r[3:]...)
	}

	switch {
	case strings.HasSuffix(string(r), "EE"), strings.HasSuffix(string(r), "IE"):
		r = append(r[:len(r)-2], 'Y')
	case strings.HasSuffix(string(r), "DT"), strings.HasSuffix(string(r), "RT"),
		strings.HasSuffix(string(r), "RD"), strings.HasSuffix(string(r), "NT"),
		strings.HasSuffix(string(r), "ND"):
		r = append(r[:len(r)-2], 'D')
	}

	if len(r) == 0 {
		return ""
	}

	var out strings.Builder
	out.WriteRune(r[0])
	last := r[0]

	for i := 1; i < len(r); i++ {
		c := r[i]
		var code rune
		switch c {
		case 'E', 'I', 'O', 'U':
			code = 'A'
		case 'Q':
			code = 'G'
		case 'Z':
			code = 'S'
		case 'M':
			code = 'N'
		case 'K':
			if i+1 < len(r) && r[i+1] == 'N' {
				code = 'N'
			} else {
				code = 'C'
			}
		case 'S':
			if i+1 < len(r) && r[i+1] == 'H' {
				code = 'S'
				i++
			} else {
				code = 'S'
			}
		case 'P':
			if i+1 < len(r) && r[i+1] == 'H' {
				code = 'F'
				i++
			} else {
				code = 'P'
			}
		case 'V':
			code = 'F'
		case 'Y':
			if i == len(r)-1 {
				code = 'A'
			} else {
				code = 'Y'
			}
		case 'W':
			if i > 0 && isVowelRune(r[i-1]) {
				code = r[i-1]
			} else {
				code = 'W'
			}
		default:
			code = c
		}
		if code != last {
			out.WriteRune(code)
			last = code
		}
	}

	result := out.String()
	if len(result) > 1 {
		result = strings.TrimSuffix(result, "S")
	}
	if strings.HasSuffix(result, "AY") {
		result = strings.TrimSuffix(result, "Y") + "Y"
	}
	if len(result) > 1 {
		result = strings.TrimSuffix(result, "A")
	}
	if len(result) > 6 {
		result = result[:6]
	}
	return result
}

func isVowelRune(r rune) bool {
	switch r {
	case 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}
