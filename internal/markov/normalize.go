package markov

import "strings"

// vocabularySize is the Laplace smoothing denominator. It is larger than the
// 40 characters Normalize keeps and must not change without retraining every
// published artifact, since scores depend on it.
const vocabularySize = 46

// Normalize lowercases s and keeps only characters in [a-z0-9._+-].
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if allowed(c) {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func allowed(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '.', c == '_', c == '+', c == '-':
		return true
	}
	return false
}

var addressNoise = strings.NewReplacer(
	`"`, "", "'", "", "(", "", ")", "", "[", "", "]", "", "{", "", "}", "",
	" ", "", "\t", "", "\n", "", "\r", "",
)

// LocalPart extracts and normalizes the scored portion of an address. Raw
// values from traffic often arrive as "<Mailto:John..Doe@x.com>," and must
// reduce to "john.doe". Input without '@' is treated as a bare local part.
func LocalPart(address string) string {
	e := strings.ToLower(strings.TrimSpace(address))
	e = addressNoise.Replace(e)
	e = strings.TrimRight(e, ".,;")
	e = strings.Trim(e, "<>")
	e = strings.TrimPrefix(e, "mailto:")
	for strings.Contains(e, "..") {
		e = strings.ReplaceAll(e, "..", ".")
	}
	if i := strings.LastIndexByte(e, '@'); i >= 0 {
		e = e[:i]
	}
	return Normalize(e)
}
