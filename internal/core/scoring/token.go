package scoring

import (
	"unicode"
	"unicode/utf8"
)

// isWord reports whether r is considered a word character when walking back
// to the token preceding a keyword match. Letters, numbers, combining marks
// (Mn) and connector punctuation (Pc); hyphen and most punctuation remain
// non-word
func isWord(r rune) bool {
	if r == utf8.RuneError || r == 0 {
		return false
	}
	return unicode.IsLetter(r) ||
		unicode.IsNumber(r) ||
		unicode.In(r, unicode.Mn, unicode.Pc)
}

// precedingToken returns the word token immediately before position start,
// or "" when start sits at the beginning of the text or the preceding rune
// run is not exactly `token + single space`
func precedingToken(s string, start int) string {
	i := start
	// exactly one separating space between modifier and keyword
	r, sz := utf8.DecodeLastRuneInString(s[:i])
	if r != ' ' {
		return ""
	}
	i -= sz

	end := i
	for i > 0 {
		r, sz := utf8.DecodeLastRuneInString(s[:i])
		if !isWord(r) {
			break
		}
		i -= sz
	}
	if i == end {
		return ""
	}
	return s[i:end]
}
