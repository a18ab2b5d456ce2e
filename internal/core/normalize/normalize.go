// Package normalize provides the deterministic text canonicalization used by
// all detectors.
// Full pipeline (duplicate hashing)
// 1 Control/invalid byte sanitize
// 2 UTF-8 repair drop invalid bytes
// 3 Unicode NFKD decomposition (so accent marks separate and get stripped)
// 4 Case folding
// 5 Remove zero-width and combining marks
// 6 Width fold fullwidth to ASCII
// 7 Strip punctuation and symbols
// 8 Collapse whitespace to single spaces and trim
// Light pipeline (lexical scoring): lowercase + whitespace collapse + trim only,
// keeping punctuation and accents so keyword adjacency still reads correctly
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalizer is concurrency safe when used with the pool below
type Normalizer struct{}

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		// order matters and mirrors the documented pipeline
		return transform.Chain(
			norm.NFKD,
			cases.Fold(),                       // unicode case folding
			runes.Remove(runes.In(unicode.Mn)), // strip combining marks, accents included
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
			width.Fold,                         // map fullwidth forms to ASCII
		)
	},
}

// New constructs a Normalizer
func New() *Normalizer { return &Normalizer{} }

// Normalize returns the fully canonical form of s following the pipeline above.
// Total: never fails, empty in -> empty out, same input -> same output
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = Sanitize(s)

	// repair UTF-8 drop invalid bytes
	s = strings.ToValidUTF8(s, "")

	// transform via pooled chain then reset and return it
	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	ns = stripPunct(ns)

	return collapseSpaces(ns)
}

// Light lowercases, collapses whitespace runs to single spaces and trims.
// Punctuation and accents survive so the scoring engine sees words as written
func (n *Normalizer) Light(s string) string {
	if s == "" {
		return ""
	}
	return collapseSpaces(strings.ToLower(Sanitize(s)))
}

// stripPunct replaces punctuation and symbol runes with spaces so the
// duplicate hash ignores them; collapseSpaces squeezes the result
func stripPunct(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// collapseSpaces converts whitespace runs (including newlines) to a single
// ASCII space and trims the edges
func collapseSpaces(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}
