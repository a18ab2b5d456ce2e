// Package scoring implements the weighted lexical classifier shared by the
// emotion and theme analyses. An engine is parameterized by an ordered
// category table and instantiated once per worker; instances share nothing
package scoring

import (
	"math"

	aho_corasick "github.com/petar-dambovaliev/aho-corasick"

	"sondeo/internal/core/lexicon"
	"sondeo/internal/core/normalize"
)

// Kind selects the engine's no-match behavior
type Kind int

const (
	// Emotion engines default to {neutral: 1.0} when nothing matches
	Emotion Kind = iota
	// Theme engines default to an empty vector when nothing matches.
	// The asymmetry is a documented product behavior, kept deliberately
	Theme
)

// NeutralCategory is the emotion engine's no-match bucket
const NeutralCategory = "neutral"

// phraseWeight is the fixed contribution of one phrase pattern match
const phraseWeight = 2.0

// kwRef ties an automaton pattern index back to its category
type kwRef struct {
	cat int
	kw  string
}

// Engine scores light-normalized text against an ordered category table
type Engine struct {
	kind  Kind
	cats  []lexicon.Category
	tiers []lexicon.Tier
	norm  *normalize.Normalizer

	ac   aho_corasick.AhoCorasick
	refs []kwRef // index-aligned with AC patterns
}

// NewEngine builds an engine over cats; declaration order of cats and tiers
// is the tie-break contract and must come from the lexicon pack
func NewEngine(kind Kind, cats []lexicon.Category, tiers []lexicon.Tier) *Engine {
	e := &Engine{
		kind:  kind,
		cats:  cats,
		tiers: tiers,
		norm:  normalize.New(),
	}

	var pats []string
	for ci := range cats {
		for _, kw := range cats[ci].Keywords {
			pats = append(pats, kw)
			e.refs = append(e.refs, kwRef{cat: ci, kw: kw})
		}
	}

	b := aho_corasick.NewAhoCorasickBuilder(aho_corasick.Opts{
		AsciiCaseInsensitive: false,                      // light normalization lowercases already
		MatchOnlyWholeWords:  false,                      // keyword presence is substring semantics
		MatchKind:            aho_corasick.StandardMatch, // required for IterOverlapping
		DFA:                  false,
	})
	e.ac = b.Build(pats)

	return e
}

// NewEmotion builds the emotion engine from a compiled pack
func NewEmotion(p *lexicon.Pack) *Engine { return NewEngine(Emotion, p.Emotions, p.Tiers) }

// NewTheme builds the theme engine from a compiled pack
func NewTheme(p *lexicon.Pack) *Engine { return NewEngine(Theme, p.Themes, p.Tiers) }

// Kind returns the engine kind
func (e *Engine) Kind() Kind { return e.kind }

// Order returns category names in declared order
func (e *Engine) Order() []string { return lexicon.Names(e.cats) }

// Score classifies text into a proportional category distribution.
// Never fails; missing/empty text yields the engine's no-match default
func (e *Engine) Score(text string) Vector {
	lt := e.norm.Light(text)
	if lt == "" {
		return e.noMatch()
	}

	raw := make([]float64, len(e.cats))

	// One automaton pass over all keywords of all categories. Each keyword
	// contributes at most once (presence, not frequency); the modifier check
	// runs at the keyword's first occurrence
	seen := make(map[int]struct{}, 8)
	iter := e.ac.IterOverlapping(lt)
	for {
		m := iter.Next()
		if m == nil {
			break
		}
		pi := m.Pattern()
		if _, dup := seen[pi]; dup {
			continue
		}
		seen[pi] = struct{}{}

		ref := e.refs[pi]
		w := math.Abs(e.cats[ref.cat].BaseWeight)
		if f, ok := e.modifierFactor(lt, m.Start()); ok {
			w *= f
		}
		raw[ref.cat] += w
	}

	// Theme engines add explicit phrase patterns on top of keywords,
	// a fixed weight per match occurrence
	if e.kind == Theme {
		for ci := range e.cats {
			for _, re := range e.cats[ci].Phrases {
				if k := len(re.FindAllStringIndex(lt, -1)); k > 0 {
					raw[ci] += phraseWeight * float64(k)
				}
			}
		}
	}

	var total float64
	for _, w := range raw {
		total += w
	}
	if total == 0 {
		return e.noMatch()
	}

	v := make(Vector, len(e.cats))
	for ci, w := range raw {
		if w > 0 {
			v[e.cats[ci].Name] = w / total
		}
	}
	return v
}

// Dominant returns the argmax category under this engine's declared order
func (e *Engine) Dominant(v Vector) string { return Dominant(v, e.Order()) }

// modifierFactor finds the intensity factor for a keyword starting at start.
// Only the token immediately preceding the keyword counts; the first tier
// (declaration order) containing it wins
func (e *Engine) modifierFactor(lt string, start int) (float64, bool) {
	if start == 0 {
		return 0, false
	}
	tok := precedingToken(lt, start)
	if tok == "" {
		return 0, false
	}
	for _, tier := range e.tiers {
		if tier.Has(tok) {
			return tier.Factor, true
		}
	}
	return 0, false
}

func (e *Engine) noMatch() Vector {
	if e.kind == Emotion {
		return Vector{NeutralCategory: 1.0}
	}
	return Vector{}
}
