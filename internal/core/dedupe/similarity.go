package dedupe

import (
	"strings"

	"github.com/kljensen/snowball/spanish"
)

// DefaultSimilarityThreshold is the cutoff for reporting a near-duplicate
// pair when the caller passes 0
const DefaultSimilarityThreshold = 0.95

// stemJaccardFloor gates the quadratic ratio computation. Pairs whose
// stemmed-token overlap falls below this cannot reach any useful threshold
const stemJaccardFloor = 0.5

// Pair is a reported near-duplicate. Pairs are reported only; they are never
// merged into exact duplicate groups
type Pair struct {
	AID        string
	BID        string
	Similarity float64
}

// FuzzyPairs compares every item against every other on light-normalized
// text and reports pairs at or above threshold. The pass is O(n^2) and off
// by default at the pipeline level; a stemmed-token overlap prescreen skips
// most non-candidates before the expensive ratio
func (d *Detector) FuzzyPairs(items []Item, threshold float64) []Pair {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	texts := make([]string, len(items))
	stems := make([]map[string]struct{}, len(items))
	for i, it := range items {
		texts[i] = d.norm.Light(it.Text)
		stems[i] = stemSet(texts[i])
	}

	var out []Pair
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if texts[i] == "" || texts[j] == "" {
				continue
			}
			if jaccard(stems[i], stems[j]) < stemJaccardFloor {
				continue
			}
			if s := ratio(texts[i], texts[j]); s >= threshold {
				out = append(out, Pair{AID: items[i].ID, BID: items[j].ID, Similarity: s})
			}
		}
	}
	return out
}

// stopWords are high-frequency Spanish function words excluded from the
// prescreen so overlap reflects content, not grammar
var stopWords = map[string]bool{
	"a": true, "al": true, "con": true, "de": true, "del": true,
	"el": true, "en": true, "es": true, "fue": true, "la": true,
	"las": true, "lo": true, "los": true, "me": true, "mi": true,
	"no": true, "para": true, "pero": true, "por": true, "que": true,
	"se": true, "su": true, "un": true, "una": true, "y": true,
}

// stemSet tokenizes light-normalized text and stems each content token so
// inflected variants ("demora"/"demorado") land on the same key
func stemSet(lt string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(lt) {
		tok = strings.Trim(tok, ".,;:!?¡¿\"'()")
		if tok == "" || stopWords[tok] {
			continue
		}
		set[spanish.Stem(tok, false)] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// ratio is the classic sequence-matcher similarity, 2*LCS/(len(a)+len(b))
// over runes. Identical strings score 1.0
func ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	// single-row LCS table
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}
