package scoring

import "sort"

// Vector maps category name -> proportion. Non-empty vectors sum to 1.0
// within 1e-6; the no-match shape depends on the engine kind
type Vector map[string]float64

// Sum returns the total proportion mass in v
func (v Vector) Sum() float64 {
	var t float64
	for _, p := range v {
		t += p
	}
	return t
}

// Normalized returns a copy of v scaled so proportions sum to 1.0.
// A vector with no positive mass comes back empty
func (v Vector) Normalized() Vector {
	var t float64
	for _, p := range v {
		if p > 0 {
			t += p
		}
	}
	out := make(Vector, len(v))
	if t == 0 {
		return out
	}
	for name, p := range v {
		if p > 0 {
			out[name] = p / t
		}
	}
	return out
}

// Dominant returns the argmax category of v. Ties break by position in
// order (the category table's declared order); names missing from order
// sort after declared ones, alphabetically, so the result stays stable
func Dominant(v Vector, order []string) string {
	if len(v) == 0 {
		return ""
	}

	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}

	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, iok := rank[names[i]]
		rj, jok := rank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		default:
			return names[i] < names[j]
		}
	})

	best := ""
	bestP := 0.0
	for _, name := range names {
		if p := v[name]; p > bestP {
			best, bestP = name, p
		}
	}
	return best
}
