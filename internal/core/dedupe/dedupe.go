// Package dedupe groups records that normalize to the same text and applies
// keep policies over those groups. Grouping is chunk-local by design; a
// duplicate split across two chunks is not detected, which keeps workers
// shared-nothing
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"

	"sondeo/internal/core/normalize"
)

// Item is the detector's view of one record. Rating is nil when the source
// carried none
type Item struct {
	ID     string
	Text   string
	Rating *float64
}

// Group is a set of items sharing a normalized-text hash. Count equals
// len(MemberIDs) and is always >= 2; singletons never form a group
type Group struct {
	Hash          string
	CanonicalText string
	MemberIDs     []string
	Count         int
	Ratings       []float64
}

// KeepPolicy selects which member of a duplicate group survives Deduplicate
type KeepPolicy string

const (
	KeepFirst         KeepPolicy = "first"
	KeepLast          KeepPolicy = "last"
	KeepHighestRating KeepPolicy = "highest_rating"
)

// Detector hashes and groups items. Instances are cheap and single-use per
// worker; they share nothing
type Detector struct {
	norm *normalize.Normalizer
}

// New returns a Detector
func New() *Detector {
	return &Detector{norm: normalize.New()}
}

// HashOf returns the stable content hash of the fully-normalized text.
// Empty and whitespace-only texts hash to the same distinct empty bucket
func (d *Detector) HashOf(text string) string {
	sum := sha256.Sum256([]byte(d.norm.Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// Group buckets items by normalized-text hash in one pass. Any hash with two
// or more members becomes a group; the canonical text is the first member's
// raw text in source order. Groups come back in first-occurrence order
func (d *Detector) Group(items []Item) []Group {
	byHash := make(map[string]*Group, len(items))
	var order []string

	for _, it := range items {
		h := d.HashOf(it.Text)
		g, ok := byHash[h]
		if !ok {
			g = &Group{Hash: h, CanonicalText: it.Text}
			byHash[h] = g
			order = append(order, h)
		}
		g.MemberIDs = append(g.MemberIDs, it.ID)
		g.Count++
		if it.Rating != nil {
			g.Ratings = append(g.Ratings, *it.Rating)
		}
	}

	var out []Group
	for _, h := range order {
		if g := byHash[h]; g.Count >= 2 {
			out = append(out, *g)
		}
	}
	return out
}

// Deduplicate retains one item per duplicate group under policy and returns
// the survivors in source order together with a frequency map keyed by
// retained item ID. Singletons survive with frequency 1. The frequency map
// is always built; callers that only want the survivors can discard it.
// Input items are never mutated; the operation is idempotent
func (d *Detector) Deduplicate(items []Item, policy KeepPolicy) ([]Item, map[string]int) {
	type bucket struct {
		keep  int // index into items of the current survivor
		count int
	}
	byHash := make(map[string]*bucket, len(items))
	hashes := make([]string, len(items))

	for i, it := range items {
		h := d.HashOf(it.Text)
		hashes[i] = h
		b, ok := byHash[h]
		if !ok {
			byHash[h] = &bucket{keep: i, count: 1}
			continue
		}
		b.count++
		switch policy {
		case KeepLast:
			b.keep = i
		case KeepHighestRating:
			// ties keep the earliest by source order
			if ratingOf(items, i) > ratingOf(items, b.keep) {
				b.keep = i
			}
		}
	}

	kept := make([]Item, 0, len(byHash))
	freq := make(map[string]int, len(byHash))
	for i, it := range items {
		b := byHash[hashes[i]]
		if b.keep != i {
			continue
		}
		kept = append(kept, it)
		freq[it.ID] = b.count
	}
	return kept, freq
}

// ratingOf treats a missing rating as the lowest possible so any rated
// duplicate beats an unrated one
func ratingOf(items []Item, i int) float64 {
	if items[i].Rating == nil {
		return -1
	}
	return *items[i].Rating
}
