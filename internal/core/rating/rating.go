// Package rating derives satisfaction indices from 0-10 numeric ratings.
// The Tally accumulator is the only state; Add and Merge are commutative so
// chunk tallies can be reduced in any completion order
package rating

// Class buckets a single rating on the standard 0-10 scale
type Class int

const (
	Detractor Class = iota // rating <= 6
	Passive                // 7 <= rating <= 8
	Promoter               // rating >= 9
)

// Categorize classifies one rating
func Categorize(rating float64) Class {
	switch {
	case rating >= 9:
		return Promoter
	case rating >= 7:
		return Passive
	default:
		return Detractor
	}
}

// Band labels a CSI score
type Band string

const (
	BandCritical  Band = "critical"  // < 50
	BandLow       Band = "low"       // 50-60
	BandRegular   Band = "regular"   // 60-70
	BandGood      Band = "good"      // 70-80
	BandExcellent Band = "excellent" // >= 80
)

// BandOf maps a CSI value to its band
func BandOf(csi float64) Band {
	switch {
	case csi >= 80:
		return BandExcellent
	case csi >= 70:
		return BandGood
	case csi >= 60:
		return BandRegular
	case csi >= 50:
		return BandLow
	default:
		return BandCritical
	}
}

// Tally accumulates rating counts. The zero value is ready to use
type Tally struct {
	Promoters  int     `json:"promoters"`
	Passives   int     `json:"passives"`
	Detractors int     `json:"detractors"`
	Total      int     `json:"total"`
	Sum        float64 `json:"sum"`
	High       int     `json:"high"` // ratings >= 8
	Low        int     `json:"low"`  // ratings <= 4
}

// Add folds one rating into the tally
func (t *Tally) Add(rating float64) {
	t.Total++
	t.Sum += rating
	switch Categorize(rating) {
	case Promoter:
		t.Promoters++
	case Passive:
		t.Passives++
	default:
		t.Detractors++
	}
	if rating >= 8 {
		t.High++
	}
	if rating <= 4 {
		t.Low++
	}
}

// Merge folds another tally into t. Merge(a).Merge(b) == Merge(b).Merge(a)
func (t *Tally) Merge(o Tally) {
	t.Promoters += o.Promoters
	t.Passives += o.Passives
	t.Detractors += o.Detractors
	t.Total += o.Total
	t.Sum += o.Sum
	t.High += o.High
	t.Low += o.Low
}

// NPS returns the net promoter score, 100*(promoters-detractors)/total,
// bounded in [-100, 100]. An empty tally scores 0
func (t Tally) NPS() float64 {
	if t.Total == 0 {
		return 0
	}
	return 100 * float64(t.Promoters-t.Detractors) / float64(t.Total)
}

// CSI returns the customer satisfaction index on a 0-100 scale:
// 40% normalized mean rating, 30% high-rating ratio, 30% inverse low-rating
// ratio, clamped to [0, 100]. An empty tally scores 0
func (t Tally) CSI() float64 {
	if t.Total == 0 {
		return 0
	}
	n := float64(t.Total)
	meanPct := t.Sum / n / 10 * 100
	highRatio := float64(t.High) / n
	lowRatio := float64(t.Low) / n

	csi := 0.4*meanPct + 30*highRatio + 30*(1-lowRatio)
	if csi < 0 {
		return 0
	}
	if csi > 100 {
		return 100
	}
	return csi
}

// Of builds a tally from a slice of ratings
func Of(ratings []float64) Tally {
	var t Tally
	for _, r := range ratings {
		t.Add(r)
	}
	return t
}
