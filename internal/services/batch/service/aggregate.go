package service

import (
	"sondeo/internal/core/rating"
	perr "sondeo/internal/platform/errors"
	"sondeo/internal/services/batch/domain"
)

// Reduce folds chunk results into dataset-level totals. The fold is
// commutative and associative so parallel collection order never matters.
// Percentage metrics are count-weighted means across chunks, not unweighted
// means of chunk percentages. A chunk that failed one analysis still
// contributes the analyses that succeeded
func Reduce(results []domain.ChunkResult) (domain.AggregateResult, error) {
	agg := domain.AggregateResult{
		EmotionPercentages: map[string]float64{},
		EmotionCounts:      map[string]int{},
		ThemePercentages:   map[string]float64{},
		ThemeCounts:        map[string]int{},
	}

	var (
		usable      int
		emoWeighted = map[string]float64{}
		emoSize     int
		thWeighted  = map[string]float64{}
		thSize      int
	)

	for _, res := range results {
		agg.TotalChunks++
		agg.TotalRecords += res.Size
		agg.FailedAnalyses += len(res.Failed)
		agg.Ratings.Merge(res.Ratings)

		contributed := false

		if res.Duplicates != nil {
			agg.DuplicateCount += res.Duplicates.Duplicates
			contributed = true
		}
		if res.Emotions != nil {
			for name, p := range res.Emotions.Weights {
				emoWeighted[name] += p * float64(res.Size)
			}
			for name, n := range res.Emotions.Counts {
				agg.EmotionCounts[name] += n
			}
			emoSize += res.Size
			contributed = true
		}
		if res.Themes != nil {
			for name, p := range res.Themes.Weights {
				thWeighted[name] += p * float64(res.Size)
			}
			for name, n := range res.Themes.Counts {
				agg.ThemeCounts[name] += n
			}
			thSize += res.Size
			contributed = true
		}
		if contributed {
			usable++
		}
	}

	if usable == 0 {
		return domain.AggregateResult{}, perr.Aggregationf(
			"no usable chunk results out of %d chunks", len(results))
	}

	if agg.TotalRecords > 0 {
		agg.DuplicationRate = float64(agg.DuplicateCount) / float64(agg.TotalRecords)
	}
	if emoSize > 0 {
		for name, w := range emoWeighted {
			agg.EmotionPercentages[name] = w / float64(emoSize) * 100
		}
	}
	if thSize > 0 {
		for name, w := range thWeighted {
			agg.ThemePercentages[name] = w / float64(thSize) * 100
		}
	}

	agg.NPS = agg.Ratings.NPS()
	agg.CSI = agg.Ratings.CSI()
	agg.CSIBand = rating.BandOf(agg.CSI)
	return agg, nil
}
