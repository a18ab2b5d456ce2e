// Package service implements the batch pipeline: chunk workers, the
// scheduler, and the aggregator
package service

import (
	"context"

	"sondeo/internal/core/dedupe"
	"sondeo/internal/core/lexicon"
	"sondeo/internal/core/scoring"
	perr "sondeo/internal/platform/errors"
	"sondeo/internal/platform/logger"
	"sondeo/internal/platform/memory"
	"sondeo/internal/services/batch/domain"
)

// Worker runs the requested analyses over one chunk. Each worker owns its
// own detector instances end to end; workers share only the read-only pack
type Worker struct {
	emotions   *scoring.Engine
	themes     *scoring.Engine
	det        *dedupe.Detector
	classifier domain.ClassifierPort

	fuzzy     bool
	threshold float64
}

// WorkerConfig tunes one worker
type WorkerConfig struct {
	Fuzzy      bool
	Threshold  float64
	Classifier domain.ClassifierPort
}

// NewWorker builds a worker over a compiled pack
func NewWorker(p *lexicon.Pack, cfg WorkerConfig) *Worker {
	return &Worker{
		emotions:   scoring.NewEmotion(p),
		themes:     scoring.NewTheme(p),
		det:        dedupe.New(),
		classifier: cfg.Classifier,
		fuzzy:      cfg.Fuzzy,
		threshold:  cfg.Threshold,
	}
}

// Process scores one chunk and returns its result. Detector failures are
// recovered per analysis and recorded on the result; a chunk never fails
// the run. The returned result is never mutated afterwards
func (w *Worker) Process(ctx context.Context, chunkID int, recs []domain.Record, analyses []domain.Analysis) domain.ChunkResult {
	ctx = logger.WithChunk(ctx, chunkID)

	res := domain.ChunkResult{
		ChunkID: chunkID,
		Size:    len(recs),
	}

	for _, rec := range recs {
		if rec.Rating != nil {
			res.Ratings.Add(*rec.Rating)
		}
	}

	for _, a := range analyses {
		if err := w.runAnalysis(ctx, a, recs, &res); err != nil {
			if res.Failed == nil {
				res.Failed = make(map[domain.Analysis]string, 1)
			}
			res.Failed[a] = err.Error()
			logger.C(ctx).Warn().
				Str("analysis", string(a)).
				Err(err).
				Msg("analysis failed, keeping partial chunk result")
		}
	}

	res.MemorySnapshotMB = memory.SnapshotMB()
	return res
}

// runAnalysis dispatches one analysis and converts panics into recovered
// chunk analysis errors
func (w *Worker) runAnalysis(ctx context.Context, a domain.Analysis, recs []domain.Record, res *domain.ChunkResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = perr.ChunkAnalysisf("%s panicked: %v", a, r)
		}
	}()

	switch a {
	case domain.AnalysisDuplicates:
		res.Duplicates = w.duplicates(recs)
	case domain.AnalysisEmotions:
		res.Emotions = w.score(ctx, w.emotions, recs, true)
	case domain.AnalysisThemes:
		res.Themes = w.score(ctx, w.themes, recs, false)
	default:
		return perr.ChunkAnalysisf("unknown analysis %q", a)
	}
	return nil
}

func (w *Worker) duplicates(recs []domain.Record) *domain.DuplicateStats {
	items := make([]dedupe.Item, len(recs))
	for i, rec := range recs {
		items[i] = dedupe.Item{ID: rec.ID, Text: rec.Text, Rating: rec.Rating}
	}

	groups := w.det.Group(items)
	stats := &domain.DuplicateStats{
		Groups:     groups,
		GroupCount: len(groups),
	}
	for _, g := range groups {
		stats.Duplicates += g.Count - 1
	}
	if w.fuzzy {
		stats.FuzzyPairs = w.det.FuzzyPairs(items, w.threshold)
	}
	return stats
}

// score runs one engine over the chunk. The optional external classifier
// can override the lexical emotion vector; its failures fall back to the
// lexical result and never break the chunk
func (w *Worker) score(ctx context.Context, eng *scoring.Engine, recs []domain.Record, classify bool) *domain.CategoryStats {
	stats := &domain.CategoryStats{
		Weights: make(scoring.Vector),
		Counts:  make(map[string]int),
	}

	sums := make(scoring.Vector)
	for _, rec := range recs {
		v := eng.Score(rec.Text)
		if classify && w.classifier != nil {
			if ov := w.classify(ctx, rec); ov != nil {
				v = ov
			}
		}
		if len(v) == 0 {
			continue
		}
		stats.Scored++
		for name, p := range v {
			sums[name] += p
		}
		if dom := scoring.Dominant(v, eng.Order()); dom != "" {
			stats.Counts[dom]++
		}
	}

	if stats.Scored > 0 {
		for name, s := range sums {
			stats.Weights[name] = s / float64(stats.Scored)
		}
	}
	return stats
}

func (w *Worker) classify(ctx context.Context, rec domain.Record) scoring.Vector {
	raw, err := w.classifier.Classify(ctx, rec.Text)
	if err != nil {
		logger.C(ctx).Debug().
			Str("record_id", rec.ID).
			Err(err).
			Msg("classifier failed, using lexical result")
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	return scoring.Vector(raw).Normalized()
}
