// Package domain defines the core types and interfaces for the batch service
package domain

import (
	"time"

	"sondeo/internal/core/dedupe"
	"sondeo/internal/core/rating"
	"sondeo/internal/core/scoring"
)

// Analysis names one detector family a run can request
type Analysis string

const (
	AnalysisDuplicates Analysis = "duplicates"
	AnalysisEmotions   Analysis = "emotions"
	AnalysisThemes     Analysis = "themes"
)

// AllAnalyses is the default request set, in canonical order
func AllAnalyses() []Analysis {
	return []Analysis{AnalysisDuplicates, AnalysisEmotions, AnalysisThemes}
}

// ParseAnalyses maps config tokens to analyses, dropping unknowns.
// An empty input means all
func ParseAnalyses(names []string) []Analysis {
	if len(names) == 0 {
		return AllAnalyses()
	}
	seen := make(map[Analysis]struct{}, 3)
	var out []Analysis
	for _, n := range names {
		a := Analysis(n)
		switch a {
		case AnalysisDuplicates, AnalysisEmotions, AnalysisThemes:
			if _, dup := seen[a]; !dup {
				seen[a] = struct{}{}
				out = append(out, a)
			}
		}
	}
	return out
}

// Record is one feedback entry as read from the source. Immutable once
// materialized into a chunk; the worker owns it for the chunk's lifetime
type Record struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Rating    *float64   `json:"rating,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// DuplicateStats summarizes exact grouping within one chunk. Duplicates
// counts records beyond the first of each group, so a chunk of three
// identical texts contributes two
type DuplicateStats struct {
	Groups     []dedupe.Group `json:"groups,omitempty"`
	GroupCount int            `json:"group_count"`
	Duplicates int            `json:"duplicates"`
	FuzzyPairs []dedupe.Pair  `json:"fuzzy_pairs,omitempty"`
}

// CategoryStats holds one engine's output over a chunk. Weights are the
// mean proportion per category across scored records; Counts tallies the
// dominant category per record. Scored is the number of records that
// produced a non-empty vector
type CategoryStats struct {
	Weights scoring.Vector `json:"weights"`
	Counts  map[string]int `json:"counts"`
	Scored  int            `json:"scored"`
}

// ChunkResult is produced exactly once per chunk and never mutated after.
// A nil analysis pointer with no Failed entry means the analysis was not
// requested; a Failed entry means it was requested and broke
type ChunkResult struct {
	ChunkID          int                 `json:"chunk_id"`
	Size             int                 `json:"size"`
	Duplicates       *DuplicateStats     `json:"duplicates,omitempty"`
	Emotions         *CategoryStats      `json:"emotions,omitempty"`
	Themes           *CategoryStats      `json:"themes,omitempty"`
	Ratings          rating.Tally        `json:"ratings"`
	MemorySnapshotMB float64             `json:"memory_snapshot_mb"`
	Failed           map[Analysis]string `json:"failed,omitempty"`
}

// AggregateResult is the dataset-level reduction of all chunk results
type AggregateResult struct {
	TotalRecords    int     `json:"total_records"`
	TotalChunks     int     `json:"total_chunks"`
	FailedAnalyses  int     `json:"failed_analyses"`
	DuplicateCount  int     `json:"duplicate_count"`
	DuplicationRate float64 `json:"duplication_rate"`

	EmotionPercentages map[string]float64 `json:"emotion_percentages"`
	EmotionCounts      map[string]int     `json:"emotion_counts"`
	ThemePercentages   map[string]float64 `json:"theme_percentages"`
	ThemeCounts        map[string]int     `json:"theme_counts"`

	NPS     float64      `json:"nps"`
	CSI     float64      `json:"csi"`
	CSIBand rating.Band  `json:"csi_band"`
	Ratings rating.Tally `json:"ratings"`
}

// Report is a run's durable output: the aggregate plus every chunk result
type Report struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Aggregate  AggregateResult `json:"aggregate"`
	Chunks     []ChunkResult   `json:"chunks"`
}

// State is the scheduler lifecycle
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)
