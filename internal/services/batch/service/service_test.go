package service

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"testing"

	"sondeo/internal/core/lexicon"
	perr "sondeo/internal/platform/errors"
	"sondeo/internal/platform/testkit"
	"sondeo/internal/services/batch/domain"
)

type memIterator struct {
	recs  []domain.Record
	pos   int
	errAt int
}

func (m *memIterator) Next() (domain.Record, error) {
	if m.errAt > 0 && m.pos == m.errAt {
		return domain.Record{}, fmt.Errorf("socket reset")
	}
	if m.pos >= len(m.recs) {
		return domain.Record{}, io.EOF
	}
	r := m.recs[m.pos]
	m.pos++
	return r, nil
}

func (m *memIterator) Close() error { return nil }

type memSource struct {
	recs  []domain.Record
	errAt int
}

func (m *memSource) Iterate(context.Context) (domain.RecordIterator, error) {
	return &memIterator{recs: m.recs, errAt: m.errAt}, nil
}

type captureSink struct{ rep *domain.Report }

func (c *captureSink) Write(_ context.Context, rep *domain.Report) error {
	c.rep = rep
	return nil
}

type stubClassifier struct {
	vec  map[string]float64
	err  error
	hits int
}

func (c *stubClassifier) Classify(context.Context, string) (map[string]float64, error) {
	c.hits++
	return c.vec, c.err
}

func f(v float64) *float64 { return &v }

func mustPack(t *testing.T) *lexicon.Pack {
	t.Helper()
	p, err := lexicon.Load()
	if err != nil {
		t.Fatalf("load pack: %v", err)
	}
	return p
}

func scenarioRecords() []domain.Record {
	return []domain.Record{
		{ID: "r1", Text: "Excelente servicio", Rating: f(9)},
		{ID: "r2", Text: "Excelente servicio", Rating: f(9)},
		{ID: "r3", Text: "Terrible servicio", Rating: f(2)},
	}
}

func TestRun_Scenario(t *testing.T) {
	sink := &captureSink{}
	svc := New(domain.Ports{
		Source: &memSource{recs: scenarioRecords()},
		Sink:   sink,
	}, mustPack(t), Config{ChunkSize: 10})

	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	agg := rep.Aggregate
	if agg.TotalRecords != 3 || agg.TotalChunks != 1 {
		t.Fatalf("totals = %+v", agg)
	}
	if agg.DuplicateCount != 1 {
		t.Fatalf("duplicate count = %d, want 1", agg.DuplicateCount)
	}
	testkit.NearlyEqual(t, agg.DuplicationRate, 1.0/3.0, 1e-6)
	testkit.NearlyEqual(t, agg.NPS, 100.0/3.0, 1e-6)
	if agg.CSI < 0 || agg.CSI > 100 {
		t.Fatalf("CSI out of bounds: %v", agg.CSI)
	}

	ch := rep.Chunks[0]
	if ch.Duplicates == nil || ch.Duplicates.GroupCount != 1 {
		t.Fatalf("duplicates = %+v", ch.Duplicates)
	}
	g := ch.Duplicates.Groups[0]
	if g.CanonicalText != "Excelente servicio" || g.Count != 2 {
		t.Fatalf("group = %+v", g)
	}
	if ch.MemorySnapshotMB <= 0 {
		t.Fatalf("memory snapshot = %v", ch.MemorySnapshotMB)
	}

	if sink.rep == nil || sink.rep.RunID != rep.RunID {
		t.Fatalf("sink did not receive the report")
	}
	if svc.State() != domain.StateCompleted {
		t.Fatalf("state = %s, want completed", svc.State())
	}
}

func TestRun_SourceFailureIsFatal(t *testing.T) {
	svc := New(domain.Ports{
		Source: &memSource{recs: scenarioRecords(), errAt: 2},
	}, mustPack(t), Config{ChunkSize: 10})

	_, err := svc.Run(context.Background())
	if !perr.IsCode(err, perr.ErrorCodeSourceRead) {
		t.Fatalf("error code = %v, want source_read", err)
	}
	if svc.State() != domain.StateFailed {
		t.Fatalf("state = %s, want failed", svc.State())
	}
}

func mixedRecords(n int) []domain.Record {
	texts := []string{
		"Excelente servicio, muy amable el personal",
		"la app no funciona y es muy caro",
		"demasiada demora en la fila",
		"todo bien",
		"pésima atención, esperé una hora",
	}
	out := make([]domain.Record, n)
	for i := range out {
		rec := domain.Record{
			ID:   fmt.Sprintf("r%d", i),
			Text: texts[i%len(texts)],
		}
		if i%3 != 0 {
			rec.Rating = f(float64(i % 11))
		}
		out[i] = rec
	}
	return out
}

func sameAggregate(t *testing.T, a, b domain.AggregateResult) {
	t.Helper()
	if a.TotalRecords != b.TotalRecords || a.TotalChunks != b.TotalChunks ||
		a.DuplicateCount != b.DuplicateCount || a.FailedAnalyses != b.FailedAnalyses {
		t.Fatalf("count fields differ: %+v vs %+v", a, b)
	}
	testkit.NearlyEqual(t, a.DuplicationRate, b.DuplicationRate, 1e-6)
	testkit.NearlyEqual(t, a.NPS, b.NPS, 1e-6)
	testkit.NearlyEqual(t, a.CSI, b.CSI, 1e-6)
	samePct(t, a.EmotionPercentages, b.EmotionPercentages)
	samePct(t, a.ThemePercentages, b.ThemePercentages)
}

func samePct(t *testing.T, a, b map[string]float64) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("percentage keys differ: %v vs %v", a, b)
	}
	for name, av := range a {
		testkit.NearlyEqual(t, av, b[name], 1e-6)
	}
}

func TestRun_SequentialMatchesParallel(t *testing.T) {
	recs := mixedRecords(37)
	p := mustPack(t)

	run := func(workers int) domain.AggregateResult {
		svc := New(domain.Ports{Source: &memSource{recs: recs}},
			p, Config{ChunkSize: 5, Workers: workers})
		rep, err := svc.Run(context.Background())
		if err != nil {
			t.Fatalf("run workers=%d: %v", workers, err)
		}
		return rep.Aggregate
	}

	sameAggregate(t, run(1), run(4))
}

func TestReduce_OrderIndependent(t *testing.T) {
	recs := mixedRecords(40)
	svc := New(domain.Ports{Source: &memSource{recs: recs}},
		mustPack(t), Config{ChunkSize: 7})
	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	base, err := Reduce(rep.Chunks)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 5; trial++ {
		shuffled := make([]domain.ChunkResult, len(rep.Chunks))
		copy(shuffled, rep.Chunks)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		got, err := Reduce(shuffled)
		if err != nil {
			t.Fatalf("reduce shuffled: %v", err)
		}
		sameAggregate(t, base, got)
	}
}

func TestReduce_WeightedMean(t *testing.T) {
	// 80% over 10 records and 20% over 30 records average to 35%, not 50%
	results := []domain.ChunkResult{
		{
			ChunkID:  0,
			Size:     10,
			Emotions: &domain.CategoryStats{Weights: map[string]float64{"alegria": 0.8, "enojo": 0.2}, Scored: 10},
		},
		{
			ChunkID:  1,
			Size:     30,
			Emotions: &domain.CategoryStats{Weights: map[string]float64{"alegria": 0.2, "enojo": 0.8}, Scored: 30},
		},
	}
	agg, err := Reduce(results)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	testkit.NearlyEqual(t, agg.EmotionPercentages["alegria"], 35, 1e-6)
	testkit.NearlyEqual(t, agg.EmotionPercentages["enojo"], 65, 1e-6)
}

func TestReduce_SkipsFailedAnalysisOnly(t *testing.T) {
	results := []domain.ChunkResult{
		{
			ChunkID:    0,
			Size:       4,
			Duplicates: &domain.DuplicateStats{Duplicates: 2, GroupCount: 1},
			Failed:     map[domain.Analysis]string{domain.AnalysisEmotions: "boom"},
		},
		{
			ChunkID:  1,
			Size:     4,
			Emotions: &domain.CategoryStats{Weights: map[string]float64{"alegria": 1}, Scored: 4},
		},
	}
	agg, err := Reduce(results)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if agg.DuplicateCount != 2 || agg.FailedAnalyses != 1 {
		t.Fatalf("agg = %+v", agg)
	}
	// only chunk 1 contributes emotion mass
	testkit.NearlyEqual(t, agg.EmotionPercentages["alegria"], 100, 1e-6)
}

func TestReduce_NoUsableChunks(t *testing.T) {
	results := []domain.ChunkResult{
		{ChunkID: 0, Size: 3, Failed: map[domain.Analysis]string{domain.AnalysisEmotions: "x"}},
	}
	_, err := Reduce(results)
	if !perr.IsCode(err, perr.ErrorCodeAggregation) {
		t.Fatalf("error code = %v, want aggregation", err)
	}

	_, err = Reduce(nil)
	if !perr.IsCode(err, perr.ErrorCodeAggregation) {
		t.Fatalf("empty reduce code = %v, want aggregation", err)
	}
}

func TestWorker_ClassifierOverridesEmotions(t *testing.T) {
	cl := &stubClassifier{vec: map[string]float64{"sorpresa": 3, "alegria": 1}}
	w := NewWorker(mustPack(t), WorkerConfig{Classifier: cl})

	res := w.Process(context.Background(), 0,
		[]domain.Record{{ID: "a", Text: "Excelente servicio"}},
		[]domain.Analysis{domain.AnalysisEmotions})

	if cl.hits != 1 {
		t.Fatalf("classifier hits = %d", cl.hits)
	}
	testkit.NearlyEqual(t, res.Emotions.Weights["sorpresa"], 0.75, 1e-6)
	testkit.NearlyEqual(t, res.Emotions.Weights["alegria"], 0.25, 1e-6)
	if res.Emotions.Counts["sorpresa"] != 1 {
		t.Fatalf("dominant counts = %v", res.Emotions.Counts)
	}
}

func TestWorker_ClassifierFailureFallsBack(t *testing.T) {
	cl := &stubClassifier{err: perr.Classifierf("quota exhausted")}
	w := NewWorker(mustPack(t), WorkerConfig{Classifier: cl})

	res := w.Process(context.Background(), 0,
		[]domain.Record{{ID: "a", Text: "qqq zzz"}},
		[]domain.Analysis{domain.AnalysisEmotions})

	if cl.hits != 1 {
		t.Fatalf("classifier hits = %d", cl.hits)
	}
	// lexical fallback: no match defaults to neutral
	testkit.NearlyEqual(t, res.Emotions.Weights["neutral"], 1, 1e-6)
	if len(res.Failed) != 0 {
		t.Fatalf("classifier failure must not fail the analysis: %v", res.Failed)
	}
}

func TestWorker_UnknownAnalysisRecorded(t *testing.T) {
	w := NewWorker(mustPack(t), WorkerConfig{})
	res := w.Process(context.Background(), 3,
		[]domain.Record{{ID: "a", Text: "hola"}},
		[]domain.Analysis{"sentiment"})

	if msg, ok := res.Failed["sentiment"]; !ok || msg == "" {
		t.Fatalf("failed map = %v", res.Failed)
	}
	if res.Size != 1 || res.ChunkID != 3 {
		t.Fatalf("res = %+v", res)
	}
}

func TestWorker_ThemeAsymmetry(t *testing.T) {
	w := NewWorker(mustPack(t), WorkerConfig{})
	res := w.Process(context.Background(), 0,
		[]domain.Record{{ID: "a", Text: ""}},
		[]domain.Analysis{domain.AnalysisEmotions, domain.AnalysisThemes})

	testkit.NearlyEqual(t, res.Emotions.Weights["neutral"], 1, 1e-6)
	if res.Emotions.Scored != 1 {
		t.Fatalf("emotion scored = %d", res.Emotions.Scored)
	}
	if res.Themes.Scored != 0 || len(res.Themes.Weights) != 0 {
		t.Fatalf("theme stats = %+v", res.Themes)
	}
}

func TestSchedulerStates(t *testing.T) {
	sched := NewScheduler(mustPack(t), nil, SchedulerConfig{})
	if sched.State() != domain.StateIdle {
		t.Fatalf("initial state = %s", sched.State())
	}
}

func TestParseAnalyses(t *testing.T) {
	if got := domain.ParseAnalyses(nil); len(got) != 3 {
		t.Fatalf("default analyses = %v", got)
	}
	got := domain.ParseAnalyses([]string{"themes", "bogus", "themes", "duplicates"})
	want := []domain.Analysis{domain.AnalysisThemes, domain.AnalysisDuplicates}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("parsed = %v, want %v", got, want)
	}
}
