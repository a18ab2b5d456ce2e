package service

import (
	"context"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"sondeo/internal/core/lexicon"
	"sondeo/internal/platform/logger"
	"sondeo/internal/platform/memory"
	"sondeo/internal/services/batch/domain"
	"sondeo/internal/services/batch/ingest"
)

// reclaimEvery is the sequential mode cadence for explicit memory
// reclamation between chunks
const reclaimEvery = 5

// SchedulerConfig selects the execution strategy. Workers <= 1 means
// sequential; anything above runs a fixed-size pool
type SchedulerConfig struct {
	Workers   int
	Analyses  []domain.Analysis
	Fuzzy     bool
	Threshold float64
}

// Scheduler drains a chunk stream through workers and collects results.
// Lifecycle: Idle -> Running -> Completed or Failed. Only a source read
// failure flips it to Failed; chunk-level errors stay on their results
type Scheduler struct {
	pack       *lexicon.Pack
	classifier domain.ClassifierPort
	cfg        SchedulerConfig

	mu    sync.Mutex
	state domain.State
}

// NewScheduler builds a scheduler over a compiled pack
func NewScheduler(p *lexicon.Pack, classifier domain.ClassifierPort, cfg SchedulerConfig) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if len(cfg.Analyses) == 0 {
		cfg.Analyses = domain.AllAnalyses()
	}
	return &Scheduler{
		pack:       p,
		classifier: classifier,
		cfg:        cfg,
		state:      domain.StateIdle,
	}
}

// State returns the current lifecycle state
func (s *Scheduler) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(st domain.State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Run drains the stream and returns every chunk result. Collection order
// is not significant; the aggregator's reduction is order-independent
func (s *Scheduler) Run(ctx context.Context, stream *ingest.Stream) ([]domain.ChunkResult, error) {
	s.setState(domain.StateRunning)

	var (
		results []domain.ChunkResult
		err     error
	)
	if s.cfg.Workers <= 1 {
		results, err = s.runSequential(ctx, stream)
	} else {
		results, err = s.runParallel(ctx, stream)
	}
	if err != nil {
		s.setState(domain.StateFailed)
		return nil, err
	}
	s.setState(domain.StateCompleted)
	return results, nil
}

// runSequential processes chunks one at a time on the calling goroutine,
// reclaiming memory every reclaimEvery chunks
func (s *Scheduler) runSequential(ctx context.Context, stream *ingest.Stream) ([]domain.ChunkResult, error) {
	w := s.newWorker()

	var results []domain.ChunkResult
	for {
		chunk, id, err := stream.Next()
		if err == io.EOF {
			return results, nil
		}
		if err != nil {
			return nil, err
		}

		results = append(results, w.Process(ctx, id, chunk, s.cfg.Analyses))

		if (id+1)%reclaimEvery == 0 {
			memory.Reclaim()
			logger.C(ctx).Debug().
				Int("chunk_id", id).
				Float64("rss_mb", memory.SnapshotMB()).
				Msg("reclaimed memory between chunks")
		}
	}
}

// runParallel fans chunks out to a fixed-size pool. Each submitted chunk
// gets a fresh worker so nothing mutable is shared; results are collected
// under a lock and the errgroup wait is the pre-aggregation barrier
func (s *Scheduler) runParallel(ctx context.Context, stream *ingest.Stream) ([]domain.ChunkResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	var (
		mu      sync.Mutex
		results []domain.ChunkResult
	)

	var readErr error
	for {
		chunk, id, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			readErr = err
			break
		}

		g.Go(func() error {
			w := s.newWorker()
			res := w.Process(gctx, id, chunk, s.cfg.Analyses)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}
	return results, nil
}

func (s *Scheduler) newWorker() *Worker {
	return NewWorker(s.pack, WorkerConfig{
		Fuzzy:      s.cfg.Fuzzy,
		Threshold:  s.cfg.Threshold,
		Classifier: s.classifier,
	})
}
