package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sondeo/internal/core/lexicon"
	"sondeo/internal/platform/logger"
	"sondeo/internal/services/batch/domain"
	"sondeo/internal/services/batch/ingest"
)

// Config for the batch service
type Config struct {
	ChunkSize      int     // 0 = auto-size from TargetMemoryMB
	Workers        int     // <= 1 = sequential
	TargetMemoryMB float64 // budget for one materialized chunk
	Fuzzy          bool
	Threshold      float64
	Analyses       []domain.Analysis
}

// Service implements domain.RunnerPort
type Service struct {
	source     domain.SourcePort
	classifier domain.ClassifierPort
	sink       domain.SinkPort
	pack       *lexicon.Pack
	sched      *Scheduler
	cfg        Config
}

// New constructs a batch service
func New(ports domain.Ports, p *lexicon.Pack, cfg Config) *Service {
	if len(cfg.Analyses) == 0 {
		cfg.Analyses = domain.AllAnalyses()
	}
	return &Service{
		source:     ports.Source,
		classifier: ports.Classifier,
		sink:       ports.Sink,
		pack:       p,
		sched: NewScheduler(p, ports.Classifier, SchedulerConfig{
			Workers:   cfg.Workers,
			Analyses:  cfg.Analyses,
			Fuzzy:     cfg.Fuzzy,
			Threshold: cfg.Threshold,
		}),
		cfg: cfg,
	}
}

// State reports the scheduler lifecycle
func (s *Service) State() domain.State { return s.sched.State() }

// Run executes one full pipeline pass: size chunks, drain the source
// through workers, reduce, and hand the report to the sink if one is
// wired. Callers always get a report unless the source cannot be read or
// zero chunks produced usable results
func (s *Service) Run(ctx context.Context) (*domain.Report, error) {
	runID := uuid.NewString()
	ctx = logger.WithRun(ctx, runID)
	started := time.Now().UTC()

	size := s.cfg.ChunkSize
	if size <= 0 {
		est, err := ingest.AutoSize(ctx, s.source, s.cfg.TargetMemoryMB)
		if err != nil {
			return nil, err
		}
		size = est
		logger.C(ctx).Info().
			Int("chunk_size", size).
			Float64("target_mb", s.cfg.TargetMemoryMB).
			Msg("auto-sized chunks")
	}

	stream, err := ingest.New(s.source, size).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	results, err := s.sched.Run(ctx, stream)
	if err != nil {
		return nil, err
	}

	agg, err := Reduce(results)
	if err != nil {
		return nil, err
	}

	rep := &domain.Report{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Aggregate:  agg,
		Chunks:     results,
	}

	logger.C(ctx).Info().
		Int("chunks", agg.TotalChunks).
		Int("records", agg.TotalRecords).
		Int("failed_analyses", agg.FailedAnalyses).
		Float64("nps", agg.NPS).
		Float64("csi", agg.CSI).
		Dur("elapsed", rep.FinishedAt.Sub(started)).
		Msg("batch run complete")

	if s.sink != nil {
		if err := s.sink.Write(ctx, rep); err != nil {
			logger.C(ctx).Error().Err(err).Msg("sink write failed")
		}
	}
	return rep, nil
}
