// Package clickhouse persists per-chunk results and the run aggregate into
// ClickHouse for downstream dashboards
package clickhouse

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	perr "sondeo/internal/platform/errors"
	"sondeo/internal/services/batch/domain"
)

// Config configures the sink
type Config struct {
	URL         string
	RunsTable   string
	ChunksTable string
}

// Sink implements domain.SinkPort over a native ClickHouse connection
type Sink struct {
	conn driver.Conn
	cfg  Config
}

var connect = func(opts *clickhouse.Options) (driver.Conn, error) {
	return clickhouse.Open(opts)
}

// Open parses the DSN and connects
func Open(ctx context.Context, cfg Config) (*Sink, error) {
	opts, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, perr.Unavailablef("parse clickhouse dsn: %v", err)
	}
	conn, err := connect(opts)
	if err != nil {
		return nil, perr.Unavailablef("connect clickhouse: %v", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, perr.Unavailablef("ping clickhouse: %v", err)
	}
	if cfg.RunsTable == "" {
		cfg.RunsTable = "analytics_runs"
	}
	if cfg.ChunksTable == "" {
		cfg.ChunksTable = "analytics_chunks"
	}
	return &Sink{conn: conn, cfg: cfg}, nil
}

// Close closes the connection
func (s *Sink) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Write inserts one row per chunk plus one aggregate row, each in its own
// native batch
func (s *Sink) Write(ctx context.Context, rep *domain.Report) error {
	if err := s.writeRun(ctx, rep); err != nil {
		return err
	}
	return s.writeChunks(ctx, rep)
}

func (s *Sink) writeRun(ctx context.Context, rep *domain.Report) error {
	batch, err := s.conn.PrepareBatch(ctx,
		"INSERT INTO "+s.cfg.RunsTable+
			" (run_id, started_at, finished_at, total_records, total_chunks,"+
			" failed_analyses, duplicate_count, duplication_rate,"+
			" emotion_percentages, theme_percentages, nps, csi, csi_band)")
	if err != nil {
		return perr.Unavailablef("prepare run batch: %v", err)
	}

	agg := rep.Aggregate
	if err := batch.Append(
		rep.RunID,
		rep.StartedAt,
		rep.FinishedAt,
		uint64(agg.TotalRecords),
		uint64(agg.TotalChunks),
		uint64(agg.FailedAnalyses),
		uint64(agg.DuplicateCount),
		agg.DuplicationRate,
		agg.EmotionPercentages,
		agg.ThemePercentages,
		agg.NPS,
		agg.CSI,
		string(agg.CSIBand),
	); err != nil {
		return perr.Unavailablef("append run row: %v", err)
	}
	if err := batch.Send(); err != nil {
		return perr.Unavailablef("send run batch: %v", err)
	}
	return nil
}

func (s *Sink) writeChunks(ctx context.Context, rep *domain.Report) error {
	batch, err := s.conn.PrepareBatch(ctx,
		"INSERT INTO "+s.cfg.ChunksTable+
			" (run_id, chunk_id, size, duplicates, failed, memory_mb)")
	if err != nil {
		return perr.Unavailablef("prepare chunk batch: %v", err)
	}

	for _, ch := range rep.Chunks {
		dups := 0
		if ch.Duplicates != nil {
			dups = ch.Duplicates.Duplicates
		}
		failed := make([]string, 0, len(ch.Failed))
		for a := range ch.Failed {
			failed = append(failed, string(a))
		}
		if err := batch.Append(
			rep.RunID,
			uint32(ch.ChunkID),
			uint64(ch.Size),
			uint64(dups),
			failed,
			ch.MemorySnapshotMB,
		); err != nil {
			return perr.Unavailablef("append chunk %d: %v", ch.ChunkID, err)
		}
	}
	if err := batch.Send(); err != nil {
		return perr.Unavailablef("send chunk batch: %v", err)
	}
	return nil
}

var _ domain.SinkPort = (*Sink)(nil)
