// Package pg reads feedback records from a Postgres table using pgxpool.
// Each Iterate runs a fresh ordered query so passes are identical
package pg

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	perr "sondeo/internal/platform/errors"
	"sondeo/internal/services/batch/domain"
)

// Config configures the feedback source
type Config struct {
	URL      string
	Table    string
	MaxConns int32
}

// Source implements domain.SourcePort over a feedback table
type Source struct {
	pool  *pgxpool.Pool
	table string
}

var newPool = pgxpool.NewWithConfig

// Open connects the pool and returns a Source
func Open(ctx context.Context, cfg Config) (*Source, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, perr.SourceReadf("parse postgres url: %v", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := newPool(ctx, pcfg) // use seam
	if err != nil {
		return nil, perr.SourceReadf("connect postgres: %v", err)
	}
	table := cfg.Table
	if table == "" {
		table = "feedback"
	}
	return &Source{pool: pool, table: table}, nil
}

// Close closes the pool
func (s *Source) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Iterate starts a fresh ordered pass over the table. The explicit ORDER BY
// is what makes re-iteration deterministic
func (s *Source) Iterate(ctx context.Context) (domain.RecordIterator, error) {
	q := fmt.Sprintf(
		`SELECT id::text, text, rating, created_at FROM %s ORDER BY created_at, id`,
		pgx.Identifier{s.table}.Sanitize(),
	)
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, perr.SourceReadf("query %s: %v", s.table, err)
	}
	return &iterator{rows: rows}, nil
}

type iterator struct {
	rows pgx.Rows
}

func (it *iterator) Next() (domain.Record, error) {
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return domain.Record{}, perr.SourceReadf("read row: %v", err)
		}
		return domain.Record{}, io.EOF
	}

	var (
		rec domain.Record
		ts  *time.Time
	)
	if err := it.rows.Scan(&rec.ID, &rec.Text, &rec.Rating, &ts); err != nil {
		return domain.Record{}, perr.SourceReadf("scan row: %v", err)
	}
	rec.Timestamp = ts
	return rec, nil
}

func (it *iterator) Close() error {
	it.rows.Close()
	return nil
}
