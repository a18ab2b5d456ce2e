package ingest

import (
	"context"
	"io"
	"time"
	"unsafe"

	perr "sondeo/internal/platform/errors"
	"sondeo/internal/services/batch/domain"
)

const (
	// sampleRecords is how many records the estimator reads before sizing
	sampleRecords = 100

	// overheadFactor pads the per-record estimate for detector scratch
	// space (normalized copies, score vectors, hash buckets)
	overheadFactor = 2

	// MinChunkSize and MaxChunkSize clamp the estimate
	MinChunkSize = 50
	MaxChunkSize = 10000
)

// AutoSize samples the source and derives a chunk size that keeps one
// materialized chunk under targetMemoryMB. The sampling pass is discarded;
// the caller re-opens the source for the real run
func AutoSize(ctx context.Context, src domain.SourcePort, targetMemoryMB float64) (int, error) {
	if targetMemoryMB <= 0 {
		return MaxChunkSize, nil
	}

	it, err := src.Iterate(ctx)
	if err != nil {
		return 0, perr.SourceReadf("open source for sizing: %v", err)
	}
	defer it.Close()

	var sampled, bytes int
	for sampled < sampleRecords {
		rec, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, perr.SourceReadf("sample record: %v", err)
		}
		bytes += recordCost(rec)
		sampled++
	}
	if sampled == 0 {
		return MinChunkSize, nil
	}

	perRecord := float64(bytes) / float64(sampled)
	size := int(targetMemoryMB * 1024 * 1024 / (perRecord * overheadFactor))
	return clamp(size, MinChunkSize, MaxChunkSize), nil
}

// recordCost estimates one record's resident footprint in bytes
func recordCost(rec domain.Record) int {
	cost := int(unsafe.Sizeof(rec)) + len(rec.ID) + len(rec.Text)
	if rec.Rating != nil {
		cost += 8
	}
	if rec.Timestamp != nil {
		cost += int(unsafe.Sizeof(time.Time{}))
	}
	return cost
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
