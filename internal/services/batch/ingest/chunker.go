// Package ingest turns a record source into a lazy, finite, restartable
// sequence of bounded chunks
package ingest

import (
	"context"
	"io"

	perr "sondeo/internal/platform/errors"
	"sondeo/internal/services/batch/domain"
)

// Chunker slices a source into chunks of at most Size records, preserving
// source order. Opening twice over the same source yields identical chunking
type Chunker struct {
	src  domain.SourcePort
	size int
}

// New builds a Chunker. A non-positive size falls back to 1
func New(src domain.SourcePort, size int) *Chunker {
	if size <= 0 {
		size = 1
	}
	return &Chunker{src: src, size: size}
}

// Size returns the configured chunk size
func (c *Chunker) Size() int { return c.size }

// Open starts a fresh pass over the source
func (c *Chunker) Open(ctx context.Context) (*Stream, error) {
	it, err := c.src.Iterate(ctx)
	if err != nil {
		return nil, perr.SourceReadf("open source: %v", err)
	}
	return &Stream{it: it, size: c.size}, nil
}

// Stream is one pass of chunked iteration. Not safe for concurrent use;
// the scheduler pulls chunks from a single goroutine
type Stream struct {
	it   domain.RecordIterator
	size int
	next int
	done bool
}

// Next materializes the next chunk and its zero-based id. It returns io.EOF
// once the source is exhausted; a short final chunk is returned first.
// Any other error is a fatal source read failure
func (s *Stream) Next() ([]domain.Record, int, error) {
	if s.done {
		return nil, 0, io.EOF
	}

	chunk := make([]domain.Record, 0, s.size)
	for len(chunk) < s.size {
		rec, err := s.it.Next()
		if err == io.EOF {
			s.done = true
			break
		}
		if err != nil {
			s.done = true
			return nil, 0, perr.SourceReadf("read record: %v", err)
		}
		chunk = append(chunk, rec)
	}

	if len(chunk) == 0 {
		return nil, 0, io.EOF
	}
	id := s.next
	s.next++
	return chunk, id, nil
}

// Close releases the underlying iterator
func (s *Stream) Close() error {
	s.done = true
	return s.it.Close()
}
