// Package jsonl reads feedback records from a JSON Lines file, one object
// per line. Each Iterate call re-opens the file so a run can make several
// identical passes (sampling, then the real chunked pass)
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/google/uuid"

	perr "sondeo/internal/platform/errors"
	str "sondeo/internal/platform/strings"
	"sondeo/internal/services/batch/domain"
)

// maxLineBytes caps one record line; feedback comments are short but
// exports sometimes glue several together
const maxLineBytes = 1 << 20

// Source implements domain.SourcePort over a JSONL file
type Source struct {
	path string
}

// New returns a Source for path. The file is not touched until Iterate
func New(path string) *Source { return &Source{path: path} }

// Iterate opens a fresh pass over the file
func (s *Source) Iterate(_ context.Context) (domain.RecordIterator, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, perr.SourceReadf("open %s: %v", s.path, err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &iterator{f: f, sc: sc}, nil
}

type iterator struct {
	f    *os.File
	sc   *bufio.Scanner
	line int
}

// row is the wire shape of one record line
type row struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Rating    *float64 `json:"rating"`
	Timestamp *string  `json:"timestamp"`
}

func (it *iterator) Next() (domain.Record, error) {
	for {
		if !it.sc.Scan() {
			if err := it.sc.Err(); err != nil {
				return domain.Record{}, perr.SourceReadf("scan line %d: %v", it.line+1, err)
			}
			return domain.Record{}, io.EOF
		}
		it.line++

		raw := it.sc.Bytes()
		if len(raw) == 0 {
			continue // blank lines between records are tolerated
		}

		var r row
		if err := json.Unmarshal(raw, &r); err != nil {
			return domain.Record{}, perr.SourceReadf("line %d: %v", it.line, err)
		}

		rec := domain.Record{
			ID:     str.OrDefault(r.ID, uuid.NewString()),
			Text:   r.Text,
			Rating: r.Rating,
		}
		if r.Timestamp != nil {
			if ts, ok := parseTimestamp(*r.Timestamp); ok {
				rec.Timestamp = &ts
			}
		}
		return rec, nil
	}
}

func (it *iterator) Close() error { return it.f.Close() }
