// Package jsonfile writes the run report as pretty-printed JSON, either to
// a file or to any writer (stdout in the CLI)
package jsonfile

import (
	"context"
	"encoding/json"
	"io"
	"os"

	perr "sondeo/internal/platform/errors"
	"sondeo/internal/services/batch/domain"
)

// Sink implements domain.SinkPort
type Sink struct {
	path string
	w    io.Writer
}

// New returns a sink that writes to path, creating or truncating it
func New(path string) *Sink { return &Sink{path: path} }

// NewWriter returns a sink over an arbitrary writer
func NewWriter(w io.Writer) *Sink { return &Sink{w: w} }

// Write serializes the report
func (s *Sink) Write(_ context.Context, rep *domain.Report) error {
	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return perr.JSONErrf("encode report: %v", err)
	}
	out = append(out, '\n')

	if s.w != nil {
		if _, err := s.w.Write(out); err != nil {
			return perr.Internalf("write report: %v", err)
		}
		return nil
	}
	if err := os.WriteFile(s.path, out, 0o644); err != nil {
		return perr.Internalf("write %s: %v", s.path, err)
	}
	return nil
}
