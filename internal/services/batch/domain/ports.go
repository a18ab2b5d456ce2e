package domain

import "context"

// RecordIterator walks one pass over a source. Next returns io.EOF when
// the source is exhausted; any other error is a source read failure
type RecordIterator interface {
	Next() (Record, error)
	Close() error
}

// SourcePort yields records. Iterate may be called more than once; each
// call starts a fresh pass over the same data in the same order
type SourcePort interface {
	Iterate(ctx context.Context) (RecordIterator, error)
}

// ClassifierPort optionally overrides the lexical emotion vector for one
// text. Failures are recovered at the call site; the lexical result stands
type ClassifierPort interface {
	Classify(ctx context.Context, text string) (map[string]float64, error)
}

// SinkPort receives the finished report. Serialization is the sink's concern
type SinkPort interface {
	Write(ctx context.Context, rep *Report) error
}

// RunnerPort is the external port for the batch job
type RunnerPort interface {
	Run(ctx context.Context) (*Report, error)
	State() State
}

// Ports are dependencies injected into the batch module
type Ports struct {
	Source     SourcePort     // required
	Classifier ClassifierPort // optional
	Sink       SinkPort       // optional
}
