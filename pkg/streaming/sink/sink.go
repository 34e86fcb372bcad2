package sink

import (
	"context"
	"errors"
	"time"

	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
	"github.com/vnykmshr/goplumb/pkg/metrics"
	"github.com/vnykmshr/goplumb/pkg/scheduling/pipeline"
)

// Sink receives one Entry per finished run.
type Sink interface {
	// Write stores e. It must be safe for concurrent use.
	Write(ctx context.Context, e Entry) error

	// Close releases the sink. Writes after Close fail with ErrClosed.
	Close() error
}

// Entry is the history record of one pipeline run.
type Entry struct {
	// Job is the scheduler job that triggered the run, if any.
	Job string `json:"job,omitempty" yaml:"job,omitempty"`

	// Pipeline is the pipeline's configured name.
	Pipeline string `json:"pipeline" yaml:"pipeline"`

	// PipelineID is the pipeline's opaque identifier.
	PipelineID string `json:"pipeline_id" yaml:"pipeline_id"`

	// RunID identifies the run. Empty when the run failed.
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty"`

	// Records is the trace of a successful run.
	Records []pipeline.Record `json:"records,omitempty" yaml:"records,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// Error is the failure message of an aborted run.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewEntry builds the entry of a run of p. out is nil when err is set.
func NewEntry(job string, p *pipeline.Pipeline, out *pipeline.Output, err error) Entry {
	e := Entry{
		Job:        job,
		Pipeline:   p.Name(),
		PipelineID: p.ID(),
	}
	if out != nil {
		e.RunID = out.RunID
		e.Records = out.Records
		e.StartedAt = out.StartTime
		e.FinishedAt = out.EndTime
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Failed reports whether the run aborted.
func (e Entry) Failed() bool { return e.Error != "" }

// LastStatus returns the status of the final trace entry.
func (e Entry) LastStatus() (int, bool) {
	if len(e.Records) == 0 {
		return 0, false
	}
	return e.Records[len(e.Records)-1].Status, true
}

// Instrumented wraps s so every write is counted under name.
func Instrumented(s Sink, name string, m *metrics.Registry) Sink {
	if m == nil {
		return s
	}
	return &instrumented{Sink: s, name: name, metrics: m}
}

type instrumented struct {
	Sink
	name    string
	metrics *metrics.Registry
}

func (s *instrumented) Write(ctx context.Context, e Entry) error {
	err := s.Sink.Write(ctx, e)
	s.metrics.SinkWrites.WithLabelValues(s.name, metrics.Result(err)).Inc()
	return err
}

// Multi writes every entry to all sinks. Failures are joined; one failing
// sink does not stop the others.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) Write(ctx context.Context, e Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closedError(module string) error {
	return gferrors.NewOperationError(module, "Write", gferrors.ErrClosed)
}
