package pipeline

import (
	"fmt"
	"strings"
)

// PipelineError is the single error kind returned by a failed run. It carries
// enough context to diagnose the failure without running again.
type PipelineError struct {
	// Kind is one of the run failure sentinels of pkg/common/errors.
	Kind error

	// Reference describes the reference that failed to resolve, if any.
	Reference string

	// Identifier is the offending stage identifier or parameter name, if any.
	Identifier string

	// Sequence is a copy of the identifier sequence at the time of failure.
	Sequence []string

	// Records is a copy of the trace at the time of failure.
	Records []Record

	// Detail is a human-readable explanation.
	Detail string
}

func newError(kind error, seq []string, records []Record) *PipelineError {
	return &PipelineError{
		Kind:     kind,
		Sequence: append([]string(nil), seq...),
		Records:  append([]Record(nil), records...),
	}
}

func (e *PipelineError) withReference(ref string) *PipelineError {
	e.Reference = ref
	return e
}

func (e *PipelineError) withIdentifier(id string) *PipelineError {
	e.Identifier = id
	return e
}

func (e *PipelineError) withDetail(detail string) *PipelineError {
	e.Detail = detail
	return e
}

func (e *PipelineError) Error() string {
	var b strings.Builder
	b.WriteString("pipeline: ")
	b.WriteString(e.Kind.Error())
	if e.Reference != "" {
		fmt.Fprintf(&b, " (reference %s)", e.Reference)
	}
	if e.Identifier != "" {
		fmt.Fprintf(&b, " (identifier %q)", e.Identifier)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	fmt.Fprintf(&b, "; sequence=%v", e.Sequence)
	records := make([]string, len(e.Records))
	for i, r := range e.Records {
		records[i] = r.String()
	}
	fmt.Fprintf(&b, " records=[%s]", strings.Join(records, ", "))
	return b.String()
}

// Unwrap exposes Kind to errors.Is.
func (e *PipelineError) Unwrap() error {
	return e.Kind
}
