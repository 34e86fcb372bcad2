package pipeline

import (
	"fmt"

	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
	"github.com/vnykmshr/goplumb/pkg/common/validation"
)

// Context is the read-only view of a run handed to references, requirement
// checks and forks.
type Context struct {
	// Sequence is the ordered list of identifiers being executed.
	Sequence []string

	// Index is the current sequence position.
	Index int

	// Loop reports whether positions wrap around the sequence.
	Loop bool

	// Records is the trace so far, oldest first.
	Records []Record

	// Params is the live parameter mapping.
	Params Params

	// Out is the live shared output.
	Out interface{}

	// Count is the number of executed stages minus one.
	Count int
}

// Target is a resolved reference: an identifier and its absolute position.
// The zero Target is the terminal target, returned by forward references
// that run off the end of a non-looping sequence.
type Target struct {
	ID    string
	Index int
}

// Terminal reports whether t signals that the pipeline should exit.
func (t Target) Terminal() bool {
	return t.ID == ""
}

func (t Target) String() string {
	if t.Terminal() {
		return "<terminal>"
	}
	return fmt.Sprintf("%s@%d", t.ID, t.Index)
}

// Reference points at a stage symbolically and is resolved against the live
// execution context. The set of references is closed: use the package
// variables and constructors below.
type Reference interface {
	// Resolve returns the absolute target of the reference in ctx.
	Resolve(ctx Context) (Target, error)

	String() string

	isReference()
}

// Fixed references.
var (
	// Previous refers to the most recently executed stage.
	Previous Reference = previousRef{}

	// First refers to the oldest executed stage.
	First Reference = firstRef{}

	// Last refers to the last identifier of the sequence.
	Last Reference = lastRef{}

	// Next refers to the position after the current one.
	Next Reference = offsetRef{delta: 1, name: "Next"}

	// Skip refers to the position two after the current one.
	Skip Reference = offsetRef{delta: 2, name: "Skip"}
)

// ByID refers to the first position of id in the sequence.
type ByID string

// ByIndex refers to an absolute sequence position.
type ByIndex int

// ByIncrement refers to a position relative to the current one.
type ByIncrement int

// PreviousN refers to the position n steps before the current one.
func PreviousN(n int) (Reference, error) {
	if err := validation.ValidateNonNegative("pipeline", "n", n); err != nil {
		return nil, err
	}
	return ByIncrement(-n), nil
}

// NextN refers to the position n steps after the current one.
func NextN(n int) (Reference, error) {
	if err := validation.ValidateNonNegative("pipeline", "n", n); err != nil {
		return nil, err
	}
	return ByIncrement(n), nil
}

type previousRef struct{}

func (previousRef) isReference()   {}
func (previousRef) String() string { return "Previous" }

func (r previousRef) Resolve(ctx Context) (Target, error) {
	if len(ctx.Records) == 0 {
		return Target{}, unresolved(r, ctx, "no stage has executed yet")
	}
	rec := ctx.Records[len(ctx.Records)-1]
	return Target{ID: rec.StageID, Index: rec.Index}, nil
}

type firstRef struct{}

func (firstRef) isReference()   {}
func (firstRef) String() string { return "First" }

func (r firstRef) Resolve(ctx Context) (Target, error) {
	if len(ctx.Records) == 0 {
		return Target{}, unresolved(r, ctx, "no stage has executed yet")
	}
	rec := ctx.Records[0]
	return Target{ID: rec.StageID, Index: rec.Index}, nil
}

type lastRef struct{}

func (lastRef) isReference()   {}
func (lastRef) String() string { return "Last" }

func (r lastRef) Resolve(ctx Context) (Target, error) {
	n := len(ctx.Sequence)
	if n == 0 {
		return Target{}, unresolved(r, ctx, "sequence is empty")
	}
	return Target{ID: ctx.Sequence[n-1], Index: n - 1}, nil
}

// offsetRef backs Next and Skip. Unlike ByIncrement it never fails: running
// off the end of a non-looping sequence yields the terminal target.
type offsetRef struct {
	delta int
	name  string
}

func (offsetRef) isReference()     {}
func (r offsetRef) String() string { return r.name }

func (r offsetRef) Resolve(ctx Context) (Target, error) {
	n := len(ctx.Sequence)
	i := ctx.Index + r.delta
	if n == 0 {
		return Target{}, nil
	}
	if ctx.Loop {
		i = wrap(i, n)
	}
	if i >= n {
		return Target{}, nil
	}
	return Target{ID: ctx.Sequence[i], Index: i}, nil
}

func (ByID) isReference() {}

func (r ByID) String() string { return fmt.Sprintf("ByID(%q)", string(r)) }

func (r ByID) Resolve(ctx Context) (Target, error) {
	if i := indexOf(ctx.Sequence, string(r)); i >= 0 {
		return Target{ID: string(r), Index: i}, nil
	}
	return Target{}, unresolved(r, ctx, "identifier not in sequence")
}

func (ByIndex) isReference() {}

func (r ByIndex) String() string { return fmt.Sprintf("ByIndex(%d)", int(r)) }

func (r ByIndex) Resolve(ctx Context) (Target, error) {
	i := int(r)
	if i < 0 || i >= len(ctx.Sequence) {
		return Target{}, unresolved(r, ctx, fmt.Sprintf("index out of range [0, %d)", len(ctx.Sequence)))
	}
	return Target{ID: ctx.Sequence[i], Index: i}, nil
}

func (ByIncrement) isReference() {}

func (r ByIncrement) String() string { return fmt.Sprintf("ByIncrement(%d)", int(r)) }

func (r ByIncrement) Resolve(ctx Context) (Target, error) {
	n := len(ctx.Sequence)
	if n == 0 {
		return Target{}, unresolved(r, ctx, "sequence is empty")
	}
	i := ctx.Index + int(r)
	if ctx.Loop {
		i = wrap(i, n)
	}
	if i < 0 {
		return Target{}, unresolved(r, ctx, fmt.Sprintf("position %d is before the start of the sequence", i))
	}
	if i >= n {
		return Target{}, nil
	}
	return Target{ID: ctx.Sequence[i], Index: i}, nil
}

// wrap maps i into [0, n) for n > 0.
func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func indexOf(seq []string, id string) int {
	for i, s := range seq {
		if s == id {
			return i
		}
	}
	return -1
}

func unresolved(r Reference, ctx Context, detail string) *PipelineError {
	return newError(gferrors.ErrUnresolvedReference, ctx.Sequence, ctx.Records).
		withReference(r.String()).
		withDetail(detail)
}
