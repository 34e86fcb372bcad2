package pipeline

import (
	"github.com/google/uuid"
)

// Element is anything a pipeline can be assembled from: a *Stage, a *Fork,
// an ID, a Bindings map or a whole *Pipeline.
type Element interface {
	element()
}

// Unit is an executable catalog entry: a *Stage or a *Fork.
type Unit interface {
	Element

	// ID returns the unit's process-unique opaque identifier.
	ID() string
}

// ID places an identifier in the sequence without registering a unit. It
// must be bound through Bindings before the pipeline runs.
type ID string

func (ID) element() {}

// Bindings registers units under chosen names without touching the sequence.
type Bindings map[string]Unit

func (Bindings) element() {}

// StageConfig holds the callbacks of a stage. Every field is optional.
type StageConfig struct {
	// Requires gates execution on the status of other stages.
	Requires []Requirement

	// Primer preprocesses; its result is passed to the later callbacks.
	Primer func(c Call) interface{}

	// Action mutates the shared output in place.
	Action func(c Call)

	// Export returns parameters merged into the mapping for all later stages.
	Export func(c Call) Params

	// Status returns the stage's exit status. Defaults to 0.
	Status func(c Call) int

	// Message returns a human-readable note. Defaults to "".
	Message func(c Call, status int) string
}

// Stage is a named processing unit. Its callbacks run in the fixed order
// primer, action, export, status, message.
type Stage struct {
	id  string
	cfg StageConfig
}

// NewStage creates a stage with a fresh opaque id.
func NewStage(cfg StageConfig) *Stage {
	cfg.Requires = append([]Requirement(nil), cfg.Requires...)
	return &Stage{id: uuid.NewString(), cfg: cfg}
}

// ID returns the stage's opaque identifier.
func (s *Stage) ID() string { return s.id }

// Requires returns a copy of the stage's requirements.
func (s *Stage) Requires() []Requirement {
	return append([]Requirement(nil), s.cfg.Requires...)
}

// Add concatenates s with other into a new pipeline.
func (s *Stage) Add(other Element) *Pipeline {
	return New(s, other)
}

func (s *Stage) element() {}

type stageResult struct {
	exported Params
	status   int
	message  string
}

// execute invokes the callbacks in order. params is the mapping in effect
// before this stage; the caller merges the returned exports.
func (s *Stage) execute(c Call) (stageResult, Params) {
	var res stageResult
	if s.cfg.Primer != nil {
		c.Primer = s.cfg.Primer(c)
	}
	if s.cfg.Action != nil {
		s.cfg.Action(c)
	}
	if s.cfg.Export != nil {
		res.exported = s.cfg.Export(c)
	}
	params := c.Params
	if len(res.exported) > 0 {
		params = params.Merge(res.exported)
		c.Params = params
	}
	if s.cfg.Status != nil {
		res.status = s.cfg.Status(c)
	}
	if s.cfg.Message != nil {
		res.message = s.cfg.Message(c, res.status)
	}
	return res, params
}

// ForkResult is the decision of a fork. The zero value exits the pipeline.
type ForkResult struct {
	kind forkKind
	id   string
	ref  Reference
}

type forkKind int

const (
	forkExit forkKind = iota
	forkGoTo
	forkGoToRef
)

// Exit requests that the pipeline stop after the fork.
func Exit() ForkResult { return ForkResult{} }

// GoTo continues at the first position of id in the sequence.
func GoTo(id string) ForkResult { return ForkResult{kind: forkGoTo, id: id} }

// GoToRef continues at the target of ref.
func GoToRef(ref Reference) ForkResult {
	if ref == nil {
		return Exit()
	}
	return ForkResult{kind: forkGoToRef, ref: ref}
}

// GoToOffset continues delta positions away from the fork.
func GoToOffset(delta int) ForkResult { return GoToRef(ByIncrement(delta)) }

// IsExit reports whether r stops the pipeline.
func (r ForkResult) IsExit() bool { return r.kind == forkExit }

func (r ForkResult) String() string {
	switch r.kind {
	case forkGoTo:
		return "GoTo(" + r.id + ")"
	case forkGoToRef:
		return "GoToRef(" + r.ref.String() + ")"
	default:
		return "Exit"
	}
}

// Fork is a branch point. It selects the next sequence position or ends the
// run, and never appears in the trace.
type Fork struct {
	id string
	fn func(c Call) ForkResult
}

// NewFork creates a fork with a fresh opaque id. A nil fn always exits.
func NewFork(fn func(c Call) ForkResult) *Fork {
	return &Fork{id: uuid.NewString(), fn: fn}
}

// ID returns the fork's opaque identifier.
func (f *Fork) ID() string { return f.id }

// Add concatenates f with other into a new pipeline.
func (f *Fork) Add(other Element) *Pipeline {
	return New(f, other)
}

func (f *Fork) element() {}

func (f *Fork) eval(c Call) ForkResult {
	if f.fn == nil {
		return Exit()
	}
	return f.fn(c)
}
