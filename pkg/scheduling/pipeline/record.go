package pipeline

import "fmt"

// Record is the trace entry of one executed stage.
type Record struct {
	// StageID is the identifier the stage was executed under.
	StageID string `json:"stage_id" yaml:"stage_id"`

	// Message is the value returned by the stage's message callback.
	Message string `json:"message" yaml:"message"`

	// Status is the value returned by the stage's status callback.
	Status int `json:"status" yaml:"status"`

	// Index is the sequence position the stage was executed at.
	Index int `json:"index" yaml:"index"`

	// Count is the stage counter at execution time (0 for the first stage).
	Count int `json:"count" yaml:"count"`
}

func (r Record) String() string {
	return fmt.Sprintf("%s@%d(status=%d, message=%q)", r.StageID, r.Index, r.Status, r.Message)
}

// Call carries the arguments of a single callback invocation.
type Call struct {
	// Params is the live parameter mapping. Callbacks must not modify it;
	// new parameters are returned from Export instead.
	Params Params

	// Out is the shared output, mutated in place by actions.
	Out interface{}

	// Primer is the value returned by the stage's primer. Always nil for
	// primers themselves and for forks.
	Primer interface{}

	// Count is the stage counter. Within a stage's callbacks it is the index
	// of that stage among executed stages; forks see the counter of the most
	// recently executed stage (-1 before the first).
	Count int

	// Records is the trace so far, oldest first. Read-only.
	Records []Record
}

// Condition decides whether a status satisfies a requirement or exit rule.
type Condition interface {
	Met(status int) bool
	String() string
}

// StatusIs is met by exactly one status value.
type StatusIs int

// Met reports status == s.
func (s StatusIs) Met(status int) bool { return status == int(s) }

func (s StatusIs) String() string { return fmt.Sprintf("status == %d", int(s)) }

// StatusFunc adapts a predicate to a Condition.
type StatusFunc func(status int) bool

// Met evaluates the predicate.
func (f StatusFunc) Met(status int) bool { return f(status) }

func (f StatusFunc) String() string { return "status predicate" }
