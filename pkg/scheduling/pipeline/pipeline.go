package pipeline

import (
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vnykmshr/goplumb/pkg/metrics"
)

// Config holds pipeline configuration options.
type Config struct {
	// Name labels log lines and metrics. Defaults to "default".
	Name string

	// InitializeOutput builds the shared output of each run.
	// If nil, every run starts with an empty Params.
	InitializeOutput func() interface{}

	// FinalizeOutput post-processes the shared output after a successful run.
	// It can be replaced for a single run with WithFinalizer.
	FinalizeOutput func(out interface{}, records []Record, params Params)

	// ExitOnStatus ends the run after the first stage whose status meets it.
	// Nil disables the rule.
	ExitOnStatus Condition

	// Loop wraps positions modulo the sequence length, so the run only ends
	// through a fork exit or ExitOnStatus.
	Loop bool

	// Logger receives debug traces of the run loop. If nil, nothing is logged.
	Logger *slog.Logger

	// Metrics records run, stage and fork counters. If nil, nothing is recorded.
	Metrics *metrics.Registry

	// OnStageComplete is called after a stage's record is appended.
	OnStageComplete func(rec Record)

	// OnStageSkipped is called when a stage's requirements are not met.
	OnStageSkipped func(id string, index int)

	// OnFork is called after a fork has been evaluated and resolved.
	OnFork func(id string, result ForkResult, target Target)

	// OnRunComplete is called when a run ends, successfully or not.
	OnRunComplete func(out *Output, err error)
}

// Pipeline is an ordered sequence of unit identifiers plus the catalog that
// maps identifiers to stages and forks.
//
// A pipeline may be extended with Append, Prepend and Insert between runs.
// It must not be modified while one of its runs is in progress; doing so is
// the caller's responsibility and is not guarded.
type Pipeline struct {
	id       string
	config   Config
	catalog  map[string]Unit
	sequence []string
}

// New creates a pipeline with default configuration from elements.
func New(elements ...Element) *Pipeline {
	return NewWithConfig(Config{}, elements...)
}

// NewWithConfig creates a pipeline with the specified configuration.
//
// A bare *Stage or *Fork is registered under its own id and sequenced under
// it. An ID is sequenced without a catalog entry. Bindings register units by
// name. A *Pipeline contributes its catalog and its whole sequence.
func NewWithConfig(config Config, elements ...Element) *Pipeline {
	p := &Pipeline{
		id:      uuid.NewString(),
		config:  config,
		catalog: make(map[string]Unit),
	}
	p.Append(elements...)
	return p
}

// ID returns the pipeline's opaque identifier.
func (p *Pipeline) ID() string { return p.id }

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.config }

// Name returns the configured name, or "default".
func (p *Pipeline) Name() string {
	if p.config.Name == "" {
		return "default"
	}
	return p.config.Name
}

// Append adds elements to the end of the sequence.
func (p *Pipeline) Append(elements ...Element) *Pipeline {
	return p.Insert(len(p.sequence), elements...)
}

// Prepend adds elements to the start of the sequence, keeping their order.
func (p *Pipeline) Prepend(elements ...Element) *Pipeline {
	return p.Insert(0, elements...)
}

// Insert splices elements into the sequence before position index. Negative
// indexes count from the end; out-of-range indexes are clamped.
func (p *Pipeline) Insert(index int, elements ...Element) *Pipeline {
	n := len(p.sequence)
	if index < 0 {
		index += n
	}
	if index < 0 {
		index = 0
	}
	if index > n {
		index = n
	}

	var ids []string
	for _, el := range elements {
		ids = append(ids, p.register(el)...)
	}

	seq := make([]string, 0, n+len(ids))
	seq = append(seq, p.sequence[:index]...)
	seq = append(seq, ids...)
	seq = append(seq, p.sequence[index:]...)
	p.sequence = seq
	return p
}

// register adds the catalog entries of el and returns the identifiers it
// contributes to the sequence.
func (p *Pipeline) register(el Element) []string {
	switch v := el.(type) {
	case *Stage:
		if v == nil {
			return nil
		}
		p.catalog[v.ID()] = v
		return []string{v.ID()}
	case *Fork:
		if v == nil {
			return nil
		}
		p.catalog[v.ID()] = v
		return []string{v.ID()}
	case ID:
		return []string{string(v)}
	case Bindings:
		for name, u := range v {
			p.catalog[name] = u
		}
		return nil
	case *Pipeline:
		if v == nil {
			return nil
		}
		for name, u := range v.catalog {
			p.catalog[name] = u
		}
		return append([]string(nil), v.sequence...)
	default:
		return nil
	}
}

// Add returns a new pipeline holding p followed by other. p is unchanged and
// the result keeps p's configuration.
func (p *Pipeline) Add(other Element) *Pipeline {
	out := NewWithConfig(p.config, p)
	out.Append(other)
	return out
}

// Len returns the length of the sequence.
func (p *Pipeline) Len() int { return len(p.sequence) }

// Sequence returns a copy of the identifier sequence.
func (p *Pipeline) Sequence() []string {
	return append([]string(nil), p.sequence...)
}

// Contains reports whether id appears in the sequence.
func (p *Pipeline) Contains(id string) bool {
	return indexOf(p.sequence, id) >= 0
}

// Lookup returns the unit registered under id.
func (p *Pipeline) Lookup(id string) (Unit, bool) {
	u, ok := p.catalog[id]
	return u, ok
}

// Catalog returns a copy of the name to unit mapping. It can be passed back
// to New as Bindings.
func (p *Pipeline) Catalog() Bindings {
	out := make(Bindings, len(p.catalog))
	for name, u := range p.catalog {
		out[name] = u
	}
	return out
}

// Units returns the resolved units in sequence order. Identifiers without a
// catalog entry are skipped.
func (p *Pipeline) Units() []Element {
	out := make([]Element, 0, len(p.sequence))
	for _, u := range p.All() {
		out = append(out, u)
	}
	return out
}

// All iterates over (identifier, unit) pairs in sequence order, skipping
// identifiers without a catalog entry.
func (p *Pipeline) All() iter.Seq2[string, Unit] {
	return func(yield func(string, Unit) bool) {
		for _, id := range p.sequence {
			u, ok := p.catalog[id]
			if !ok {
				continue
			}
			if !yield(id, u) {
				return
			}
		}
	}
}

func (p *Pipeline) element() {}
