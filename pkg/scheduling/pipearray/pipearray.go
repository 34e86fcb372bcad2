package pipearray

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	gfcontext "github.com/vnykmshr/goplumb/pkg/common/context"
	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
	"github.com/vnykmshr/goplumb/pkg/common/validation"
	"github.com/vnykmshr/goplumb/pkg/metrics"
	"github.com/vnykmshr/goplumb/pkg/scheduling/pipeline"
)

// Config holds array configuration options.
type Config struct {
	// Name labels log lines and metrics. Defaults to "default".
	Name string

	// MaxConcurrency caps the pipelines RunParallel executes at once.
	// Zero means no cap.
	MaxConcurrency int

	// Logger receives run summaries. If nil, nothing is logged.
	Logger *slog.Logger

	// Metrics records array runs. If nil, nothing is recorded.
	Metrics *metrics.Registry

	// OnPipelineComplete is called after each member finishes. It may be
	// called concurrently from RunParallel.
	OnPipelineComplete func(key string, out *pipeline.Output, err error)
}

type member struct {
	name string
	p    *pipeline.Pipeline
}

// key is the member's name, or the pipeline's id when unnamed.
func (m member) key() string {
	if m.name != "" {
		return m.name
	}
	return m.p.ID()
}

// Array runs independent pipelines with the same parameters. Members share
// neither output nor parameters.
type Array struct {
	config  Config
	members []member
	names   map[string]struct{}
}

// New creates an array with default configuration from positional pipelines.
func New(pipelines ...*pipeline.Pipeline) *Array {
	return NewWithConfig(Config{}, pipelines...)
}

// NewWithConfig creates an array with the specified configuration.
func NewWithConfig(config Config, pipelines ...*pipeline.Pipeline) *Array {
	a := &Array{config: config, names: make(map[string]struct{})}
	for _, p := range pipelines {
		a.Add(p)
	}
	return a
}

// Add appends a positional pipeline. Nil pipelines are ignored.
func (a *Array) Add(p *pipeline.Pipeline) *Array {
	if p != nil {
		a.members = append(a.members, member{p: p})
	}
	return a
}

// AddNamed appends a pipeline under name. Names must be unique and non-empty.
func (a *Array) AddNamed(name string, p *pipeline.Pipeline) error {
	if err := validation.ValidateNotEmpty("pipearray", "name", name); err != nil {
		return err
	}
	if err := validation.ValidateNotNil("pipearray", "pipeline", p); err != nil {
		return err
	}
	if _, ok := a.names[name]; ok {
		return gferrors.NewValidationError("pipearray", "name", name, "already registered")
	}
	a.names[name] = struct{}{}
	a.members = append(a.members, member{name: name, p: p})
	return nil
}

// Len returns the number of members.
func (a *Array) Len() int { return len(a.members) }

// Named reports whether any member was added by name. Results of a named
// array are keyed.
func (a *Array) Named() bool { return len(a.names) > 0 }

// Name returns the configured name, or "default".
func (a *Array) Name() string {
	if a.config.Name == "" {
		return "default"
	}
	return a.config.Name
}

// Run executes every member in order on the calling goroutine. The first
// failing member aborts the array.
func (a *Array) Run(params pipeline.Params) (*Result, error) {
	start := time.Now()
	res := a.newResult()

	var err error
	for i, m := range a.members {
		var out *pipeline.Output
		out, err = m.p.Run(params.Clone())
		a.complete(m, out, err)
		if err != nil {
			err = a.wrap("Run", m, err)
			break
		}
		res.set(i, m, out)
	}

	return a.finish("sequential", start, res, err)
}

// RunParallel executes the members concurrently, at most MaxConcurrency at a
// time. The first failure cancels members that have not started yet.
// Results keep member order regardless of completion order.
func (a *Array) RunParallel(ctx context.Context, params pipeline.Params) (*Result, error) {
	start := time.Now()
	res := a.newResult()
	outputs := make([]*pipeline.Output, len(a.members))

	g, gctx := errgroup.WithContext(ctx)
	if a.config.MaxConcurrency > 0 {
		g.SetLimit(a.config.MaxConcurrency)
	}

	for i, m := range a.members {
		local := params.Clone()
		g.Go(func() error {
			if gfcontext.IsCanceled(gctx) {
				return a.wrap("RunParallel", m, gctx.Err())
			}
			out, err := m.p.Run(local)
			a.complete(m, out, err)
			if err != nil {
				return a.wrap("RunParallel", m, err)
			}
			outputs[i] = out
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		for i, m := range a.members {
			res.set(i, m, outputs[i])
		}
	}
	return a.finish("parallel", start, res, err)
}

func (a *Array) newResult() *Result {
	res := &Result{Outputs: make([]*pipeline.Output, len(a.members))}
	if a.Named() {
		res.ByName = make(map[string]*pipeline.Output, len(a.members))
	}
	return res
}

func (a *Array) complete(m member, out *pipeline.Output, err error) {
	if a.config.OnPipelineComplete != nil {
		a.config.OnPipelineComplete(m.key(), out, err)
	}
}

func (a *Array) wrap(op string, m member, err error) error {
	return gferrors.NewOperationError("pipearray", op, err).
		WithContext(fmt.Sprintf("pipeline %s", m.key()))
}

func (a *Array) finish(mode string, start time.Time, res *Result, err error) (*Result, error) {
	d := time.Since(start)
	if m := a.config.Metrics; m != nil {
		m.ArrayRuns.WithLabelValues(a.Name(), mode, metrics.Result(err)).Inc()
		m.ArrayRunDuration.WithLabelValues(a.Name(), mode).Observe(d.Seconds())
	}

	logger := a.config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err != nil {
		logger.Warn("pipeline array failed", "array", a.Name(), "mode", mode, "error", err)
		return nil, err
	}
	logger.Debug("pipeline array finished",
		"array", a.Name(),
		"mode", mode,
		"pipelines", len(a.members),
		"duration", d)
	return res, nil
}

// Result holds the outputs of one array run.
type Result struct {
	// Outputs holds one output per member, in member order.
	Outputs []*pipeline.Output

	// ByName maps each member's key to its output. Named members are keyed
	// by name and unnamed ones by pipeline id. Nil when no member is named.
	ByName map[string]*pipeline.Output
}

func (r *Result) set(i int, m member, out *pipeline.Output) {
	r.Outputs[i] = out
	if r.ByName != nil {
		r.ByName[m.key()] = out
	}
}

// Keyed reports whether the result is a name-keyed mapping.
func (r *Result) Keyed() bool { return r.ByName != nil }

// Get returns the output stored under key.
func (r *Result) Get(key string) (*pipeline.Output, bool) {
	out, ok := r.ByName[key]
	return out, ok
}
