package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
	"github.com/vnykmshr/goplumb/pkg/metrics"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// RunOption customizes a single run.
type RunOption func(*runOptions)

type runOptions struct {
	finalize    func(out interface{}, records []Record, params Params)
	hasFinalize bool
}

// WithFinalizer replaces Config.FinalizeOutput for one run. A nil fn disables
// finalization for that run.
func WithFinalizer(fn func(out interface{}, records []Record, params Params)) RunOption {
	return func(o *runOptions) {
		o.finalize = fn
		o.hasFinalize = true
	}
}

// run is the state of one invocation of Pipeline.Run.
type run struct {
	p       *Pipeline
	id      string
	seq     []string
	params  Params
	out     interface{}
	records []Record
	index   int
	count   int
	logger  *slog.Logger
}

// Run executes the pipeline once. params is forwarded to every callback and
// must not use a reserved name. The run is synchronous; it returns when the
// sequence is exhausted, a fork exits or ExitOnStatus matches.
//
// Any failure aborts the run and returns a *PipelineError with no output.
// Stages skipped because of unmet requirements are not failures.
func (p *Pipeline) Run(params Params, opts ...RunOption) (*Output, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	r := p.newRun(params)

	err := r.loop()
	var out *Output
	if err == nil {
		finalize := p.config.FinalizeOutput
		if o.hasFinalize {
			finalize = o.finalize
		}
		if finalize != nil {
			finalize(r.out, r.snapshot(), r.params)
		}
		end := time.Now()
		out = &Output{
			RunID:     r.id,
			Records:   r.snapshot(),
			Params:    r.params,
			Data:      r.out,
			StartTime: start,
			EndTime:   end,
			Duration:  end.Sub(start),
		}
		r.logger.Debug("pipeline run finished",
			"records", len(out.Records),
			"duration", out.Duration)
	} else {
		r.logger.Warn("pipeline run aborted", "error", err)
	}

	p.recordRun(time.Since(start), err)
	if p.config.OnRunComplete != nil {
		p.config.OnRunComplete(out, err)
	}
	return out, err
}

func (p *Pipeline) newRun(params Params) *run {
	logger := p.config.Logger
	if logger == nil {
		logger = discardLogger
	}
	id := uuid.NewString()
	return &run{
		p:      p,
		id:     id,
		seq:    p.sequence,
		params: params.Clone(),
		count:  -1,
		logger: logger.With("pipeline", p.Name(), "run_id", id),
	}
}

func (r *run) loop() error {
	if name, ok := r.params.reserved(); ok {
		return newError(gferrors.ErrReservedParameter, r.seq, nil).
			withIdentifier(name).
			withDetail("run parameters may not use out, primer, status or count")
	}

	if r.p.config.InitializeOutput != nil {
		r.out = r.p.config.InitializeOutput()
	} else {
		r.out = Params{}
	}

	cfg := r.p.config
	for {
		n := len(r.seq)
		if cfg.Loop && n > 0 {
			r.index = wrap(r.index, n)
		}
		if r.index < 0 || r.index >= n {
			return nil
		}

		id := r.seq[r.index]
		unit, ok := r.p.catalog[id]
		if !ok {
			return newError(gferrors.ErrUnknownStage, r.seq, r.records).
				withIdentifier(id).
				withDetail(fmt.Sprintf("position %d has no stage or fork", r.index))
		}

		switch u := unit.(type) {
		case *Fork:
			exit, err := r.fork(id, u)
			if err != nil {
				return err
			}
			if exit {
				return nil
			}
		case *Stage:
			exit, err := r.stage(id, u)
			if err != nil {
				return err
			}
			if exit {
				return nil
			}
		default:
			return newError(gferrors.ErrUnknownStage, r.seq, r.records).
				withIdentifier(id).
				withDetail(fmt.Sprintf("unsupported unit type %T", unit))
		}
	}
}

// stage evaluates requirements and, if eligible, executes s at the current
// position. It reports whether ExitOnStatus ended the run.
func (r *run) stage(id string, s *Stage) (bool, error) {
	ok, err := eligible(s.cfg.Requires, r.context())
	if err != nil {
		return false, err
	}
	if !ok {
		r.logger.Debug("stage skipped", "stage", id, "index", r.index)
		if m := r.p.config.Metrics; m != nil {
			m.StagesSkipped.WithLabelValues(r.p.Name()).Inc()
		}
		if r.p.config.OnStageSkipped != nil {
			r.p.config.OnStageSkipped(id, r.index)
		}
		r.index++
		return false, nil
	}

	r.count++
	res, params := s.execute(r.call())
	r.params = params

	rec := Record{
		StageID: id,
		Message: res.message,
		Status:  res.status,
		Index:   r.index,
		Count:   r.count,
	}
	r.records = append(r.records, rec)

	r.logger.Debug("stage executed",
		"stage", id,
		"index", r.index,
		"count", r.count,
		"status", res.status)
	if m := r.p.config.Metrics; m != nil {
		m.StagesExecuted.WithLabelValues(r.p.Name()).Inc()
	}
	if r.p.config.OnStageComplete != nil {
		r.p.config.OnStageComplete(rec)
	}

	if exit := r.p.config.ExitOnStatus; exit != nil && exit.Met(res.status) {
		r.logger.Debug("exit on status", "stage", id, "status", res.status)
		return true, nil
	}
	r.index++
	return false, nil
}

// fork evaluates f and moves to its target. It reports whether the fork
// ended the run.
func (r *run) fork(id string, f *Fork) (bool, error) {
	res := f.eval(r.call())
	target, err := r.forkTarget(res)
	if err != nil {
		return false, err
	}

	outcome := "jump"
	if target.Terminal() {
		outcome = "exit"
	}
	r.logger.Debug("fork evaluated", "fork", id, "result", res.String(), "target", target.String())
	if m := r.p.config.Metrics; m != nil {
		m.ForksTaken.WithLabelValues(r.p.Name(), outcome).Inc()
	}
	if r.p.config.OnFork != nil {
		r.p.config.OnFork(id, res, target)
	}

	if target.Terminal() {
		return true, nil
	}
	r.index = target.Index
	return false, nil
}

// forkTarget turns a fork decision into an absolute position. The terminal
// target means exit.
func (r *run) forkTarget(res ForkResult) (Target, error) {
	switch res.kind {
	case forkGoTo:
		i := indexOf(r.seq, res.id)
		if i < 0 {
			return Target{}, newError(gferrors.ErrForkTarget, r.seq, r.records).
				withIdentifier(res.id)
		}
		return Target{ID: res.id, Index: i}, nil
	case forkGoToRef:
		t, err := res.ref.Resolve(r.context())
		if err != nil {
			return Target{}, err
		}
		if t.Terminal() {
			return t, nil
		}
		if t.Index >= 0 && t.Index < len(r.seq) && r.seq[t.Index] == t.ID {
			return t, nil
		}
		i := indexOf(r.seq, t.ID)
		if i < 0 {
			return Target{}, newError(gferrors.ErrForkTarget, r.seq, r.records).
				withReference(res.ref.String()).
				withIdentifier(t.ID)
		}
		return Target{ID: t.ID, Index: i}, nil
	default:
		return Target{}, nil
	}
}

func (r *run) context() Context {
	return Context{
		Sequence: r.seq,
		Index:    r.index,
		Loop:     r.p.config.Loop,
		Records:  r.snapshot(),
		Params:   r.params,
		Out:      r.out,
		Count:    r.count,
	}
}

func (r *run) call() Call {
	return Call{
		Params:  r.params,
		Out:     r.out,
		Count:   r.count,
		Records: r.snapshot(),
	}
}

// snapshot returns the trace with its capacity clipped, so appends by a
// callback cannot overwrite later records.
func (r *run) snapshot() []Record {
	return r.records[:len(r.records):len(r.records)]
}

func (p *Pipeline) recordRun(d time.Duration, err error) {
	m := p.config.Metrics
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(p.Name(), metrics.Result(err)).Inc()
	m.PipelineRunDuration.WithLabelValues(p.Name()).Observe(d.Seconds())
}

// RunForParams runs the pipeline with params and returns its output mapping
// overlaid with overrides. The shared output must be a Params or a
// map[string]interface{}.
func (p *Pipeline) RunForParams(params, overrides Params) (Params, error) {
	out, err := p.Run(params)
	if err != nil {
		return nil, err
	}
	var data Params
	switch d := out.Data.(type) {
	case Params:
		data = d
	case map[string]interface{}:
		data = Params(d)
	default:
		return nil, gferrors.NewOperationError("pipeline", "RunForParams",
			fmt.Errorf("output is %T, want a mapping", out.Data))
	}
	return data.Merge(overrides), nil
}
