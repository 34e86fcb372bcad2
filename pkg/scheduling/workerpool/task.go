package workerpool

import (
	"context"
	"sync"

	"github.com/vnykmshr/goplumb/pkg/scheduling/pipeline"
)

// PipelineTask runs a pipeline once as a pool task. Runs are not
// interruptible, so the context is only checked before the run starts.
type PipelineTask struct {
	pipeline *pipeline.Pipeline
	params   pipeline.Params
	opts     []pipeline.RunOption

	mu     sync.Mutex
	output *pipeline.Output
}

// RunPipeline creates a task that runs p with params.
func RunPipeline(p *pipeline.Pipeline, params pipeline.Params, opts ...pipeline.RunOption) *PipelineTask {
	return &PipelineTask{pipeline: p, params: params.Clone(), opts: opts}
}

// Execute implements Task.
func (t *PipelineTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out, err := t.pipeline.Run(t.params, t.opts...)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.output = out
	t.mu.Unlock()
	return nil
}

// Pipeline returns the pipeline the task runs.
func (t *PipelineTask) Pipeline() *pipeline.Pipeline { return t.pipeline }

// Output returns the output of the last successful run, or nil.
func (t *PipelineTask) Output() *pipeline.Output {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.output
}
