/*
Package goplumb is a control-flow engine for data pipelines.

A pipeline is an ordered sequence of stages sharing one output object and a
parameter mapping. Each stage may be gated on the status of earlier stages,
forks redirect execution by symbolic reference, and every executed stage
leaves a record in the run's trace.

Engine (pkg/scheduling):
  - pipeline: stages, forks, references, requirements and the run loop
  - pipearray: fan-out over several pipelines, sequential or parallel
  - workerpool: bounded background execution of pipeline runs
  - scheduler: one-time, interval and cron-triggered runs

History (pkg/streaming):
  - sink: memory, io.Writer (JSON, YAML) and Redis destinations for traces

Example usage:

	import "github.com/vnykmshr/goplumb/pkg/scheduling/pipeline"

	check := pipeline.NewStage(pipeline.StageConfig{
		Status: func(c pipeline.Call) int {
			if c.Params["email"] == "" {
				return 422
			}
			return 0
		},
	})
	save := pipeline.NewStage(pipeline.StageConfig{
		Requires: []pipeline.Requirement{pipeline.Require(pipeline.Previous, pipeline.StatusIs(0))},
		Action:   func(c pipeline.Call) { c.Out.(pipeline.Params)["saved"] = true },
	})

	out, err := pipeline.New(check, save).Run(pipeline.Params{"email": "ada@example.com"})

Metrics for every layer are exported through pkg/metrics.
*/
package goplumb
