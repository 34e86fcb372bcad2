/*
Package pipeline provides a control-flow engine for sequences of stages and forks.

A pipeline is an ordered sequence of identifiers plus a catalog mapping those
identifiers to units. Stages execute callbacks against a shared output; forks
redirect execution to another position or end the run.

# Quick Start

	a := pipeline.NewStage(pipeline.StageConfig{
		Action: func(c pipeline.Call) { c.Out.(pipeline.Params)["x"] = 1 },
	})
	b := pipeline.NewStage(pipeline.StageConfig{
		Action: func(c pipeline.Call) { c.Out.(pipeline.Params)["y"] = 2 },
	})

	out, err := pipeline.New(a, b).Run(nil)
	fmt.Println(out.Data) // map[x:1 y:2]

# Stages

Every stage callback is optional. They run in a fixed order:

	primer  -> value passed to the other callbacks as Call.Primer
	action  -> mutates Call.Out in place
	export  -> Params merged into the mapping of this and later stages
	status  -> int recorded in the trace (default 0)
	message -> string recorded in the trace (default "")

Each executed stage appends a Record to the trace.

# Requirements

A stage can be gated on the most recent status of another stage:

	check := pipeline.NewStage(pipeline.StageConfig{
		Requires: []pipeline.Requirement{
			pipeline.Require(pipeline.Previous, pipeline.StatusIs(0)),
		},
	})

A stage whose requirements do not hold is skipped silently. A requirement on
a stage that has not executed yet is an error.

# References

References point at stages symbolically and are resolved during the run:
Previous, First, Last, Next, Skip, ByID, ByIndex and ByIncrement. Next and
Skip yield the terminal target when they run off the end of a non-looping
sequence.

# Forks

	retry := pipeline.NewFork(func(c pipeline.Call) pipeline.ForkResult {
		if c.Count >= 3 {
			return pipeline.Exit()
		}
		return pipeline.GoToRef(pipeline.First)
	})

A fork never appears in the trace and does not advance the stage counter.

# Configuration

	p := pipeline.NewWithConfig(pipeline.Config{
		Name:             "signup",
		InitializeOutput: func() interface{} { return &Form{} },
		ExitOnStatus:     pipeline.StatusFunc(func(s int) bool { return s >= 400 }),
		Loop:             false,
		Logger:           slog.Default(),
		Metrics:          metrics.DefaultRegistry,
	}, validate, normalize, persist)

# Assembly

Pipelines are built from stages, forks, identifiers, bindings and other
pipelines:

	p := pipeline.New(
		pipeline.ID("validate"), pipeline.ID("store"),
		pipeline.Bindings{"validate": validate, "store": store},
	)
	p.Append(audit)
	p.Insert(1, normalize)

# Thread Safety

A run is synchronous and touches no state outside its own output and
parameters, so different pipelines can run concurrently. A pipeline must not
be modified with Append, Prepend or Insert while one of its runs is in
progress.

# Errors

Every run failure is a *PipelineError. Use errors.Is with the sentinels of
pkg/common/errors to tell the kinds apart:

	_, err := p.Run(pipeline.Params{"count": 1})
	errors.Is(err, gferrors.ErrReservedParameter) // true
*/
package pipeline
