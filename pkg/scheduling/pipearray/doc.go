/*
Package pipearray runs several independent pipelines with the same parameters.

Each member gets its own copy of the parameters and its own shared output.
Members can be added positionally or by name:

	arr := pipearray.New(validate, enrich)
	if err := arr.AddNamed("audit", audit); err != nil {
		return err
	}

	res, err := arr.Run(pipeline.Params{"user": "ada"})

A purely positional array yields an ordered result in res.Outputs. As soon as
one member is named, res.ByName is populated too: named members are keyed by
name and positional ones by their pipeline id.

# Parallel Execution

RunParallel runs members on separate goroutines through an errgroup:

	arr := pipearray.NewWithConfig(pipearray.Config{MaxConcurrency: 4}, members...)
	res, err := arr.RunParallel(ctx, params)

Pipelines themselves are not interruptible. Cancellation only prevents
members that have not started yet from running.
*/
package pipearray
