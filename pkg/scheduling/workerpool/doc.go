/*
Package workerpool runs tasks, typically pipeline runs, on a fixed set of workers.

A pipeline run is synchronous and occupies the calling goroutine until it
finishes. The pool bounds how many runs execute at once and queues the rest.

Basic usage:

	pool, err := workerpool.New(4, 100) // 4 workers, queue size 100
	if err != nil {
		return err
	}
	defer pool.Shutdown()

	task := workerpool.RunPipeline(signup, pipeline.Params{"user": "ada"})
	if err := pool.Submit(task); err != nil {
		log.Printf("Failed to submit: %v", err)
	}

	result := <-pool.Results()
	if result.Error != nil {
		log.Printf("Run failed: %v", result.Error)
	}
	out := task.Output()

Task Interface:

Any type with an Execute method can be submitted:

	type Task interface {
		Execute(ctx context.Context) error
	}

TaskFunc adapts a plain function and RunPipeline adapts a pipeline run.

Configuration Options:

	pool, err := workerpool.NewWithConfig(workerpool.Config{
		Name:           "imports",
		WorkerCount:    8,
		QueueSize:      100,
		TaskTimeout:    30 * time.Second,
		DiscardResults: true,
		Logger:         slog.Default(),
		Metrics:        metrics.DefaultRegistry,
		OnTaskComplete: func(workerID int, r workerpool.Result) {
			log.Printf("worker %d finished in %v", workerID, r.Duration)
		},
	})

Results:

Unless DiscardResults is set, every task produces a Result on the Results
channel and the channel must be drained. With DiscardResults, use
OnTaskComplete instead.

Panics:

A panicking task is recovered. Its Result carries an error with the panic
value and stack, and PanicHandler is called if set.

Shutdown:

Shutdown stops accepting tasks, runs everything already queued and closes
the Results channel once all workers exit:

	<-pool.Shutdown()

Submitting after Shutdown fails with an error wrapping errors.ErrClosed.
*/
package workerpool
