/*
Package scheduling groups the pipeline engine and the layers that execute it.

  - pipeline: the engine. Stages, forks, references and requirements
  - pipearray: runs several independent pipelines and collects their outputs
  - workerpool: fixed worker pool; RunPipeline wraps a run as a task
  - scheduler: triggers pipeline runs by time, interval or cron expression

Pipeline:

	p := pipeline.New(parse, validate, store)
	out, err := p.Run(pipeline.Params{"path": "orders.csv"})

Fan-out:

	arr := pipearray.New(signupForm, loginForm)
	res, err := arr.Run(pipeline.Params{"user": "ada"})

Worker Pool:

	pool, _ := workerpool.NewWithConfig(workerpool.Config{WorkerCount: 4, QueueSize: 100, DiscardResults: true})
	task := workerpool.RunPipeline(p, params)
	pool.Submit(task)
	<-pool.Shutdown()
	out := task.Output()

Scheduler:

	s, _ := scheduler.NewWithConfig(scheduler.Config{Sink: history})
	s.ScheduleCron("nightly", "0 2 * * *", scheduler.Job{Pipeline: p})
	s.Start()
	defer func() { <-s.Stop() }()

A single run is synchronous and executes on the caller's goroutine. The
concurrent layers run separate pipelines, or separate runs, in parallel;
they never interleave the stages of one run.
*/
package scheduling
