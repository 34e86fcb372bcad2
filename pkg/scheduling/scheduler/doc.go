/*
Package scheduler runs pipelines on a schedule.

A Job binds a pipeline to the parameters of its runs. Jobs are scheduled
once, on a fixed interval, or by cron expression; a tick loop collects due
jobs and hands them to a worker pool so a slow run never delays the clock.

Basic Usage:

	s, err := scheduler.NewWithConfig(scheduler.Config{Sink: history})
	if err != nil {
		return err
	}
	defer func() { <-s.Stop() }()

	job := scheduler.Job{Pipeline: importer, Params: pipeline.Params{"source": "s3://bucket"}}
	if err := s.ScheduleCron("nightly-import", "0 2 * * *", job); err != nil {
		return err
	}
	s.Start()

Scheduling Methods:

	s.Schedule("once", job, time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	s.ScheduleAfter("soon", job, 5*time.Minute)
	s.ScheduleRepeating("poll", job, 30*time.Second)
	s.ScheduleCron("report", "@every 1h", job)

Cron expressions use five fields, optionally preceded by a seconds field,
and the descriptors of github.com/robfig/cron/v3 (@hourly, @daily,
@every <duration>). Expressions are evaluated in Config.Location.

Triggering:

Trigger runs a scheduled job immediately on the calling goroutine and
returns its output. The job's next scheduled time does not move.

	out, err := s.Trigger(ctx, "nightly-import")

Retries:

A Job with MaxRetries re-runs a failed pipeline with exponential backoff
starting at RetryDelay. BackoffTask provides the same behavior for any
workerpool.Task.

History:

Every run, scheduled or triggered, produces a sink.Entry written to
Config.Sink. Failed runs carry the error message and no records.
Config.Metrics counts runs per job and result.

Lifecycle:

Start launches the tick loop. Stop cancels runs that have not started,
waits for the running ones and, when the scheduler created its own pool,
shuts the pool down. A stopped scheduler cannot be restarted.
*/
package scheduler
