package scheduler

import (
	"context"
	"time"

	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
	"github.com/vnykmshr/goplumb/pkg/scheduling/pipeline"
	"github.com/vnykmshr/goplumb/pkg/scheduling/workerpool"
)

// Job is a pipeline run waiting for its schedule.
type Job struct {
	// Pipeline is run with Params on every trigger.
	Pipeline *pipeline.Pipeline
	Params   pipeline.Params

	// MaxRetries re-runs a failed pipeline up to this many times.
	MaxRetries int

	// RetryDelay is the wait before the first retry. It doubles on every
	// following retry, capped at MaxRetryDelay when that is set.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

func (j Job) validate() error {
	if j.Pipeline == nil {
		return gferrors.NewValidationError("scheduler", "Pipeline", nil, "cannot be nil")
	}
	if j.MaxRetries < 0 {
		return gferrors.NewValidationError("scheduler", "MaxRetries", j.MaxRetries, "must be non-negative")
	}
	if j.RetryDelay < 0 || j.MaxRetryDelay < 0 {
		return gferrors.NewValidationError("scheduler", "RetryDelay", j.RetryDelay, "must be non-negative")
	}
	return nil
}

func (j Job) clone() Job {
	j.Params = j.Params.Clone()
	return j
}

func (j Job) task(run workerpool.Task) workerpool.Task {
	if j.MaxRetries == 0 {
		return run
	}
	return BackoffTask{
		Task:         run,
		MaxRetries:   j.MaxRetries,
		InitialDelay: j.RetryDelay,
		MaxDelay:     j.MaxRetryDelay,
	}
}

// BackoffTask wraps a task with retry logic.
type BackoffTask struct {
	Task         workerpool.Task
	MaxRetries   int
	InitialDelay time.Duration

	// MaxDelay caps the delay. Zero means uncapped.
	MaxDelay time.Duration
}

// Execute implements workerpool.Task with exponential backoff.
func (bt BackoffTask) Execute(ctx context.Context) error {
	var lastErr error
	delay := bt.InitialDelay

	for attempt := 0; attempt <= bt.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		lastErr = bt.Task.Execute(ctx)
		if lastErr == nil {
			return nil
		}

		delay *= 2
		if bt.MaxDelay > 0 && delay > bt.MaxDelay {
			delay = bt.MaxDelay
		}
	}

	return lastErr
}
