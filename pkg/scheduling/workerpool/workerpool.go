package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	gfcontext "github.com/vnykmshr/goplumb/pkg/common/context"
	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
)

// Submit adds a task to the pool for execution.
// The task will be executed with context.Background().
// Use SubmitWithContext to provide a custom context.
func (p *workerPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithContext adds a task to the pool for execution with the given context.
// The context is passed to the task's Execute method, enabling timeout and
// cancellation propagation. If the pool has a TaskTimeout configured, the
// effective timeout will be the minimum of the context deadline and TaskTimeout.
func (p *workerPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return gferrors.NewValidationError("workerpool", "task", nil, "cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// The read lock is held across the send so Shutdown cannot close the
	// queue under a blocked submitter. Workers keep draining meanwhile.
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.isShutdown {
		return gferrors.NewOperationError("workerpool", "Submit", gferrors.ErrClosed)
	}

	// Pre-canceled contexts fail deterministically instead of racing the send.
	if gfcontext.IsCanceled(ctx) {
		return gferrors.NewOperationError("workerpool", "Submit", ctx.Err())
	}

	select {
	case p.taskQueue <- queuedTask{task: task, ctx: ctx}:
		atomic.AddInt64(&p.totalSubmitted, 1)
		p.updateGauges()
		return nil
	case <-ctx.Done():
		return gferrors.NewOperationError("workerpool", "Submit", ctx.Err())
	}
}

// Results returns a channel of task results. Unless DiscardResults is set,
// results must be drained or workers block after the buffer fills.
func (p *workerPool) Results() <-chan Result {
	return p.resultQueue
}

// Shutdown initiates a graceful shutdown of the pool. Tasks already queued
// still run.
func (p *workerPool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		close(p.taskQueue)
		p.mu.Unlock()

		go func() {
			p.workerWg.Wait()
			if p.resultQueue != nil {
				close(p.resultQueue)
			}
			p.logger.Debug("worker pool stopped",
				"completed", atomic.LoadInt64(&p.totalCompleted))
			close(p.done)
		}()
	})
	return p.done
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool) QueueSize() int {
	return len(p.taskQueue)
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool) ActiveWorkers() int {
	return int(atomic.LoadInt64(&p.activeWorkers))
}

// TotalSubmitted returns the total number of tasks submitted to the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return atomic.LoadInt64(&p.totalSubmitted)
}

// TotalCompleted returns the total number of tasks completed by the pool.
func (p *workerPool) TotalCompleted() int64 {
	return atomic.LoadInt64(&p.totalCompleted)
}

// run is the main loop for a worker. It exits once the queue is closed and
// drained.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	for qt := range w.pool.taskQueue {
		w.executeTask(qt)
	}
}

// executeTask executes a single task with the provided context.
func (w *worker) executeTask(qt queuedTask) {
	p := w.pool
	atomic.AddInt64(&p.activeWorkers, 1)
	p.updateGauges()

	if p.config.OnTaskStart != nil {
		p.config.OnTaskStart(w.id, qt.task)
	}

	start := time.Now()
	err := w.safeExecute(qt)
	result := Result{
		Task:     qt.task,
		Error:    err,
		Duration: time.Since(start),
		WorkerID: w.id,
	}

	atomic.AddInt64(&p.activeWorkers, -1)
	atomic.AddInt64(&p.totalCompleted, 1)
	p.observe(result)

	switch {
	case err == nil:
	case gfcontext.IsTimeout(err):
		p.logger.Warn("task timed out", "worker", w.id, "timeout", p.config.TaskTimeout)
	default:
		p.logger.Warn("task failed", "worker", w.id, "error", err)
	}
	if p.config.OnTaskComplete != nil {
		p.config.OnTaskComplete(w.id, result)
	}
	if p.resultQueue != nil {
		p.resultQueue <- result
	}
}

// safeExecute runs the task, converting a panic into an error.
func (w *worker) safeExecute(qt queuedTask) (err error) {
	p := w.pool
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
			p.logger.Error("task panicked", "worker", w.id, "panic", r)
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(qt.task, r)
			}
		}
	}()

	ctx, cancel := gfcontext.WithOptionalTimeout(qt.ctx, p.config.TaskTimeout)
	defer cancel()

	err = qt.task.Execute(ctx)
	if p.config.TaskTimeout > 0 && gfcontext.IsTimeout(err) {
		err = fmt.Errorf("%w after %v: %w", gferrors.ErrTimeout, p.config.TaskTimeout, err)
	}
	return err
}
