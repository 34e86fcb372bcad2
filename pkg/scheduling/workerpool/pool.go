package workerpool

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/vnykmshr/goplumb/pkg/common/validation"
	"github.com/vnykmshr/goplumb/pkg/metrics"
)

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task with the given context.
	// It should respect context cancellation and return any error encountered.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result represents the result of a task execution.
type Result struct {
	// Task is the original task that was executed
	Task Task

	// Error is any error that occurred during task execution
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration

	// WorkerID identifies which worker executed the task
	WorkerID int
}

// Pool executes tasks on a fixed set of workers.
type Pool interface {
	// Submit adds a task to the pool for execution.
	// Returns an error if the pool is shut down.
	Submit(task Task) error

	// SubmitWithContext submits a task with a context for cancellation.
	// The context bounds the wait for a queue slot and is passed to the task.
	SubmitWithContext(ctx context.Context, task Task) error

	// Results returns a channel of task results. It is nil when the pool
	// was configured with DiscardResults. The channel is closed when the
	// pool is shut down and all tasks are complete.
	Results() <-chan Result

	// Shutdown stops accepting tasks, completes the queued ones and
	// returns a channel that closes when every worker has exited.
	Shutdown() <-chan struct{}

	// Size returns the number of workers in the pool.
	Size() int

	// QueueSize returns the current number of queued tasks waiting for execution.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing tasks.
	ActiveWorkers() int

	// TotalSubmitted returns the total number of tasks submitted to the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the total number of tasks completed by the pool.
	TotalCompleted() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// Name labels log lines and metrics. Defaults to "default".
	Name string

	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// QueueSize is the number of tasks that can wait for a worker.
	// Zero makes Submit block until a worker picks the task up.
	QueueSize int

	// TaskTimeout bounds the execution of each task. Zero means no timeout.
	TaskTimeout time.Duration

	// DiscardResults drops results instead of sending them on Results.
	// Use it when results are consumed through OnTaskComplete only.
	DiscardResults bool

	// Logger receives task failures and panics. If nil, nothing is logged.
	Logger *slog.Logger

	// Metrics records pool gauges and task durations. If nil, nothing is recorded.
	Metrics *metrics.Registry

	// PanicHandler is called when a task panics. The panic is always
	// recovered and reported as the task's error.
	PanicHandler func(task Task, recovered interface{})

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(workerID int, task Task)

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(workerID int, result Result)
}

// workerPool implements the Pool interface.
type workerPool struct {
	config Config
	logger *slog.Logger

	taskQueue   chan queuedTask
	resultQueue chan Result
	done        chan struct{}

	// mu guards isShutdown and the closing of taskQueue.
	mu           sync.RWMutex
	isShutdown   bool
	shutdownOnce sync.Once

	activeWorkers  int64
	totalSubmitted int64
	totalCompleted int64

	workerWg sync.WaitGroup
}

type queuedTask struct {
	task Task
	ctx  context.Context
}

// New creates a worker pool with the specified number of workers and queue size.
func New(workerCount, queueSize int) (Pool, error) {
	return NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewWithConfig creates a worker pool with the specified configuration.
func NewWithConfig(config Config) (Pool, error) {
	if err := validation.ValidatePositive("workerpool", "WorkerCount", config.WorkerCount); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative("workerpool", "QueueSize", config.QueueSize); err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = "default"
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	pool := &workerPool{
		config:    config,
		logger:    logger.With("pool", config.Name),
		taskQueue: make(chan queuedTask, config.QueueSize),
		done:      make(chan struct{}),
	}
	if !config.DiscardResults {
		pool.resultQueue = make(chan Result, config.WorkerCount)
	}

	for i := 0; i < config.WorkerCount; i++ {
		w := &worker{id: i, pool: pool}
		pool.workerWg.Add(1)
		go w.run()
	}
	pool.updateGauges()

	return pool, nil
}

// worker represents a single worker in the pool.
type worker struct {
	id   int
	pool *workerPool
}
