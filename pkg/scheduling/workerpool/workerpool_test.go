package workerpool

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/goplumb/internal/testutil"
	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
	"github.com/vnykmshr/goplumb/pkg/metrics"
	"github.com/vnykmshr/goplumb/pkg/scheduling/pipeline"
)

// TestTask is a simple task for testing.
type TestTask struct {
	ID          int
	Duration    time.Duration
	ShouldErr   bool
	ShouldPanic bool
	Executed    *int32 // Atomic counter
}

func (t *TestTask) Execute(ctx context.Context) error {
	atomic.AddInt32(t.Executed, 1)

	if t.ShouldPanic {
		panic("test panic")
	}

	if t.Duration > 0 {
		select {
		case <-time.After(t.Duration):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if t.ShouldErr {
		return errors.New("test error")
	}

	return nil
}

func mustPool(t *testing.T, cfg Config) Pool {
	t.Helper()
	pool, err := NewWithConfig(cfg)
	testutil.AssertNoError(t, err)
	return pool
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		workerCount int
		queueSize   int
		expectErr   bool
	}{
		{"valid params", 2, 10, false},
		{"single worker", 1, 5, false},
		{"unbuffered queue", 3, 0, false},
		{"zero workers", 0, 10, true},
		{"negative workers", -1, 10, true},
		{"invalid queue size", 2, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := New(tt.workerCount, tt.queueSize)
			if tt.expectErr {
				testutil.AssertError(t, err)
				if !gferrors.IsValidationError(err) {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, pool.Size(), tt.workerCount)
			<-pool.Shutdown()
		})
	}
}

func TestBasicTaskExecution(t *testing.T) {
	pool, err := New(2, 10)
	testutil.AssertNoError(t, err)

	var executed int32
	testutil.AssertNoError(t, pool.Submit(&TestTask{ID: 1, Executed: &executed}))

	select {
	case result := <-pool.Results():
		testutil.AssertNoError(t, result.Error)
		if result.Task.(*TestTask).ID != 1 {
			t.Errorf("unexpected task in result: %+v", result.Task)
		}
	case <-time.After(testutil.TestTimeout):
		t.Fatal("timed out waiting for result")
	}

	<-pool.Shutdown()
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(1))
}

func TestMultipleTaskExecution(t *testing.T) {
	pool, err := New(4, 20)
	testutil.AssertNoError(t, err)

	var executed int32
	const numTasks = 20
	go func() {
		for i := 0; i < numTasks; i++ {
			_ = pool.Submit(&TestTask{ID: i, Executed: &executed})
		}
		pool.Shutdown()
	}()

	count := 0
	for range pool.Results() {
		count++
	}

	testutil.AssertEqual(t, count, numTasks)
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(numTasks))
	testutil.AssertEqual(t, pool.TotalSubmitted(), int64(numTasks))
	testutil.AssertEqual(t, pool.TotalCompleted(), int64(numTasks))
}

func TestTaskError(t *testing.T) {
	pool, err := New(1, 1)
	testutil.AssertNoError(t, err)

	var executed int32
	testutil.AssertNoError(t, pool.Submit(&TestTask{ShouldErr: true, Executed: &executed}))

	result := <-pool.Results()
	if result.Error == nil || result.Error.Error() != "test error" {
		t.Errorf("expected test error, got %v", result.Error)
	}
	<-pool.Shutdown()
}

func TestTaskPanic(t *testing.T) {
	var recovered interface{}
	var mu sync.Mutex

	pool := mustPool(t, Config{
		WorkerCount: 1,
		QueueSize:   1,
		PanicHandler: func(task Task, r interface{}) {
			mu.Lock()
			recovered = r
			mu.Unlock()
		},
	})

	var executed int32
	testutil.AssertNoError(t, pool.Submit(&TestTask{ShouldPanic: true, Executed: &executed}))

	result := <-pool.Results()
	if result.Error == nil || !strings.Contains(result.Error.Error(), "task panicked: test panic") {
		t.Errorf("expected panic error, got %v", result.Error)
	}
	<-pool.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	testutil.AssertEqual(t, recovered, interface{}("test panic"))
}

func TestSubmitWithContext(t *testing.T) {
	pool, err := New(1, 0)
	testutil.AssertNoError(t, err)
	defer func() { <-pool.Shutdown() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var executed int32
	err = pool.SubmitWithContext(ctx, &TestTask{Executed: &executed})
	testutil.AssertError(t, err)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSubmitBlocksUntilDeadline(t *testing.T) {
	pool := mustPool(t, Config{WorkerCount: 1, DiscardResults: true})
	defer func() { <-pool.Shutdown() }()

	var executed int32
	release := make(chan struct{})
	testutil.AssertNoError(t, pool.Submit(TaskFunc(func(context.Context) error {
		<-release
		return nil
	})))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.SubmitWithContext(ctx, &TestTask{Executed: &executed})
	close(release)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSubmitNilTask(t *testing.T) {
	pool, err := New(1, 1)
	testutil.AssertNoError(t, err)
	defer func() { <-pool.Shutdown() }()

	if !gferrors.IsValidationError(pool.Submit(nil)) {
		t.Error("expected validation error for nil task")
	}
}

func TestSubmitToShutdownPool(t *testing.T) {
	pool, err := New(1, 1)
	testutil.AssertNoError(t, err)
	<-pool.Shutdown()

	var executed int32
	err = pool.Submit(&TestTask{Executed: &executed})
	if !errors.Is(err, gferrors.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestShutdownCompletesQueuedTasks(t *testing.T) {
	pool := mustPool(t, Config{WorkerCount: 1, QueueSize: 5, DiscardResults: true})

	var executed int32
	for i := 0; i < 5; i++ {
		testutil.AssertNoError(t, pool.Submit(&TestTask{
			Duration: 5 * time.Millisecond,
			Executed: &executed,
		}))
	}

	<-pool.Shutdown()
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(5))
}

func TestTaskTimeout(t *testing.T) {
	pool := mustPool(t, Config{
		WorkerCount: 1,
		QueueSize:   1,
		TaskTimeout: 10 * time.Millisecond,
	})

	var executed int32
	testutil.AssertNoError(t, pool.Submit(&TestTask{Duration: time.Second, Executed: &executed}))

	result := <-pool.Results()
	if !errors.Is(result.Error, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", result.Error)
	}
	if !gferrors.IsTemporary(result.Error) {
		t.Errorf("timeout should be temporary, got %v", result.Error)
	}
	<-pool.Shutdown()
}

func TestTaskCallbacks(t *testing.T) {
	started := testutil.NewCallbackTracker()
	completed := testutil.NewCallbackTracker()

	pool := mustPool(t, Config{
		WorkerCount:    2,
		QueueSize:      4,
		DiscardResults: true,
		OnTaskStart: func(workerID int, task Task) {
			started.Mark(workerID)
		},
		OnTaskComplete: func(workerID int, result Result) {
			completed.Mark(result)
		},
	})

	var executed int32
	for i := 0; i < 4; i++ {
		testutil.AssertNoError(t, pool.Submit(&TestTask{Executed: &executed}))
	}
	<-pool.Shutdown()

	started.AssertCallCount(t, 4)
	completed.AssertCallCount(t, 4)
}

func TestActiveWorkers(t *testing.T) {
	pool := mustPool(t, Config{WorkerCount: 2, QueueSize: 2, DiscardResults: true})

	release := make(chan struct{})
	for i := 0; i < 2; i++ {
		testutil.AssertNoError(t, pool.Submit(TaskFunc(func(context.Context) error {
			<-release
			return nil
		})))
	}

	testutil.AssertEventually(t, func() bool { return pool.ActiveWorkers() == 2 })
	close(release)
	<-pool.Shutdown()
	testutil.AssertEqual(t, pool.ActiveWorkers(), 0)
}

func TestPipelineTask(t *testing.T) {
	p := pipeline.New(pipeline.NewStage(pipeline.StageConfig{
		Action: func(c pipeline.Call) { c.Out.(pipeline.Params)["user"] = c.Params["user"] },
		Status: func(pipeline.Call) int { return 3 },
	}))

	pool, err := New(1, 1)
	testutil.AssertNoError(t, err)

	task := RunPipeline(p, pipeline.Params{"user": "ada"})
	testutil.AssertNoError(t, pool.Submit(task))

	result := <-pool.Results()
	testutil.AssertNoError(t, result.Error)
	<-pool.Shutdown()

	out := task.Output()
	if out == nil {
		t.Fatal("expected output")
	}
	status, _ := out.LastStatus()
	testutil.AssertEqual(t, status, 3)
	testutil.AssertEqual(t, out.Data.(pipeline.Params)["user"], interface{}("ada"))
	if task.Pipeline() != p {
		t.Error("task should expose its pipeline")
	}
}

func TestPipelineTaskFailure(t *testing.T) {
	task := RunPipeline(pipeline.New(pipeline.ID("missing")), nil)
	err := task.Execute(context.Background())
	if !errors.Is(err, gferrors.ErrUnknownStage) {
		t.Errorf("expected ErrUnknownStage, got %v", err)
	}
	if task.Output() != nil {
		t.Error("failed run should leave no output")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := RunPipeline(pipeline.New(), nil).Execute(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMetrics(t *testing.T) {
	m := metrics.NewRegistry(prometheus.NewRegistry())
	pool := mustPool(t, Config{
		Name:           "runs",
		WorkerCount:    3,
		QueueSize:      3,
		DiscardResults: true,
		Metrics:        m,
	})

	var executed int32
	for i := 0; i < 3; i++ {
		testutil.AssertNoError(t, pool.Submit(&TestTask{Executed: &executed}))
	}
	<-pool.Shutdown()

	testutil.AssertEqual(t, promtest.ToFloat64(m.WorkerPoolSize.WithLabelValues("runs")), 3.0)
	testutil.AssertEqual(t, promtest.CollectAndCount(m.TaskExecutionDuration), 1)
}
