package workerpool

import (
	"context"
	"testing"

	"github.com/vnykmshr/goplumb/pkg/scheduling/pipeline"
)

// BenchmarkTaskExecution measures the overhead of task submission and execution
func BenchmarkTaskExecution(b *testing.B) {
	pool, err := NewWithConfig(Config{WorkerCount: 4, QueueSize: 1000, DiscardResults: true})
	if err != nil {
		b.Fatal(err)
	}
	defer func() { <-pool.Shutdown() }()

	task := TaskFunc(func(ctx context.Context) error { return nil })

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = pool.Submit(task)
		}
	})
}

// BenchmarkPipelineRuns measures pipeline runs dispatched through the pool.
func BenchmarkPipelineRuns(b *testing.B) {
	pool, err := NewWithConfig(Config{WorkerCount: 4, QueueSize: 1000, DiscardResults: true})
	if err != nil {
		b.Fatal(err)
	}
	defer func() { <-pool.Shutdown() }()

	p := pipeline.New(
		pipeline.NewStage(pipeline.StageConfig{Status: func(pipeline.Call) int { return 0 }}),
		pipeline.NewStage(pipeline.StageConfig{Status: func(pipeline.Call) int { return 1 }}),
	)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.Submit(RunPipeline(p, nil))
	}
}
