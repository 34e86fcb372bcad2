// Package metrics provides Prometheus instrumentation for goplumb components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for goplumb components.
type Registry struct {
	// Pipeline Metrics
	PipelineRuns        *prometheus.CounterVec
	StagesExecuted      *prometheus.CounterVec
	StagesSkipped       *prometheus.CounterVec
	ForksTaken          *prometheus.CounterVec
	PipelineRunDuration *prometheus.HistogramVec

	// Fan-out Metrics
	ArrayRuns        *prometheus.CounterVec
	ArrayRunDuration *prometheus.HistogramVec

	// Task Scheduling Metrics
	ScheduledRuns         *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec
	WorkerPoolSize        *prometheus.GaugeVec
	WorkerPoolActive      *prometheus.GaugeVec
	WorkerPoolQueued      *prometheus.GaugeVec

	// Sink Metrics
	SinkWrites *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by goplumb components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Registry: reg, Namespace: DefaultNamespace})
}

// NewRegistryWithConfig creates a metrics registry from cfg. An empty
// namespace falls back to DefaultNamespace and a nil Registry to
// prometheus.DefaultRegisterer.
func NewRegistryWithConfig(cfg Config) *Registry {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Registry{
		// Pipeline Metrics
		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "pipeline",
				Name:        "runs_total",
				Help:        "Total number of pipeline runs by result",
				ConstLabels: cfg.Labels,
			},
			[]string{"pipeline", "result"},
		),

		StagesExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "pipeline",
				Name:        "stages_executed_total",
				Help:        "Total number of stages whose requirements were met and which executed",
				ConstLabels: cfg.Labels,
			},
			[]string{"pipeline"},
		),

		StagesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "pipeline",
				Name:        "stages_skipped_total",
				Help:        "Total number of stages skipped because a requirement failed",
				ConstLabels: cfg.Labels,
			},
			[]string{"pipeline"},
		),

		ForksTaken: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "pipeline",
				Name:        "forks_total",
				Help:        "Total number of fork evaluations by outcome",
				ConstLabels: cfg.Labels,
			},
			[]string{"pipeline", "outcome"},
		),

		PipelineRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "pipeline",
				Name:        "run_duration_seconds",
				Help:        "Time spent in a single pipeline run",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: cfg.Labels,
			},
			[]string{"pipeline"},
		),

		// Fan-out Metrics
		ArrayRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "pipearray",
				Name:        "runs_total",
				Help:        "Total number of fan-out runs by mode and result",
				ConstLabels: cfg.Labels,
			},
			[]string{"array", "mode", "result"},
		),

		ArrayRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "pipearray",
				Name:        "run_duration_seconds",
				Help:        "Time spent running every pipeline of a fan-out",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: cfg.Labels,
			},
			[]string{"array", "mode"},
		),

		// Task Scheduling Metrics
		ScheduledRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "runs_total",
				Help:        "Total number of scheduled pipeline runs by result",
				ConstLabels: cfg.Labels,
			},
			[]string{"job", "result"},
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "task_duration_seconds",
				Help:        "Time spent executing tasks",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: cfg.Labels,
			},
			[]string{"pool_name"},
		),

		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "size",
				Help:        "Current worker pool size",
				ConstLabels: cfg.Labels,
			},
			[]string{"pool_name"},
		),

		WorkerPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "active_workers",
				Help:        "Number of active workers",
				ConstLabels: cfg.Labels,
			},
			[]string{"pool_name"},
		),

		WorkerPoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "queued_tasks",
				Help:        "Number of queued tasks",
				ConstLabels: cfg.Labels,
			},
			[]string{"pool_name"},
		),

		// Sink Metrics
		SinkWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "sink",
				Name:        "writes_total",
				Help:        "Total number of trace entries written by result",
				ConstLabels: cfg.Labels,
			},
			[]string{"sink", "result"},
		),
	}
}

// Result converts an error into the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
