// Package metrics provides Prometheus instrumentation for goplumb components.
//
// # Quick Start
//
// Pass a *Registry to the components that should record:
//
//	reg := metrics.NewRegistry(prometheus.NewRegistry())
//
//	p := pipeline.NewWithConfig(pipeline.Config{Name: "signup", Metrics: reg}, stages...)
//	arr := pipearray.NewWithConfig(pipearray.Config{Name: "batch", Metrics: reg})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// A nil *Registry disables recording; FromConfig returns nil for a disabled
// Config.
//
// # Available Metrics
//
//   - goplumb_pipeline_runs_total{pipeline,result}
//   - goplumb_pipeline_stages_executed_total{pipeline}
//   - goplumb_pipeline_stages_skipped_total{pipeline}
//   - goplumb_pipeline_forks_total{pipeline,outcome}
//   - goplumb_pipeline_run_duration_seconds{pipeline}
//   - goplumb_pipearray_runs_total{array,mode,result}
//   - goplumb_pipearray_run_duration_seconds{array,mode}
//   - goplumb_scheduler_runs_total{job,result}
//   - goplumb_workerpool_task_duration_seconds{pool_name}
//   - goplumb_workerpool_size{pool_name}
//   - goplumb_workerpool_active_workers{pool_name}
//   - goplumb_workerpool_queued_tasks{pool_name}
//   - goplumb_sink_writes_total{sink,result}
//
// The "result" label is "ok" or "error"; fork "outcome" is "jump" or "exit".
package metrics
