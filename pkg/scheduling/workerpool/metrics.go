package workerpool

// updateGauges publishes the pool's size, active workers and queue depth.
func (p *workerPool) updateGauges() {
	m := p.config.Metrics
	if m == nil {
		return
	}
	m.WorkerPoolSize.WithLabelValues(p.config.Name).Set(float64(p.Size()))
	m.WorkerPoolActive.WithLabelValues(p.config.Name).Set(float64(p.ActiveWorkers()))
	m.WorkerPoolQueued.WithLabelValues(p.config.Name).Set(float64(p.QueueSize()))
}

// observe records a finished task.
func (p *workerPool) observe(r Result) {
	m := p.config.Metrics
	if m == nil {
		return
	}
	m.TaskExecutionDuration.WithLabelValues(p.config.Name).Observe(r.Duration.Seconds())
	p.updateGauges()
}
