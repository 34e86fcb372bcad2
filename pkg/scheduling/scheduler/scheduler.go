package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	gfcontext "github.com/vnykmshr/goplumb/pkg/common/context"
	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
	"github.com/vnykmshr/goplumb/pkg/common/validation"
	"github.com/vnykmshr/goplumb/pkg/metrics"
	"github.com/vnykmshr/goplumb/pkg/scheduling/pipeline"
	"github.com/vnykmshr/goplumb/pkg/scheduling/workerpool"
	"github.com/vnykmshr/goplumb/pkg/streaming/sink"
)

const maxJobIDLength = 255

// ErrUnknownJob is returned by Trigger for an id that is not scheduled.
var ErrUnknownJob = errors.New("unknown job")

// JobInfo describes a scheduled job.
type JobInfo struct {
	ID       string
	Pipeline string

	// Expression is the cron expression of a cron job.
	Expression string

	// Interval is the period of a repeating job. Zero for one-time and cron jobs.
	Interval time.Duration

	// Next is the next time the job is due.
	Next    time.Time
	Created time.Time

	LastRun  time.Time
	Runs     int64
	Failures int64
}

// Scheduler runs pipelines at scheduled times.
type Scheduler interface {
	// Schedule runs job once at runAt.
	Schedule(id string, job Job, runAt time.Time) error

	// ScheduleAfter runs job once after delay.
	ScheduleAfter(id string, job Job, delay time.Duration) error

	// ScheduleRepeating runs job every interval, starting one interval from now.
	ScheduleRepeating(id string, job Job, interval time.Duration) error

	// ScheduleCron runs job whenever expr fires. Both the five field form and
	// a leading seconds field are accepted, as are descriptors like @hourly
	// and @every 5m.
	ScheduleCron(id string, expr string, job Job) error

	// Trigger runs a scheduled job now on the calling goroutine, without
	// moving its next run.
	Trigger(ctx context.Context, id string) (*pipeline.Output, error)

	// Next returns when the job is due next.
	Next(id string) (time.Time, bool)

	Cancel(id string) bool
	CancelAll()
	List() []JobInfo

	Start() error
	Stop() <-chan struct{}
}

// Clock supplies the current time. testutil.MockClock satisfies it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config holds scheduler configuration.
type Config struct {
	// WorkerPool executes due runs. A supplied pool must either set
	// DiscardResults or have its Results drained by the caller. If nil the
	// scheduler creates and owns a pool of four workers.
	WorkerPool workerpool.Pool

	// Sink receives an entry for every finished run. Optional.
	Sink sink.Sink

	// Location is used to evaluate cron expressions (default: time.Local).
	Location *time.Location

	// TickInterval is how often due jobs are collected (default: 50ms).
	TickInterval time.Duration

	// MaxJobs caps the number of scheduled jobs (default: 10000).
	MaxJobs int

	// Clock supplies the current time (default: wall clock).
	Clock Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records ScheduledRuns. If nil, nothing is recorded.
	Metrics *metrics.Registry

	// OnRunComplete is called after every run, scheduled or triggered.
	OnRunComplete func(id string, out *pipeline.Output, err error)
}

type scheduledJob struct {
	id         string
	job        Job
	runAt      time.Time
	interval   time.Duration
	expression string
	schedule   cron.Schedule
	created    time.Time

	lastRun  time.Time
	runs     int64
	failures int64
}

type scheduler struct {
	config  Config
	pool    workerpool.Pool
	ownPool bool
	clock   Clock
	logger  *slog.Logger
	parser  cron.Parser

	mu      sync.RWMutex
	jobs    map[string]*scheduledJob
	running bool
	stopped bool

	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
	inflight sync.WaitGroup
}

// New creates a scheduler with default configuration.
func New() (Scheduler, error) {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) (Scheduler, error) {
	if cfg.TickInterval < 0 {
		return nil, gferrors.NewValidationError("scheduler", "TickInterval", cfg.TickInterval, "must be non-negative")
	}
	if cfg.MaxJobs < 0 {
		return nil, gferrors.NewValidationError("scheduler", "MaxJobs", cfg.MaxJobs, "must be non-negative")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 50 * time.Millisecond
	}
	if cfg.MaxJobs == 0 {
		cfg.MaxJobs = 10000
	}

	s := &scheduler{
		config: cfg,
		pool:   cfg.WorkerPool,
		clock:  cfg.Clock,
		logger: cfg.Logger,
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour |
			cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		jobs: make(map[string]*scheduledJob),
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.pool == nil {
		pool, err := workerpool.NewWithConfig(workerpool.Config{
			Name:           "scheduler",
			WorkerCount:    4,
			QueueSize:      100,
			DiscardResults: true,
			Logger:         s.logger,
			Metrics:        cfg.Metrics,
		})
		if err != nil {
			return nil, err
		}
		s.pool = pool
		s.ownPool = true
	}
	return s, nil
}

func (s *scheduler) Schedule(id string, job Job, runAt time.Time) error {
	if runAt.IsZero() {
		return gferrors.NewValidationError("scheduler", "runAt", runAt, "cannot be zero")
	}
	return s.add(id, job, &scheduledJob{runAt: runAt})
}

func (s *scheduler) ScheduleAfter(id string, job Job, delay time.Duration) error {
	if delay < 0 {
		return gferrors.NewValidationError("scheduler", "delay", delay, "must be non-negative")
	}
	return s.add(id, job, &scheduledJob{runAt: s.clock.Now().Add(delay)})
}

func (s *scheduler) ScheduleRepeating(id string, job Job, interval time.Duration) error {
	if interval <= 0 {
		return gferrors.NewValidationError("scheduler", "interval", interval, "must be positive")
	}
	return s.add(id, job, &scheduledJob{
		runAt:    s.clock.Now().Add(interval),
		interval: interval,
	})
}

func (s *scheduler) ScheduleCron(id string, expr string, job Job) error {
	if err := validation.ValidateNotEmpty("scheduler", "expression", expr); err != nil {
		return err
	}
	schedule, err := s.parser.Parse(expr)
	if err != nil {
		return gferrors.NewValidationError("scheduler", "expression", expr, err.Error()).
			WithHint(`use five fields ("*/5 * * * *"), six with seconds, or a descriptor like "@every 1m"`)
	}
	return s.add(id, job, &scheduledJob{
		runAt:      schedule.Next(s.clock.Now().In(s.config.Location)),
		expression: expr,
		schedule:   schedule,
	})
}

func (s *scheduler) add(id string, job Job, sj *scheduledJob) error {
	if err := validation.ValidateNotEmpty("scheduler", "id", id); err != nil {
		return err
	}
	if err := validation.ValidateMaxLength("scheduler", "id", id, maxJobIDLength); err != nil {
		return err
	}
	if err := job.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return gferrors.NewOperationError("scheduler", "Schedule", gferrors.ErrClosed)
	}
	if _, exists := s.jobs[id]; exists {
		return gferrors.NewValidationError("scheduler", "id", id, "already scheduled").
			WithHint("cancel the existing job first or use a different id")
	}
	if len(s.jobs) >= s.config.MaxJobs {
		return gferrors.NewOperationError("scheduler", "Schedule", gferrors.ErrCapacityExceeded).
			WithContext(fmt.Sprintf("max %d jobs", s.config.MaxJobs))
	}

	sj.id = id
	sj.job = job.clone()
	sj.created = s.clock.Now()
	s.jobs[id] = sj

	s.logger.Debug("job scheduled", "job", id, "pipeline", job.Pipeline.Name(), "next", sj.runAt)
	return nil
}

func (s *scheduler) Trigger(ctx context.Context, id string) (*pipeline.Output, error) {
	s.mu.RLock()
	sj, ok := s.jobs[id]
	var job Job
	if ok {
		job = sj.job
	}
	s.mu.RUnlock()

	if !ok {
		return nil, gferrors.NewOperationError("scheduler", "Trigger", ErrUnknownJob).
			WithContext("job " + id)
	}
	return s.runJob(ctx, id, job)
}

func (s *scheduler) Next(id string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sj, ok := s.jobs[id]; ok {
		return sj.runAt, true
	}
	return time.Time{}, false
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		delete(s.jobs, id)
		return true
	}
	return false
}

func (s *scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = make(map[string]*scheduledJob)
}

func (s *scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]JobInfo, 0, len(s.jobs))
	for _, sj := range s.jobs {
		jobs = append(jobs, JobInfo{
			ID:         sj.id,
			Pipeline:   sj.job.Pipeline.Name(),
			Expression: sj.expression,
			Interval:   sj.interval,
			Next:       sj.runAt,
			Created:    sj.created,
			LastRun:    sj.lastRun,
			Runs:       sj.runs,
			Failures:   sj.failures,
		})
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].Next.Equal(jobs[j].Next) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].Next.Before(jobs[j].Next)
	})
	return jobs
}

func (s *scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return gferrors.NewOperationError("scheduler", "Start", gferrors.ErrClosed)
	}
	if s.running {
		return gferrors.NewOperationError("scheduler", "Start", fmt.Errorf("already running"))
	}

	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.loopDone = make(chan struct{})
	go s.run(s.ctx, time.NewTicker(s.config.TickInterval))
	return nil
}

// Stop halts the tick loop and waits for in-flight runs. The scheduler
// cannot be restarted.
func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.stopped = true
	loopDone := s.loopDone
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if wasRunning {
			<-loopDone
		}
		s.inflight.Wait()
		if s.ownPool {
			<-s.pool.Shutdown()
		}
	}()
	return stopped
}

func (s *scheduler) run(ctx context.Context, ticker *time.Ticker) {
	defer close(s.loopDone)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(ctx)
		}
	}
}

// dispatch submits every due job and moves it to its next run time.
func (s *scheduler) dispatch(ctx context.Context) {
	now := s.clock.Now()

	s.mu.Lock()
	if len(s.jobs) == 0 {
		s.mu.Unlock()
		return
	}
	due := make([]*jobRun, 0, len(s.jobs))
	for id, sj := range s.jobs {
		if now.Before(sj.runAt) {
			continue
		}
		due = append(due, &jobRun{s: s, id: id, job: sj.job})

		switch {
		case sj.interval > 0:
			sj.runAt = now.Add(sj.interval)
		case sj.schedule != nil:
			sj.runAt = sj.schedule.Next(now.In(s.config.Location))
		default:
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].id < due[j].id })
	for _, r := range due {
		s.inflight.Add(1)
		if err := s.pool.SubmitWithContext(ctx, r); err != nil {
			s.inflight.Done()
			s.logger.Warn("scheduled run not submitted", "job", r.id, "error", err)
		}
	}
}

// runJob executes one run of job, records it and delivers it to the sink.
func (s *scheduler) runJob(ctx context.Context, id string, job Job) (*pipeline.Output, error) {
	task := workerpool.RunPipeline(job.Pipeline, job.Params)
	started := s.clock.Now()
	err := job.task(task).Execute(ctx)
	out := task.Output()
	if err != nil {
		out = nil
	}
	finished := s.clock.Now()

	s.mu.Lock()
	if sj, ok := s.jobs[id]; ok {
		sj.lastRun = finished
		sj.runs++
		if err != nil {
			sj.failures++
		}
	}
	s.mu.Unlock()

	if s.config.Metrics != nil {
		s.config.Metrics.ScheduledRuns.WithLabelValues(id, metrics.Result(err)).Inc()
	}
	if err != nil {
		s.logger.Warn("scheduled run failed", "job", id, "pipeline", job.Pipeline.Name(), "error", err)
	} else {
		s.logger.Info("scheduled run finished", "job", id, "pipeline", job.Pipeline.Name(),
			"run_id", out.RunID, "records", len(out.Records))
	}

	if s.config.Sink != nil {
		entry := sink.NewEntry(id, job.Pipeline, out, err)
		if out == nil {
			entry.StartedAt, entry.FinishedAt = started, finished
		}
		if werr := s.config.Sink.Write(gfcontext.Detached(ctx), entry); werr != nil {
			s.logger.Error("sink write failed", "job", id, "error", werr)
		}
	}

	if s.config.OnRunComplete != nil {
		s.config.OnRunComplete(id, out, err)
	}
	return out, err
}

// jobRun is the pool task of one scheduled run.
type jobRun struct {
	s   *scheduler
	id  string
	job Job
}

func (r *jobRun) Execute(ctx context.Context) error {
	defer r.s.inflight.Done()
	if err := ctx.Err(); err != nil {
		r.s.logger.Debug("scheduled run dropped", "job", r.id, "error", err)
		return err
	}
	_, err := r.s.runJob(ctx, r.id, r.job)
	return err
}
