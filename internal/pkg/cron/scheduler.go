package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is a function run on a fixed interval. Each run gets its own deadline
// so a stuck database call cannot hold the job forever.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Fn       func(ctx context.Context) error
}

// Scheduler runs each job in its own goroutine. Runs of one job never
// overlap; ticks that fire while a run is in progress are dropped.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]Job
	order   []string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{jobs: make(map[string]Job)}
}

// AddJob registers fn under name. A zero timeout defaults to the interval.
// Registering the same name twice panics, since it is a wiring mistake.
func (s *Scheduler) AddJob(name string, interval time.Duration, fn func(ctx context.Context) error) {
	s.AddJobWithTimeout(name, interval, interval, fn)
}

func (s *Scheduler) AddJobWithTimeout(name string, interval, timeout time.Duration, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		panic(fmt.Sprintf("cron: job %q registered twice", name))
	}
	if timeout <= 0 {
		timeout = interval
	}
	s.jobs[name] = Job{Name: name, Interval: interval, Timeout: timeout, Fn: fn}
	s.order = append(s.order, name)
	slog.Info("cron job registered", "name", name, "interval", interval, "timeout", timeout)
}

// Start runs every job once immediately and then on its interval until ctx
// is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, name := range s.order {
		s.wg.Add(1)
		go s.loop(ctx, s.jobs[name])
	}
	slog.Info("cron scheduler started", "job_count", len(s.order))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("cron scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	_ = s.execute(ctx, job)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()

	start := time.Now()
	err := job.Fn(ctx)
	if err != nil {
		slog.Error("cron job failed", "name", job.Name, "error", err, "duration", time.Since(start))
		return err
	}
	slog.Debug("cron job completed", "name", job.Name, "duration", time.Since(start))
	return nil
}

// Run executes the named job once, outside its schedule.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("cron: unknown job %q", name)
	}
	return s.execute(ctx, job)
}

// RunOnce executes every job once in registration order and returns the
// first error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	jobs := make([]Job, 0, len(s.order))
	for _, name := range s.order {
		jobs = append(jobs, s.jobs[name])
	}
	s.mu.Unlock()

	var first error
	for _, job := range jobs {
		if err := s.execute(ctx, job); err != nil && first == nil {
			first = err
		}
	}
	return first
}
