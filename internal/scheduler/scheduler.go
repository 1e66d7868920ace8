package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Job is a unit of periodic work.
type Job struct {
	ID         string
	Interval   time.Duration
	RunOnStart bool
	Run        func(ctx context.Context) error
}

type entry struct {
	job    Job
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler runs jobs on fixed intervals. Each job runs on its own goroutine,
// so a job never overlaps itself; ticks that arrive while it runs are dropped.
type Scheduler struct {
	mu      sync.Mutex
	logger  logrus.FieldLogger
	jobs    map[string]*entry
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

func New(logger logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		logger: logger.WithField("module", "scheduler"),
		jobs:   make(map[string]*entry),
	}
}

// Add registers job. A job with the same ID replaces the existing one; when the
// scheduler is running the old job is stopped and the new one started.
func (s *Scheduler) Add(job Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.ID)
	}
	if job.Run == nil {
		return fmt.Errorf("job %s: run func is required", job.ID)
	}

	s.mu.Lock()
	old := s.jobs[job.ID]
	e := &entry{job: job}
	s.jobs[job.ID] = e
	if s.running {
		s.launch(e)
	}
	s.mu.Unlock()

	if old != nil && old.cancel != nil {
		old.cancel()
		<-old.done
	}
	return nil
}

// Start launches every registered job. Jobs stop when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	for _, e := range s.jobs {
		s.launch(e)
	}
	s.logger.WithField("jobs", len(s.jobs)).Info("scheduler started")
}

// Stop cancels all jobs and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	entries := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	for _, e := range entries {
		if e.done != nil {
			<-e.done
		}
	}
	s.logger.Info("scheduler stopped")
}

// launch must be called with s.mu held.
func (s *Scheduler) launch(e *entry) {
	ctx, cancel := context.WithCancel(s.ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go s.loop(ctx, e.job, e.done)
}

func (s *Scheduler) loop(ctx context.Context, job Job, done chan struct{}) {
	defer close(done)

	if job.RunOnStart {
		s.runOnce(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.runOnce(ctx, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	logger := s.logger.WithFields(logrus.Fields{"job": job.ID, "run_id": uuid.NewString()})
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("job panicked")
		}
	}()

	if err := job.Run(ctx); err != nil {
		logger.WithError(err).Error("job failed")
		return
	}
	logger.WithField("duration_ms", time.Since(started).Milliseconds()).Info("job complete")
}
