// Package scheduler implements the Scheduled Job Runtime (spec.md §4.C):
// a single-process, cooperative job runner supporting both cron and
// interval triggers, grounded directly on the teacher's
// internal/service/workflow/scheduler.go — a cronRunner interface satisfied
// by hardloop.NewCron, rebuilt (stop + recreate) whenever the registered
// job set changes, because hardloop's cron job has no dynamic add/remove.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/worldline-go/hardloop"

	"github.com/boarsvc/boar/internal/metrics"
)

// Handler is a scheduled job's body. Errors are logged but never
// propagated — the scheduler keeps running regardless of a handler's
// outcome (spec.md §4.C's failure semantics).
type Handler func(ctx context.Context) error

// TriggerKind distinguishes cron-style and fixed-interval triggers.
type TriggerKind string

const (
	TriggerCron     TriggerKind = "cron"
	TriggerInterval TriggerKind = "interval"
)

// Trigger describes when a job fires. Exactly one of CronSpec / Interval is
// meaningful, selected by Kind.
type Trigger struct {
	Kind     TriggerKind
	CronSpec string        // 5-field minute/hour/dom/month/dow spec, for TriggerCron
	Interval time.Duration // positive duration, for TriggerInterval
}

// Cron builds a cron-triggered schedule from a standard 5-field spec.
func Cron(spec string) Trigger { return Trigger{Kind: TriggerCron, CronSpec: spec} }

// Interval builds a fixed-interval schedule.
func Interval(d time.Duration) Trigger { return Trigger{Kind: TriggerInterval, Interval: d} }

// JobInfo is the introspection view returned by List.
type JobInfo struct {
	ID      string
	Name    string
	Trigger Trigger
	NextRun time.Time // zero if not yet computable
	Paused  bool
	Misses  int // ticks dropped because the previous run was still in flight
}

// jobRunner is satisfied by both the hardloop-backed cron runner and the
// ticker-backed interval runner, so Scheduler.reload can treat the two
// uniformly.
type jobRunner interface {
	Start(ctx context.Context) error
	Stop()
}

type jobEntry struct {
	id      string
	name    string
	trigger Trigger
	handler Handler

	mu                sync.Mutex
	paused            bool
	busy              bool
	misses            int
	lastScheduledFire time.Time
}

// Scheduler runs registered jobs on their configured triggers with
// coalesce, max-instances=1, 60s misfire-grace, and replace-existing
// semantics (spec.md §4.C), executing handlers on a bounded worker pool.
type Scheduler struct {
	timezone *time.Location
	poolSize int

	mu       sync.Mutex
	jobs     map[string]*jobEntry
	cron     jobRunner
	interval jobRunner
	cancel   context.CancelFunc
	ctx      context.Context
	sem      chan struct{}
}

// New creates a Scheduler whose cron triggers resolve against tz (an IANA
// timezone name, e.g. "UTC" or "Africa/Cairo") with a worker pool of size
// 10 (spec.md §5).
func New(tz string) (*Scheduler, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("scheduler: load timezone %q: %w", tz, err)
	}
	return &Scheduler{
		timezone: loc,
		poolSize: 10,
		jobs:     make(map[string]*jobEntry),
		sem:      make(chan struct{}, 10),
	}, nil
}

// Register adds or replaces (atomically) the job at id. If the scheduler
// has already been started, the job set is reloaded immediately.
func (s *Scheduler) Register(id, name string, trigger Trigger, handler Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[id] = &jobEntry{id: id, name: name, trigger: trigger, handler: handler}

	if s.ctx != nil {
		return s.reloadLocked()
	}
	return nil
}

// Start begins executing all registered jobs against ctx. Further calls to
// Register after Start rebuild the runners to include the new job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = ctx
	return s.reloadLocked()
}

// Shutdown stops all runners. If wait is true, it blocks until every
// in-flight handler invocation has returned.
func (s *Scheduler) Shutdown(wait bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	if !wait {
		return
	}
	// Acquiring every pool slot guarantees no handler still holds one; a
	// handler releases its slot only after it returns.
	for i := 0; i < s.poolSize; i++ {
		s.sem <- struct{}{}
	}
	for i := 0; i < s.poolSize; i++ {
		<-s.sem
	}
}

// Trigger runs id's handler immediately, out of band, subject to the same
// max-instances=1 guard as a scheduled fire.
func (s *Scheduler) Trigger(ctx context.Context, id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: job %q is not registered", id)
	}

	s.execute(ctx, job)
	return nil
}

// Pause stops id from firing on its schedule until Resume is called. A
// paused job is not removed from the runner — its tick is simply a no-op —
// so pausing never requires a reload.
func (s *Scheduler) Pause(id string) error {
	job, err := s.job(id)
	if err != nil {
		return err
	}
	job.mu.Lock()
	job.paused = true
	job.mu.Unlock()
	return nil
}

// Resume re-enables a paused job.
func (s *Scheduler) Resume(id string) error {
	job, err := s.job(id)
	if err != nil {
		return err
	}
	job.mu.Lock()
	job.paused = false
	job.mu.Unlock()
	return nil
}

func (s *Scheduler) job(id string) (*jobEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("scheduler: job %q is not registered", id)
	}
	return job, nil
}

// List returns introspection info for every registered job, sorted by id.
func (s *Scheduler) List() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		j.mu.Lock()
		info := JobInfo{ID: j.id, Name: j.name, Trigger: j.trigger, Paused: j.paused, Misses: j.misses}
		switch j.trigger.Kind {
		case TriggerCron:
			if next, err := nextCronFire(j.trigger.CronSpec, time.Now(), s.timezone); err == nil {
				info.NextRun = next
			}
		case TriggerInterval:
			if !j.lastScheduledFire.IsZero() {
				info.NextRun = j.lastScheduledFire.Add(j.trigger.Interval)
			}
		}
		j.mu.Unlock()
		result = append(result, info)
	}

	sort.Slice(result, func(i, k int) bool { return result[i].ID < result[k].ID })
	return result
}

// reloadLocked stops any running runners and rebuilds them from the
// current job set. Must be called with s.mu held.
func (s *Scheduler) reloadLocked() error {
	s.stopLocked()

	if s.ctx == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel

	var cronSpecs []hardloop.Cron
	var intervalJobs []*jobEntry
	for _, j := range s.jobs {
		job := j
		switch job.trigger.Kind {
		case TriggerCron:
			cronSpecs = append(cronSpecs, hardloop.Cron{
				Name:  job.id,
				Specs: []string{"CRON_TZ=" + s.timezone.String() + " " + job.trigger.CronSpec},
				Func: func(ctx context.Context) error {
					s.execute(ctx, job)
					return nil
				},
			})
		case TriggerInterval:
			intervalJobs = append(intervalJobs, job)
		}
	}

	if len(cronSpecs) > 0 {
		cronJob, err := hardloop.NewCron(cronSpecs...)
		if err != nil {
			cancel()
			return fmt.Errorf("scheduler: build cron runner: %w", err)
		}
		if err := cronJob.Start(ctx); err != nil {
			cancel()
			return fmt.Errorf("scheduler: start cron runner: %w", err)
		}
		s.cron = cronJob
	}

	if len(intervalJobs) > 0 {
		ir := newIntervalRunner(intervalJobs, s.execute)
		if err := ir.Start(ctx); err != nil {
			cancel()
			return fmt.Errorf("scheduler: start interval runner: %w", err)
		}
		s.interval = ir
	}

	return nil
}

func (s *Scheduler) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
	if s.interval != nil {
		s.interval.Stop()
		s.interval = nil
	}
}

// execute enforces coalesce / max-instances=1 / misfire-grace=60s before
// running job.handler on the bounded worker pool.
func (s *Scheduler) execute(ctx context.Context, job *jobEntry) {
	scheduledFire := time.Now()

	job.mu.Lock()
	if job.paused {
		job.mu.Unlock()
		return
	}
	if job.busy {
		job.misses++
		job.mu.Unlock()
		metrics.SchedulerJobsTotal.WithLabelValues(job.id, "skipped").Inc()
		slog.Warn("scheduler: skipping tick, previous run still in flight (max-instances=1)", "job", job.id)
		return
	}
	if !job.lastScheduledFire.IsZero() && scheduledFire.Sub(job.lastScheduledFire) < 0 {
		// Clock went backwards; ignore rather than risk a tight re-fire loop.
		job.mu.Unlock()
		return
	}
	job.lastScheduledFire = scheduledFire
	job.busy = true
	job.mu.Unlock()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		job.mu.Lock()
		job.busy = false
		job.mu.Unlock()
		return
	}

	go func() {
		defer func() {
			<-s.sem
			job.mu.Lock()
			job.busy = false
			job.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("scheduler: job handler panicked", "job", job.id, "panic", r)
			}
		}()

		if time.Since(scheduledFire) > 60*time.Second {
			metrics.SchedulerJobsTotal.WithLabelValues(job.id, "misfired").Inc()
			slog.Warn("scheduler: dropping fire past misfire grace", "job", job.id, "delay", time.Since(scheduledFire))
			return
		}

		metrics.SchedulerJobsTotal.WithLabelValues(job.id, "ran").Inc()
		if err := job.handler(ctx); err != nil {
			slog.Error("scheduler: job handler failed", "job", job.id, "error", err)
		}
	}()
}
