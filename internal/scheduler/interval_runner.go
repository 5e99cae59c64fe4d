package scheduler

import (
	"context"
	"sync"
	"time"
)

// intervalRunner drives fixed-interval jobs with one time.Ticker per job,
// satisfying jobRunner so Scheduler.reload can treat it the same as the
// hardloop-backed cron runner. Go's Ticker already drops ticks for a slow
// receiver rather than queuing a backlog, which gives coalesce for free.
type intervalRunner struct {
	jobs []*jobEntry
	exec func(ctx context.Context, job *jobEntry)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newIntervalRunner(jobs []*jobEntry, exec func(ctx context.Context, job *jobEntry)) *intervalRunner {
	return &intervalRunner{jobs: jobs, exec: exec}
}

func (r *intervalRunner) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for _, j := range r.jobs {
		job := j
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()

			ticker := time.NewTicker(job.trigger.Interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					r.exec(ctx, job)
				}
			}
		}()
	}
	return nil
}

func (r *intervalRunner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}
