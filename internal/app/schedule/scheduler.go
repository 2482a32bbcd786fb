package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

type entry struct {
	name     string
	interval time.Duration
	job      Job
}

// Periodic runs registered jobs on fixed intervals until its context ends.
// Jobs run once immediately on start.
type Periodic struct {
	Logger  *slog.Logger
	entries []entry
}

func (p *Periodic) Every(name string, interval time.Duration, job Job) {
	if interval <= 0 || job == nil {
		panic("schedule: interval and job required")
	}
	p.entries = append(p.entries, entry{name: name, interval: interval, job: job})
}

// Run blocks until ctx is done.
func (p *Periodic) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, e := range p.entries {
		wg.Add(1)
		go func(e entry) {
			defer wg.Done()
			p.loop(ctx, e)
		}(e)
	}
	wg.Wait()
}

func (p *Periodic) loop(ctx context.Context, e entry) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		p.runOnce(ctx, e)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Periodic) runOnce(ctx context.Context, e entry) {
	started := time.Now()
	err := e.job(ctx)
	if p.Logger == nil {
		return
	}
	if err != nil {
		p.Logger.Error("scheduled job failed", "job", e.name, "error", err)
		return
	}
	p.Logger.Debug("scheduled job finished", "job", e.name, "took", time.Since(started))
}
