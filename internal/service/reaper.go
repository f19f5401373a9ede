package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mergeserver/api/internal/config"
	"github.com/mergeserver/api/internal/model"
	"github.com/mergeserver/api/internal/store"
)

// Reaper reclaims finished jobs that were never downloaded
type Reaper struct {
	jobs     *store.JobStore
	ttl      time.Duration
	interval time.Duration
	log      zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewReaper(jobs *store.JobStore, cfg *config.JobsConfig, log zerolog.Logger) *Reaper {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reaper{
		jobs:     jobs,
		ttl:      cfg.TTL,
		interval: interval,
		log:      log.With().Str("component", "reaper").Logger(),
		stop:     make(chan struct{}),
	}
}

// Enabled reports whether a TTL is configured
func (r *Reaper) Enabled() bool {
	return r.ttl > 0
}

// Start sweeps periodically until ctx is done or Stop is called.
// It does nothing when the reaper is disabled.
func (r *Reaper) Start(ctx context.Context) {
	if !r.Enabled() {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case now := <-ticker.C:
				if n := r.Sweep(now); n > 0 {
					r.log.Info().Int("reaped", n).Msg("expired jobs reclaimed")
				}
			}
		}
	}()
	r.log.Info().Dur("ttl", r.ttl).Dur("interval", r.interval).Msg("reaper started")
}

// Stop ends the sweep loop and waits for it to exit
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
}

// Sweep removes every terminal job completed at least ttl before now that
// is not being downloaded, and returns how many were removed.
func (r *Reaper) Sweep(now time.Time) int {
	if !r.Enabled() {
		return 0
	}

	reaped := 0
	for _, job := range r.jobs.List() {
		if !r.expired(job, now) {
			continue
		}

		claimed, ok := r.jobs.Update(job.ID, func(j *model.Job) bool {
			if !r.expired(*j, now) {
				return false
			}
			j.Delivering = true
			return true
		})
		if !ok {
			continue
		}

		removeJob(r.jobs, r.log, claimed.ID, claimed.OutputPath)
		reaped++
	}
	return reaped
}

func (r *Reaper) expired(job model.Job, now time.Time) bool {
	return job.Status.IsTerminal() &&
		!job.Delivering &&
		job.CompletedAt != nil &&
		now.Sub(*job.CompletedAt) >= r.ttl
}
