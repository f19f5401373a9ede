package worker

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mergeserver/api/internal/client"
	"github.com/mergeserver/api/internal/model"
	"github.com/mergeserver/api/internal/store"
)

// Notifier receives job events for push delivery to subscribers
type Notifier interface {
	BroadcastProgress(jobID string, progress float64, status model.JobStatus)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID string, code, message string)
}

// MergeTask describes one mux run for an existing job record
type MergeTask struct {
	JobID      string
	VideoURL   string
	AudioURL   string
	OutputPath string
	Filename   string
}

// MergeWorker runs the muxer for a job and records its progress and
// terminal outcome in the job store
type MergeWorker struct {
	store    *store.JobStore
	muxer    client.Muxer
	notifier Notifier
	slots    chan struct{} // nil when unbounded
	log      zerolog.Logger
}

// NewMergeWorker creates a new merge worker. maxConcurrent <= 0 lets every
// task start its muxer immediately. notifier may be nil.
func NewMergeWorker(jobs *store.JobStore, muxer client.Muxer, notifier Notifier, maxConcurrent int, log zerolog.Logger) *MergeWorker {
	w := &MergeWorker{
		store:    jobs,
		muxer:    muxer,
		notifier: notifier,
		log:      log.With().Str("component", "merge_worker").Logger(),
	}
	if maxConcurrent > 0 {
		w.slots = make(chan struct{}, maxConcurrent)
	}
	return w
}

// Start runs task in the background. The returned channel receives the
// terminal outcome exactly once: nil on success, the muxer error otherwise.
func (w *MergeWorker) Start(ctx context.Context, task MergeTask) <-chan error {
	result := make(chan error, 1)
	go func() {
		result <- w.process(ctx, task)
	}()
	return result
}

func (w *MergeWorker) process(ctx context.Context, task MergeTask) error {
	log := w.log.With().Str("job_id", task.JobID).Logger()

	if w.slots != nil {
		select {
		case w.slots <- struct{}{}:
			defer func() { <-w.slots }()
		case <-ctx.Done():
			return w.fail(task, ctx.Err())
		}
	}

	log.Info().Msg("merge started")
	start := time.Now()

	err := w.muxer.Mux(ctx, &client.MuxRequest{
		VideoURL:   task.VideoURL,
		AudioURL:   task.AudioURL,
		OutputPath: task.OutputPath,
	}, func(percent float64) {
		w.updateProgress(task.JobID, percent)
	})
	if err != nil {
		return w.fail(task, err)
	}

	now := time.Now()
	job, ok := w.store.Update(task.JobID, func(j *model.Job) bool {
		if j.Status != model.JobStatusProcessing {
			return false
		}
		j.Status = model.JobStatusComplete
		j.Progress = 100
		j.OutputPath = task.OutputPath
		j.Filename = task.Filename
		j.CompletedAt = &now
		return true
	})
	if !ok {
		log.Warn().Msg("job record gone before completion")
		return nil
	}

	if w.notifier != nil {
		w.notifier.BroadcastComplete(task.JobID, job)
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("merge complete")
	return nil
}

// updateProgress stores percent if the job is still processing and the
// value moves forward. Reports at or below the stored progress are
// discarded on purpose: polled progress never goes backwards.
func (w *MergeWorker) updateProgress(jobID string, percent float64) {
	percent = clampPercent(percent)

	job, ok := w.store.Update(jobID, func(j *model.Job) bool {
		if j.Status != model.JobStatusProcessing || percent <= j.Progress {
			return false
		}
		j.Progress = percent
		return true
	})
	if !ok {
		return
	}

	w.log.Debug().Str("job_id", jobID).Float64("progress", job.Progress).Msg("progress")
	if w.notifier != nil {
		w.notifier.BroadcastProgress(jobID, job.Progress, job.Status)
	}
}

func (w *MergeWorker) fail(task MergeTask, cause error) error {
	msg := cause.Error()
	now := time.Now()

	w.store.Update(task.JobID, func(j *model.Job) bool {
		if j.Status != model.JobStatusProcessing {
			return false
		}
		j.Status = model.JobStatusError
		j.Progress = 0
		j.Error = &msg
		j.CompletedAt = &now
		return true
	})

	if err := os.Remove(task.OutputPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		w.log.Warn().Err(err).Str("job_id", task.JobID).Msg("failed to remove partial output")
	}

	if w.notifier != nil {
		w.notifier.BroadcastError(task.JobID, "MERGE_FAILED", msg)
	}
	w.log.Error().Str("job_id", task.JobID).Str("error", msg).Msg("merge failed")
	return cause
}

func clampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
